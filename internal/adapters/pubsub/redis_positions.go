package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"route-tracking-service/internal/domain"
	"time"

	"github.com/redis/go-redis/v9"
)

// positionMessage is the JSON form of a live position on the bus.
type positionMessage struct {
	RouteID    string    `json:"routeId"`
	ActorID    string    `json:"actorId"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	ObservedAt time.Time `json:"observedAt"`
}

// Upper bound on waiting for Redis to confirm a subscription.
const subscribeConfirmTimeout = 5 * time.Second

func positionChannel(routeID string) string {
	return "route:" + routeID + ":positions"
}

// RedisPositions fans live positions out over Redis pub/sub so every
// instance tracking a route sees every driver and rider update.
type RedisPositions struct {
	client         *redis.Client
	logger         *slog.Logger
	confirmTimeout time.Duration
}

func NewRedisPositions(client *redis.Client, logger *slog.Logger) (*RedisPositions, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPositions{client: client, logger: logger, confirmTimeout: subscribeConfirmTimeout}, nil
}

func (r *RedisPositions) Publish(ctx context.Context, pos domain.LivePosition) error {
	payload, err := json.Marshal(positionMessage{
		RouteID:    pos.RouteID,
		ActorID:    pos.ActorID,
		Lat:        pos.Coordinates.Lat,
		Lng:        pos.Coordinates.Lng,
		ObservedAt: pos.ObservedAt,
	})
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}
	if err := r.client.Publish(ctx, positionChannel(pos.RouteID), payload).Err(); err != nil {
		return fmt.Errorf("publish position for route %q: %w", pos.RouteID, err)
	}
	return nil
}

// Subscribe streams the route's positions until ctx is cancelled. Malformed
// messages are logged and skipped.
func (r *RedisPositions) Subscribe(ctx context.Context, routeID string) (<-chan domain.LivePosition, error) {
	sub := r.client.Subscribe(ctx, positionChannel(routeID))
	// Wait for the subscription to be confirmed so no publish is missed.
	confirmCtx, cancel := context.WithTimeout(ctx, r.confirmTimeout)
	_, err := sub.Receive(confirmCtx)
	cancel()
	if err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to route %q positions: %w", routeID, err)
	}

	out := make(chan domain.LivePosition)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					r.logger.Warn("position subscription closed", "route_id", routeID)
					return
				}
				pos, err := decodePosition([]byte(msg.Payload))
				if err != nil {
					r.logger.Warn("dropping malformed position message", "channel", msg.Channel, "err", err)
					continue
				}
				select {
				case out <- pos:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func decodePosition(b []byte) (domain.LivePosition, error) {
	var m positionMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return domain.LivePosition{}, fmt.Errorf("decode position: %w", err)
	}
	if m.RouteID == "" || m.ActorID == "" {
		return domain.LivePosition{}, errors.New("decode position: routeId and actorId are required")
	}
	return domain.LivePosition{
		RouteID:     m.RouteID,
		ActorID:     m.ActorID,
		Coordinates: domain.Coordinates{Lat: m.Lat, Lng: m.Lng},
		ObservedAt:  m.ObservedAt,
	}, nil
}
