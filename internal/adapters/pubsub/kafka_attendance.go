package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"route-tracking-service/internal/domain"
	"route-tracking-service/internal/ports"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// attendanceMessage is an attendance mark as published by the roll-call app.
type attendanceMessage struct {
	RouteID   string `json:"route_id"`
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
	// Date is YYYY-MM-DD; empty means today.
	Date string `json:"date"`
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
}

// messageReader is the part of *kafka.Reader the consumer needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// AttendanceConsumer feeds attendance marks from Kafka to a handler.
type AttendanceConsumer struct {
	reader messageReader
	logger *slog.Logger
}

func NewAttendanceConsumer(reader *kafka.Reader, logger *slog.Logger) *AttendanceConsumer {
	return newAttendanceConsumer(reader, logger)
}

func newAttendanceConsumer(reader messageReader, logger *slog.Logger) *AttendanceConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttendanceConsumer{reader: reader, logger: logger}
}

// Run consumes until ctx is cancelled or the reader fails. Bad messages and
// handler errors are logged and skipped.
func (c *AttendanceConsumer) Run(ctx context.Context, handle ports.AttendanceHandler) error {
	defer c.reader.Close()

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read attendance message: %w", err)
		}

		ev, err := DecodeAttendance(m.Value)
		if err != nil {
			c.logger.Warn("bad attendance event", "partition", m.Partition, "offset", m.Offset, "err", err)
			continue
		}

		if err := handle(ctx, ev); err != nil {
			c.logger.Warn("attendance event not applied", "route_id", ev.RouteID, "rider_id", ev.RiderID, "err", err)
			continue
		}
		c.logger.Debug("attendance event applied", "route_id", ev.RouteID, "rider_id", ev.RiderID, "status", ev.Status)
	}
}

// DecodeAttendance parses one attendance message.
func DecodeAttendance(b []byte) (domain.AttendanceEvent, error) {
	var m attendanceMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return domain.AttendanceEvent{}, fmt.Errorf("decode attendance: %w", err)
	}
	if strings.TrimSpace(m.RouteID) == "" || strings.TrimSpace(m.StudentID) == "" {
		return domain.AttendanceEvent{}, errors.New("decode attendance: route_id and student_id are required")
	}

	status, err := domain.ParseAttendanceStatus(m.Status)
	if err != nil {
		return domain.AttendanceEvent{}, fmt.Errorf("decode attendance: %w", err)
	}

	ev := domain.AttendanceEvent{RouteID: m.RouteID, RiderID: m.StudentID, Status: status}
	if m.Date != "" {
		d, err := time.ParseInLocation(time.DateOnly, m.Date, time.Local)
		if err != nil {
			return domain.AttendanceEvent{}, fmt.Errorf("decode attendance date %q: %w", m.Date, err)
		}
		ev.Date = d
	}
	return ev, nil
}
