// Package geo holds the great-circle distance and arrival-time helpers
// shared by the sequencer, the completion detector and the tracking view.
package geo

import (
	"fmt"
	"math"
	"route-tracking-service/internal/domain"
	"time"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0
	// DefaultSpeedKmh is the assumed average vehicle speed for ETAs.
	DefaultSpeedKmh = 40.0
	// dedupeEpsilon is the per-axis delta (degrees) below which two
	// consecutive polyline points are considered the same point.
	dedupeEpsilon = 0.0001
)

// Base coordinates used when there is nothing to center on (Muscat).
var DefaultCenter = domain.Coordinates{Lat: 23.588, Lng: 58.3829}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm returns the haversine great-circle distance between a and b.
func DistanceKm(a, b domain.Coordinates) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// EtaMinutes converts a distance into whole minutes at the given speed.
// A non-positive speed falls back to DefaultSpeedKmh.
func EtaMinutes(distanceKm, speedKmh float64) int {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	return int(math.Round(distanceKm / speedKmh * 60))
}

// PathDistanceKm sums the distance between consecutive points.
func PathDistanceKm(points []domain.Coordinates) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceKm(points[i-1], points[i])
	}
	return total
}

// CumulativeEta returns the travel time along the polyline.
// ok is false when the ETA is unknown (fewer than two points).
func CumulativeEta(polyline []domain.Coordinates, speedKmh float64) (eta time.Duration, ok bool) {
	if len(polyline) < 2 {
		return 0, false
	}
	minutes := EtaMinutes(PathDistanceKm(polyline), speedKmh)
	return time.Duration(minutes) * time.Minute, true
}

// WithinRadius reports whether point lies within radiusKm of center.
func WithinRadius(point, center domain.Coordinates, radiusKm float64) bool {
	return DistanceKm(point, center) <= radiusKm
}

// CenterPoint returns the arithmetic mean of the points, or DefaultCenter.
func CenterPoint(points []domain.Coordinates) domain.Coordinates {
	if len(points) == 0 {
		return DefaultCenter
	}

	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return domain.Coordinates{Lat: lat / n, Lng: lng / n}
}

// DedupeSequential drops points that repeat the previous kept point.
func DedupeSequential(points []domain.Coordinates) []domain.Coordinates {
	if len(points) <= 1 {
		return append([]domain.Coordinates(nil), points...)
	}

	out := make([]domain.Coordinates, 0, len(points))
	out = append(out, points[0])
	for _, p := range points[1:] {
		prev := out[len(out)-1]
		if math.Abs(p.Lat-prev.Lat) > dedupeEpsilon || math.Abs(p.Lng-prev.Lng) > dedupeEpsilon {
			out = append(out, p)
		}
	}
	return out
}

// FormatDistance renders meters below one kilometer, else km with one decimal.
// Display only.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1f km", km)
}

// FormatEta renders minutes as "N mins" or "Hh Mm". Display only.
func FormatEta(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d mins", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
