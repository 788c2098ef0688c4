package domain

import "math"

// Immutable geographic coordinates in decimal degrees (WGS-84).
type Coordinates struct {
	Lat float64
	Lng float64
}

// Return coordinates as [lat, lng] for map polylines.
func (c Coordinates) LatLng() [2]float64 { return [2]float64{c.Lat, c.Lng} }

// Valid reports whether the coordinates are finite and within WGS-84 bounds.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// A resolved place. Name is the original free-text key used for lookup and display.
type NamedPlace struct {
	Name        string
	Coordinates Coordinates
}
