package domain

import (
	"strings"
	"time"
)

type RouteStatus string

const (
	RouteStatusPending   RouteStatus = "pending"
	RouteStatusActive    RouteStatus = "active"
	RouteStatusCompleted RouteStatus = "completed"
)

// Represents one scheduled trip published by a driver.
// Status transitions are owned by the booking workflow; the tracking
// engine only reads them.
type Route struct {
	ID                 string
	Name               string
	StartPlace         string
	EndPlace           string
	DriverID           string
	ScheduledStartTime time.Time
	Status             RouteStatus
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendancePending AttendanceStatus = "pending"
)

// ParseAttendanceStatus maps free text to a status. Unknown values are rejected.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	switch AttendanceStatus(strings.ToLower(strings.TrimSpace(s))) {
	case AttendancePresent:
		return AttendancePresent, nil
	case AttendanceAbsent:
		return AttendanceAbsent, nil
	case AttendancePending, "":
		return AttendancePending, nil
	}
	return "", ErrInvalidAttendance
}

// A single pickup point tied to one rider's booking on a Route.
// Its position in the travel order is derived, never stored.
type Stop struct {
	BookingID   string
	RouteID     string
	RiderID     string
	PickupPlace string
	Attendance  AttendanceStatus
}

// Present reports whether the stop is still scheduled for pickup.
// Riders who have not marked attendance yet count as present.
func (s Stop) Present() bool { return s.Attendance != AttendanceAbsent }

// An attendance mark as delivered by the attendance feed.
type AttendanceEvent struct {
	RouteID string
	RiderID string
	Status  AttendanceStatus
	Date    time.Time
}
