package domain

import "errors"

var (
	ErrRouteNotFound     = errors.New("route not found")
	ErrRouteMismatch     = errors.New("record belongs to a different route")
	ErrUnknownStop       = errors.New("no stop for rider on route")
	ErrDuplicateBooking  = errors.New("booking already exists with different data")
	ErrPlaceNotFound     = errors.New("place not found")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidAttendance = errors.New("invalid attendance status")
	ErrSessionClosed     = errors.New("tracking session closed")
)
