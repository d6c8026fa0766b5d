// Package model holds the data types shared by the location, proximity and session layers.
package model

import "geoguide/pkg/geo"

// ErrorKind classifies a position watch failure.
type ErrorKind string

// Error kinds reported by permission checks and the sensor watch.
const (
	ErrorNone                 ErrorKind = ""
	ErrorPermissionDenied     ErrorKind = "permission_denied"
	ErrorPositionUnavailable  ErrorKind = "position_unavailable"
	ErrorTimeout              ErrorKind = "timeout"
	ErrorServiceUnavailable   ErrorKind = "service_unavailable"
	ErrorSettingsNotSatisfied ErrorKind = "settings_not_satisfied"
	ErrorInternal             ErrorKind = "internal"
)

// Transient reports whether the watch is expected to recover on its own.
func (k ErrorKind) Transient() bool {
	return k != ErrorNone && k != ErrorPermissionDenied
}

// ParseErrorKind maps a reported kind to a known value, defaulting to ErrorInternal.
func ParseErrorKind(s string) ErrorKind {
	switch k := ErrorKind(s); k {
	case ErrorPermissionDenied, ErrorPositionUnavailable, ErrorTimeout,
		ErrorServiceUnavailable, ErrorSettingsNotSatisfied, ErrorInternal:
		return k
	}
	return ErrorInternal
}

// PositionStatus is the latest state published by the location source.
// Coordinate stays at the last good fix after a failure.
type PositionStatus struct {
	Coordinate *geo.Point `json:"coordinate,omitempty"`
	Enabled    bool       `json:"enabled"`
	Error      ErrorKind  `json:"error,omitempty"`
}

// HasFix reports whether a coordinate has ever been observed.
func (s PositionStatus) HasFix() bool {
	return s.Coordinate != nil
}
