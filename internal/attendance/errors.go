package attendance

import "errors"

var (
	// ErrInvalidCode means no ACTIVE session carries the submitted code.
	ErrInvalidCode = errors.New("invalid or expired attendance code")
	// ErrNotEnrolled means the student has no enrollment in the session's class.
	ErrNotEnrolled = errors.New("student not enrolled in this class")
	// ErrLocationRequired means the session has a geofence and no location was supplied.
	ErrLocationRequired = errors.New("location is required for this session")
	// ErrSessionNotFound means no session matches the given identifiers.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidStatus means a status outside PRESENT/LATE/ABSENT was supplied.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrCodeTaken is returned by the store when a generated session code collides.
	ErrCodeTaken = errors.New("session code already in use")
)
