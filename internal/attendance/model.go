package attendance

import "time"

// Session statuses.
const (
	SessionActive = "ACTIVE"
	SessionClosed = "CLOSED"
)

// Record statuses.
const (
	StatusPresent = "PRESENT"
	StatusLate    = "LATE"
	StatusAbsent  = "ABSENT"
)

// Geofence is a circular region a session may require submitters to be in.
type Geofence struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusM   float64 `json:"radius_m"`
}

// Session is a time-boxed attendance window for a class. The geofence
// columns are nullable; a session without them accepts any location.
type Session struct {
	ID        int64      `json:"session_id"`
	ClassID   int64      `json:"class_id"`
	Status    string     `json:"status"`
	Code      string     `json:"code"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	RadiusM   *float64   `json:"radius_m,omitempty"`
}

// Record is the attendance outcome for one (session, student) pair.
type Record struct {
	ID        int64     `json:"record_id"`
	SessionID int64     `json:"session_id"`
	StudentID int64     `json:"student_id"`
	Status    string    `json:"status"`
	MarkedAt  time.Time `json:"marked_at"`
}

// RosterEntry is one enrolled student's status for a session; students
// without a record show as ABSENT with no marked_at.
type RosterEntry struct {
	StudentID   int64      `json:"student_id"`
	StudentName string     `json:"student_name"`
	RollNumber  string     `json:"roll_number"`
	Section     *string    `json:"section,omitempty"`
	Status      string     `json:"status"`
	MarkedAt    *time.Time `json:"marked_at,omitempty"`
}

// HistoryEntry is one past session from a student's point of view.
type HistoryEntry struct {
	SessionID int64      `json:"session_id"`
	StartTime time.Time  `json:"start_time"`
	Status    *string    `json:"status,omitempty"`
	MarkedAt  *time.Time `json:"marked_at,omitempty"`
}

// StudentPercentage is an attendance-rate report row.
type StudentPercentage struct {
	StudentID  int64   `json:"student_id"`
	Name       string  `json:"name"`
	RollNumber string  `json:"roll_number,omitempty"`
	Percentage float64 `json:"attendance_percentage"`
}

// ValidStatus reports whether s is an allowed record status.
func ValidStatus(s string) bool {
	return s == StatusPresent || s == StatusLate || s == StatusAbsent
}
