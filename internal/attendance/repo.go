package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists sessions and attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `session_id, class_id, status, code, start_time, end_time, latitude, longitude, radius_m`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.ClassID, &s.Status, &s.Code, &s.StartTime, &s.EndTime, &s.Latitude, &s.Longitude, &s.RadiusM)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// InsertActiveSession inserts a new ACTIVE session. The partial unique
// index on (class_id) WHERE status='ACTIVE' makes the open operation
// atomic: when another ACTIVE session already exists the insert is a no-op
// and (nil, nil) is returned. A collision on the generated code surfaces
// as ErrCodeTaken so the caller can regenerate.
func (r *Repository) InsertActiveSession(ctx context.Context, classID int64, code string, g *Geofence) (*Session, error) {
	var lat, lon, rad *float64
	if g != nil {
		lat, lon, rad = &g.Latitude, &g.Longitude, &g.RadiusM
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (class_id, status, code, start_time, latitude, longitude, radius_m)
		VALUES ($1, 'ACTIVE', $2, NOW(), $3, $4, $5)
		ON CONFLICT (class_id) WHERE status = 'ACTIVE' DO NOTHING
		RETURNING `+sessionColumns, classID, code, lat, lon, rad)
	s, err := scanSession(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrCodeTaken
		}
		return nil, err
	}
	return s, nil
}

// ActiveSessionByClass returns the ACTIVE session for a class, or nil.
func (r *Repository) ActiveSessionByClass(ctx context.Context, classID int64) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance_sessions
		WHERE class_id = $1 AND status = 'ACTIVE'
		ORDER BY start_time DESC
		LIMIT 1`, classID)
	return scanSession(row)
}

// ActiveSessionByCode returns the ACTIVE session carrying the code, or nil.
func (r *Repository) ActiveSessionByCode(ctx context.Context, code string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance_sessions
		WHERE code = $1 AND status = 'ACTIVE'
		LIMIT 1`, code)
	return scanSession(row)
}

// SessionByID returns a session regardless of status, or nil.
func (r *Repository) SessionByID(ctx context.Context, sessionID int64) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance_sessions
		WHERE session_id = $1`, sessionID)
	return scanSession(row)
}

// CloseSession synthesizes ABSENT records for every enrolled student
// without one, then marks the session CLOSED, inside one transaction.
// The synthesis must run first so a submission racing the close cannot
// land against a closed session without a record.
func (r *Repository) CloseSession(ctx context.Context, classID, sessionID int64) (*Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_records (session_id, student_id, status, marked_at)
		SELECT $1, ce.student_id, 'ABSENT', NOW()
		FROM class_enrollments ce
		WHERE ce.class_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM attendance_records ar
			WHERE ar.session_id = $1 AND ar.student_id = ce.student_id
		  )
		ON CONFLICT (session_id, student_id) DO NOTHING`, sessionID, classID)
	if err != nil {
		return nil, fmt.Errorf("synthesize absences: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE attendance_sessions
		SET status = 'CLOSED', end_time = NOW()
		WHERE session_id = $1 AND class_id = $2 AND status = 'ACTIVE'
		RETURNING `+sessionColumns, sessionID, classID)
	s, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, tx.Commit()
}

// UpsertRecord writes the record for (session, student) as one atomic
// statement; calling it twice leaves a single row with the latest status.
// Returns whether a row already existed (xmax is nonzero for updated rows).
func (r *Repository) UpsertRecord(ctx context.Context, sessionID, studentID int64, status string) (bool, error) {
	var existed bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (session_id, student_id, status, marked_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (session_id, student_id)
		DO UPDATE SET status = EXCLUDED.status, marked_at = NOW()
		RETURNING (xmax <> 0)`, sessionID, studentID, status).Scan(&existed)
	return existed, err
}

// IsEnrolled reports whether the student has an enrollment in the class.
func (r *Repository) IsEnrolled(ctx context.Context, studentID, classID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM class_enrollments
		WHERE student_id = $1 AND class_id = $2`, studentID, classID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ActiveSessionsByFaculty lists ACTIVE sessions across a faculty's classes.
func (r *Repository) ActiveSessionsByFaculty(ctx context.Context, facultyID int64) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.session_id, s.class_id, s.status, s.code, s.start_time, s.end_time, s.latitude, s.longitude, s.radius_m
		FROM attendance_sessions s
		JOIN classes c ON s.class_id = c.class_id
		WHERE c.faculty_id = $1 AND s.status = 'ACTIVE'
		ORDER BY s.start_time DESC`, facultyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.ClassID, &s.Status, &s.Code, &s.StartTime, &s.EndTime, &s.Latitude, &s.Longitude, &s.RadiusM); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// SessionsByClassOnDate lists a class's sessions started on a calendar day.
func (r *Repository) SessionsByClassOnDate(ctx context.Context, classID int64, date string) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM attendance_sessions
		WHERE class_id = $1 AND start_time::date = $2::date
		ORDER BY start_time ASC`, classID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.ClassID, &s.Status, &s.Code, &s.StartTime, &s.EndTime, &s.Latitude, &s.Longitude, &s.RadiusM); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// SessionRoster returns every enrolled student's status for a session;
// students without a record are reported ABSENT with a null marked_at.
func (r *Repository) SessionRoster(ctx context.Context, sessionID int64) ([]RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ce.student_id, u.name, ce.roll_number, ce.section,
		       COALESCE(ar.status, 'ABSENT'), ar.marked_at
		FROM class_enrollments ce
		JOIN attendance_sessions s ON s.class_id = ce.class_id
		JOIN users u ON ce.student_id = u.user_id
		LEFT JOIN attendance_records ar
		       ON ar.session_id = s.session_id AND ar.student_id = ce.student_id
		WHERE s.session_id = $1
		ORDER BY ce.roll_number, u.name`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []RosterEntry
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(&e.StudentID, &e.StudentName, &e.RollNumber, &e.Section, &e.Status, &e.MarkedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// StudentHistory lists a student's outcomes over a class's finished sessions.
func (r *Repository) StudentHistory(ctx context.Context, classID, studentID int64) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.session_id, s.start_time, ar.status, ar.marked_at
		FROM attendance_sessions s
		LEFT JOIN attendance_records ar
		       ON s.session_id = ar.session_id AND ar.student_id = $2
		WHERE s.class_id = $1 AND s.status != 'ACTIVE'
		ORDER BY s.start_time DESC`, classID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.SessionID, &e.StartTime, &e.Status, &e.MarkedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// StudentPercentage returns a student's overall attendance rate, or nil
// when no records exist.
func (r *Repository) StudentPercentage(ctx context.Context, studentID int64) (*StudentPercentage, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT u.user_id, u.name,
		       COUNT(CASE WHEN ar.status = 'PRESENT' THEN 1 END) * 100.0 / COUNT(*)
		FROM attendance_records ar
		JOIN users u ON ar.student_id = u.user_id
		WHERE u.user_id = $1
		GROUP BY u.user_id, u.name`, studentID)
	var p StudentPercentage
	if err := row.Scan(&p.StudentID, &p.Name, &p.Percentage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// StudentsBelowThreshold lists students in a class whose attendance rate
// is under the threshold percentage.
func (r *Repository) StudentsBelowThreshold(ctx context.Context, classID int64, threshold float64) ([]StudentPercentage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, ce.roll_number,
		       COUNT(CASE WHEN ar.status = 'PRESENT' THEN 1 END) * 100.0 / COUNT(*) AS pct
		FROM attendance_records ar
		JOIN attendance_sessions s ON ar.session_id = s.session_id
		JOIN users u ON ar.student_id = u.user_id
		JOIN class_enrollments ce ON ce.class_id = s.class_id AND ce.student_id = u.user_id
		WHERE s.class_id = $1
		GROUP BY u.user_id, u.name, ce.roll_number
		HAVING COUNT(CASE WHEN ar.status = 'PRESENT' THEN 1 END) * 100.0 / COUNT(*) < $2
		ORDER BY pct ASC`, classID, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []StudentPercentage
	for rows.Next() {
		var p StudentPercentage
		if err := rows.Scan(&p.StudentID, &p.Name, &p.RollNumber, &p.Percentage); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
