package classes

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Class is owned by exactly one faculty member and joined via its code.
type Class struct {
	ID        int64  `json:"class_id"`
	FacultyID int64  `json:"faculty_id"`
	Name      string `json:"class_name"`
	JoinCode  string `json:"join_code"`
}

// Details adds the owning faculty's display name.
type Details struct {
	Class
	FacultyName string `json:"faculty_name"`
}

// EnrolledClass is a class from an enrolled student's point of view.
type EnrolledClass struct {
	ID          int64   `json:"class_id"`
	Name        string  `json:"class_name"`
	JoinCode    string  `json:"join_code"`
	FacultyName string  `json:"faculty_name"`
	RollNumber  string  `json:"roll_number"`
	Section     *string `json:"section,omitempty"`
}

// RosterStudent is one enrolled student in a class roster.
type RosterStudent struct {
	UserID     int64   `json:"user_id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	RollNumber string  `json:"roll_number"`
	Section    *string `json:"section,omitempty"`
}

// Repository persists classes and enrollments in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// NameExists reports whether the faculty already owns a class by that name.
func (r *Repository) NameExists(ctx context.Context, facultyID int64, name string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM classes
		WHERE faculty_id = $1 AND class_name = $2
		LIMIT 1`, facultyID, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert creates a class; a join-code collision surfaces as ErrJoinCodeTaken.
func (r *Repository) Insert(ctx context.Context, facultyID int64, name, joinCode string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (faculty_id, class_name, join_code)
		VALUES ($1, $2, $3)
		RETURNING class_id, faculty_id, class_name, join_code`, facultyID, name, joinCode)
	var c Class
	if err := row.Scan(&c.ID, &c.FacultyID, &c.Name, &c.JoinCode); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrJoinCodeTaken
		}
		return nil, err
	}
	return &c, nil
}

// ListByFaculty returns the classes a faculty member owns.
func (r *Repository) ListByFaculty(ctx context.Context, facultyID int64) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT class_id, faculty_id, class_name, join_code
		FROM classes
		WHERE faculty_id = $1
		ORDER BY class_name`, facultyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.FacultyID, &c.Name, &c.JoinCode); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// Delete removes a class owned by the faculty; enrollments, sessions and
// records go with it through the schema's ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, classID, facultyID int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM classes WHERE class_id = $1 AND faculty_id = $2`, classID, facultyID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrClassNotFound
	}
	return nil
}

// ByID returns class details with the faculty name, or nil.
func (r *Repository) ByID(ctx context.Context, classID int64) (*Details, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT c.class_id, c.faculty_id, c.class_name, c.join_code, u.name
		FROM classes c
		JOIN users u ON c.faculty_id = u.user_id
		WHERE c.class_id = $1`, classID)
	var d Details
	if err := row.Scan(&d.ID, &d.FacultyID, &d.Name, &d.JoinCode, &d.FacultyName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// ByJoinCode resolves a join code to a class, or nil.
func (r *Repository) ByJoinCode(ctx context.Context, joinCode string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT class_id, faculty_id, class_name, join_code
		FROM classes WHERE join_code = $1`, joinCode)
	var c Class
	if err := row.Scan(&c.ID, &c.FacultyID, &c.Name, &c.JoinCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Enroll adds a (student, class) enrollment. Duplicate enrollment is an
// idempotent no-op; the return reports whether a new row was written.
func (r *Repository) Enroll(ctx context.Context, classID, studentID int64, rollNumber string, section *string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO class_enrollments (class_id, student_id, roll_number, section)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (class_id, student_id) DO NOTHING`, classID, studentID, rollNumber, section)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Roster lists a class's enrolled students ordered by roll number.
func (r *Repository) Roster(ctx context.Context, classID int64) ([]RosterStudent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, u.email, ce.roll_number, ce.section
		FROM class_enrollments ce
		JOIN users u ON ce.student_id = u.user_id
		WHERE ce.class_id = $1
		ORDER BY ce.roll_number, u.name`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []RosterStudent
	for rows.Next() {
		var s RosterStudent
		if err := rows.Scan(&s.UserID, &s.Name, &s.Email, &s.RollNumber, &s.Section); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListForStudent returns the classes a student is enrolled in.
func (r *Repository) ListForStudent(ctx context.Context, studentID int64) ([]EnrolledClass, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.class_id, c.class_name, c.join_code, u.name, ce.roll_number, ce.section
		FROM class_enrollments ce
		JOIN classes c ON ce.class_id = c.class_id
		JOIN users u ON c.faculty_id = u.user_id
		WHERE ce.student_id = $1
		ORDER BY c.class_name`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []EnrolledClass
	for rows.Next() {
		var e EnrolledClass
		if err := rows.Scan(&e.ID, &e.Name, &e.JoinCode, &e.FacultyName, &e.RollNumber, &e.Section); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
