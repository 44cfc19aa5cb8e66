package attendance

import (
	"context"
	"errors"
	"fmt"

	"rollcall/internal/code"
)

// Store is the persistence surface the service needs; *Repository
// implements it, tests substitute a fake.
type Store interface {
	InsertActiveSession(ctx context.Context, classID int64, code string, g *Geofence) (*Session, error)
	ActiveSessionByClass(ctx context.Context, classID int64) (*Session, error)
	ActiveSessionByCode(ctx context.Context, code string) (*Session, error)
	SessionByID(ctx context.Context, sessionID int64) (*Session, error)
	CloseSession(ctx context.Context, classID, sessionID int64) (*Session, error)
	UpsertRecord(ctx context.Context, sessionID, studentID int64, status string) (bool, error)
	IsEnrolled(ctx context.Context, studentID, classID int64) (bool, error)
}

// Service coordinates the session lifecycle and attendance submissions.
type Service struct {
	store          Store
	defaultRadiusM float64
	codeLen        int
}

// NewService creates a service backed by a store.
func NewService(store Store, defaultRadiusM float64) *Service {
	if defaultRadiusM <= 0 {
		defaultRadiusM = 50
	}
	return &Service{store: store, defaultRadiusM: defaultRadiusM, codeLen: 6}
}

// codeAttempts bounds regeneration when a generated session code collides.
const codeAttempts = 5

// OpenSession starts an ACTIVE session for the class, or returns the
// already-ACTIVE one unchanged.
func (s *Service) OpenSession(ctx context.Context, classID int64, g *Geofence) (*Session, error) {
	for i := 0; i < codeAttempts; i++ {
		sess, err := s.store.InsertActiveSession(ctx, classID, code.Generate(s.codeLen), g)
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
		// Insert was a no-op: another ACTIVE session holds the class.
		existing, err := s.store.ActiveSessionByClass(ctx, classID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		// The concurrent session closed between our insert and read; retry.
	}
	return nil, fmt.Errorf("open session for class %d: %w", classID, ErrCodeTaken)
}

// CloseSession finalizes a session: absentees are synthesized for every
// enrolled student without a record, then the session becomes CLOSED.
func (s *Service) CloseSession(ctx context.Context, classID, sessionID int64) (*Session, error) {
	return s.store.CloseSession(ctx, classID, sessionID)
}

// SubmitResult is the outcome of a student attendance submission.
type SubmitResult struct {
	SessionID    int64
	ClassID      int64
	Status       string
	Distance     *float64
	Message      string
	WithinRadius bool
}

// Submit records attendance for the student against the ACTIVE session
// carrying the code, evaluating the session geofence when one is set.
func (s *Service) Submit(ctx context.Context, attendanceCode string, studentID int64, lat, lon, accuracy *float64) (SubmitResult, error) {
	sess, err := s.store.ActiveSessionByCode(ctx, attendanceCode)
	if err != nil {
		return SubmitResult{}, err
	}
	if sess == nil {
		return SubmitResult{}, ErrInvalidCode
	}

	enrolled, err := s.store.IsEnrolled(ctx, studentID, sess.ClassID)
	if err != nil {
		return SubmitResult{}, err
	}
	if !enrolled {
		return SubmitResult{}, ErrNotEnrolled
	}

	decision, err := Decide(sess, lat, lon, accuracy, s.defaultRadiusM)
	if err != nil {
		return SubmitResult{}, err
	}

	if _, err := s.store.UpsertRecord(ctx, sess.ID, studentID, decision.Status); err != nil {
		return SubmitResult{}, err
	}

	msg := "attendance marked as " + decision.Status
	if decision.Message != "" {
		msg += " - " + decision.Message
	}
	return SubmitResult{
		SessionID:    sess.ID,
		ClassID:      sess.ClassID,
		Status:       decision.Status,
		Distance:     decision.Distance,
		Message:      msg,
		WithinRadius: decision.Status == StatusPresent,
	}, nil
}

// ManualMark lets faculty set a student's status for a session directly.
func (s *Service) ManualMark(ctx context.Context, sessionID, studentID int64, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	sess, err := s.store.SessionByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	_, err = s.store.UpsertRecord(ctx, sessionID, studentID, status)
	return err
}
