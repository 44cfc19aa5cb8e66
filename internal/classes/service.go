package classes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rollcall/internal/code"
)

var (
	// ErrClassNotFound means no class matches the given identifiers.
	ErrClassNotFound = errors.New("class not found")
	// ErrDuplicateName means the faculty already owns a class by that name.
	ErrDuplicateName = errors.New("class name already in use")
	// ErrInvalidJoinCode means no class carries the submitted join code.
	ErrInvalidJoinCode = errors.New("invalid join code")
	// ErrJoinCodeTaken is returned by the store when a join code collides.
	ErrJoinCodeTaken = errors.New("join code already in use")
)

// maxSectionLen bounds the free-form section label.
const maxSectionLen = 50

// Store is the persistence surface the service needs.
type Store interface {
	NameExists(ctx context.Context, facultyID int64, name string) (bool, error)
	Insert(ctx context.Context, facultyID int64, name, joinCode string) (*Class, error)
	ByJoinCode(ctx context.Context, joinCode string) (*Class, error)
	Enroll(ctx context.Context, classID, studentID int64, rollNumber string, section *string) (bool, error)
}

// Service handles class creation and enrollment.
type Service struct {
	store   Store
	codeLen int
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store, codeLen: 6}
}

const codeAttempts = 5

// Create makes a new class owned by the faculty. When joinCode is empty a
// fresh one is generated; collisions regenerate up to codeAttempts times.
func (s *Service) Create(ctx context.Context, facultyID int64, name, joinCode string) (*Class, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("class name required")
	}
	exists, err := s.store.NameExists(ctx, facultyID, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateName
	}

	supplied := joinCode != ""
	for i := 0; i < codeAttempts; i++ {
		if !supplied || i > 0 {
			joinCode = code.Generate(s.codeLen)
		}
		c, err := s.store.Insert(ctx, facultyID, name, joinCode)
		if errors.Is(err, ErrJoinCodeTaken) {
			continue
		}
		return c, err
	}
	return nil, fmt.Errorf("create class %q: %w", name, ErrJoinCodeTaken)
}

// JoinResult reports the class joined and whether the student was already
// enrolled (duplicate joins are no-ops, not conflicts).
type JoinResult struct {
	Class           *Class
	AlreadyEnrolled bool
}

// Join enrolls a student via a class join code.
func (s *Service) Join(ctx context.Context, joinCode string, studentID int64, rollNumber string, section string) (JoinResult, error) {
	c, err := s.store.ByJoinCode(ctx, strings.ToUpper(strings.TrimSpace(joinCode)))
	if err != nil {
		return JoinResult{}, err
	}
	if c == nil {
		return JoinResult{}, ErrInvalidJoinCode
	}

	var sectionPtr *string
	if trimmed := strings.TrimSpace(section); trimmed != "" {
		if len(trimmed) > maxSectionLen {
			trimmed = trimmed[:maxSectionLen]
		}
		sectionPtr = &trimmed
	}

	inserted, err := s.store.Enroll(ctx, c.ID, studentID, strings.TrimSpace(rollNumber), sectionPtr)
	if err != nil {
		return JoinResult{}, err
	}
	return JoinResult{Class: c, AlreadyEnrolled: !inserted}, nil
}
