package classes

import (
	"context"
	"errors"
	"testing"
)

type enrollment struct {
	classID, studentID int64
}

type fakeStore struct {
	classes    map[int64]*Class
	byCode     map[string]*Class
	enrolled   map[enrollment]bool
	nextID     int64
	collisions int
	inserts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{classes: map[int64]*Class{}, byCode: map[string]*Class{}, enrolled: map[enrollment]bool{}, nextID: 1}
}

func (f *fakeStore) NameExists(_ context.Context, facultyID int64, name string) (bool, error) {
	for _, c := range f.classes {
		if c.FacultyID == facultyID && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Insert(_ context.Context, facultyID int64, name, joinCode string) (*Class, error) {
	f.inserts++
	if f.collisions > 0 {
		f.collisions--
		return nil, ErrJoinCodeTaken
	}
	if _, ok := f.byCode[joinCode]; ok {
		return nil, ErrJoinCodeTaken
	}
	c := &Class{ID: f.nextID, FacultyID: facultyID, Name: name, JoinCode: joinCode}
	f.nextID++
	f.classes[c.ID] = c
	f.byCode[joinCode] = c
	return c, nil
}

func (f *fakeStore) ByJoinCode(_ context.Context, joinCode string) (*Class, error) {
	return f.byCode[joinCode], nil
}

func (f *fakeStore) Enroll(_ context.Context, classID, studentID int64, _ string, _ *string) (bool, error) {
	k := enrollment{classID, studentID}
	if f.enrolled[k] {
		return false, nil
	}
	f.enrolled[k] = true
	return true, nil
}

func TestCreateClass(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, "Distributed Systems", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(c.JoinCode) != 6 {
		t.Errorf("join code %q, want generated 6-char code", c.JoinCode)
	}

	if _, err := svc.Create(ctx, 1, "Distributed Systems", ""); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
	// Same name under a different faculty is fine.
	if _, err := svc.Create(ctx, 2, "Distributed Systems", ""); err != nil {
		t.Errorf("Create for other faculty: %v", err)
	}
}

func TestCreateClassRetriesJoinCode(t *testing.T) {
	store := newFakeStore()
	store.collisions = 2
	svc := NewService(store)

	c, err := svc.Create(context.Background(), 1, "Algorithms", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if store.inserts != 3 {
		t.Errorf("insert attempts = %d, want 3", store.inserts)
	}
	if c.JoinCode == "" {
		t.Error("expected a join code after retries")
	}
}

func TestJoin(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	c, err := svc.Create(ctx, 1, "Networks", "NETS42")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Join(ctx, "WRONG1", 7, "21CS001", ""); !errors.Is(err, ErrInvalidJoinCode) {
		t.Errorf("err = %v, want ErrInvalidJoinCode", err)
	}

	res, err := svc.Join(ctx, "nets42", 7, "21CS001", "A")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Class.ID != c.ID || res.AlreadyEnrolled {
		t.Errorf("res = %+v, want fresh enrollment into class %d", res, c.ID)
	}

	// Joining again is an idempotent no-op.
	res, err = svc.Join(ctx, "NETS42", 7, "21CS001", "A")
	if err != nil {
		t.Fatalf("Join again: %v", err)
	}
	if !res.AlreadyEnrolled {
		t.Error("second join should report already enrolled")
	}
}
