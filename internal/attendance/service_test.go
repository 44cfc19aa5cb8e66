package attendance

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordKey struct {
	sessionID, studentID int64
}

// fakeStore mimics the repository contract in memory.
type fakeStore struct {
	sessions    map[int64]*Session
	records     map[recordKey]string
	enrollments map[int64][]int64 // classID -> studentIDs
	nextID      int64
	takenCodes  map[string]bool
	inserts     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:    map[int64]*Session{},
		records:     map[recordKey]string{},
		enrollments: map[int64][]int64{},
		takenCodes:  map[string]bool{},
		nextID:      1,
	}
}

func (f *fakeStore) InsertActiveSession(_ context.Context, classID int64, c string, g *Geofence) (*Session, error) {
	f.inserts++
	if f.takenCodes[c] {
		return nil, ErrCodeTaken
	}
	for _, s := range f.sessions {
		if s.ClassID == classID && s.Status == SessionActive {
			return nil, nil
		}
	}
	s := &Session{ID: f.nextID, ClassID: classID, Status: SessionActive, Code: c, StartTime: time.Now()}
	if g != nil {
		s.Latitude, s.Longitude, s.RadiusM = &g.Latitude, &g.Longitude, &g.RadiusM
	}
	f.nextID++
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) ActiveSessionByClass(_ context.Context, classID int64) (*Session, error) {
	for _, s := range f.sessions {
		if s.ClassID == classID && s.Status == SessionActive {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ActiveSessionByCode(_ context.Context, c string) (*Session, error) {
	for _, s := range f.sessions {
		if s.Code == c && s.Status == SessionActive {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SessionByID(_ context.Context, id int64) (*Session, error) {
	return f.sessions[id], nil
}

func (f *fakeStore) CloseSession(_ context.Context, classID, sessionID int64) (*Session, error) {
	s, ok := f.sessions[sessionID]
	if !ok || s.ClassID != classID || s.Status != SessionActive {
		return nil, ErrSessionNotFound
	}
	for _, studentID := range f.enrollments[classID] {
		k := recordKey{sessionID, studentID}
		if _, ok := f.records[k]; !ok {
			f.records[k] = StatusAbsent
		}
	}
	now := time.Now()
	s.Status = SessionClosed
	s.EndTime = &now
	return s, nil
}

func (f *fakeStore) UpsertRecord(_ context.Context, sessionID, studentID int64, status string) (bool, error) {
	k := recordKey{sessionID, studentID}
	_, existed := f.records[k]
	f.records[k] = status
	return existed, nil
}

func (f *fakeStore) IsEnrolled(_ context.Context, studentID, classID int64) (bool, error) {
	for _, id := range f.enrollments[classID] {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

func openGeofenced(t *testing.T, svc *Service, classID int64) *Session {
	t.Helper()
	sess, err := svc.OpenSession(context.Background(), classID, &Geofence{Latitude: 12.9716, Longitude: 77.5946, RadiusM: 50})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	return sess
}

func TestOpenSessionIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 50)

	first := openGeofenced(t, svc, 1)
	second, err := svc.OpenSession(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if second.ID != first.ID || second.Code != first.Code {
		t.Errorf("second open returned a different session: %+v vs %+v", second, first)
	}
	if len(store.sessions) != 1 {
		t.Errorf("expected a single session, have %d", len(store.sessions))
	}
}

func TestOpenSessionRetriesOnCodeCollision(t *testing.T) {
	collideOnce := &collidingStore{fakeStore: newFakeStore(), collisions: 1}
	svc := NewService(collideOnce, 50)

	sess, err := svc.OpenSession(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if sess == nil || sess.Code == "" {
		t.Fatalf("expected a session with a code after retry")
	}
	if collideOnce.inserts != 2 {
		t.Errorf("expected 2 insert attempts, got %d", collideOnce.inserts)
	}
}

type collidingStore struct {
	*fakeStore
	collisions int
}

func (c *collidingStore) InsertActiveSession(ctx context.Context, classID int64, code string, g *Geofence) (*Session, error) {
	if c.collisions > 0 {
		c.collisions--
		c.inserts++
		return nil, ErrCodeTaken
	}
	return c.fakeStore.InsertActiveSession(ctx, classID, code, g)
}

func TestSubmitInvalidCode(t *testing.T) {
	svc := NewService(newFakeStore(), 50)
	_, err := svc.Submit(context.Background(), "NOPE42", 7, nil, nil, nil)
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
}

func TestSubmitNotEnrolled(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 50)
	sess := openGeofenced(t, svc, 1)

	_, err := svc.Submit(context.Background(), sess.Code, 7, f(12.9716), f(77.5946), nil)
	if !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("err = %v, want ErrNotEnrolled", err)
	}
	if len(store.records) != 0 {
		t.Errorf("no record should be written for an unenrolled student")
	}
}

func TestSubmitLocationRequiredWritesNothing(t *testing.T) {
	store := newFakeStore()
	store.enrollments[1] = []int64{7}
	svc := NewService(store, 50)
	sess := openGeofenced(t, svc, 1)

	_, err := svc.Submit(context.Background(), sess.Code, 7, nil, nil, nil)
	if !errors.Is(err, ErrLocationRequired) {
		t.Fatalf("err = %v, want ErrLocationRequired", err)
	}
	if len(store.records) != 0 {
		t.Errorf("no record should be written when location is missing")
	}
}

func TestSubmitPresentWithinGeofence(t *testing.T) {
	store := newFakeStore()
	store.enrollments[1] = []int64{7}
	svc := NewService(store, 50)
	sess := openGeofenced(t, svc, 1)

	res, err := svc.Submit(context.Background(), sess.Code, 7, f(12.9716), f(77.5950), f(10))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status != StatusPresent || !res.WithinRadius {
		t.Errorf("status = %s withinRadius = %v, want PRESENT within radius", res.Status, res.WithinRadius)
	}
	if res.Distance == nil {
		t.Error("expected a distance in the result")
	}
	if store.records[recordKey{sess.ID, 7}] != StatusPresent {
		t.Errorf("stored record = %q, want PRESENT", store.records[recordKey{sess.ID, 7}])
	}
}

func TestSubmitAbsentOutsideGeofence(t *testing.T) {
	store := newFakeStore()
	store.enrollments[1] = []int64{7}
	svc := NewService(store, 50)
	sess := openGeofenced(t, svc, 1)

	res, err := svc.Submit(context.Background(), sess.Code, 7, f(12.9716), f(77.5992), f(5))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status != StatusAbsent || res.WithinRadius {
		t.Errorf("status = %s, want ABSENT outside radius", res.Status)
	}
	if store.records[recordKey{sess.ID, 7}] != StatusAbsent {
		t.Errorf("stored record = %q, want ABSENT", store.records[recordKey{sess.ID, 7}])
	}
}

func TestSubmitNoGeofenceAlwaysPresent(t *testing.T) {
	store := newFakeStore()
	store.enrollments[1] = []int64{7}
	svc := NewService(store, 50)
	sess, err := svc.OpenSession(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	res, err := svc.Submit(context.Background(), sess.Code, 7, nil, nil, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status != StatusPresent {
		t.Errorf("status = %s, want PRESENT without geofence", res.Status)
	}
}

func TestSubmitTwiceLeavesOneRecord(t *testing.T) {
	store := newFakeStore()
	store.enrollments[1] = []int64{7}
	svc := NewService(store, 50)
	sess := openGeofenced(t, svc, 1)

	for i := 0; i < 2; i++ {
		if _, err := svc.Submit(context.Background(), sess.Code, 7, f(12.9716), f(77.5950), f(10)); err != nil {
			t.Fatalf("Submit #%d: %v", i+1, err)
		}
	}
	if len(store.records) != 1 {
		t.Errorf("expected exactly one record after duplicate submission, have %d", len(store.records))
	}
	if store.records[recordKey{sess.ID, 7}] != StatusPresent {
		t.Errorf("record status = %q, want latest PRESENT", store.records[recordKey{sess.ID, 7}])
	}
}

func TestCloseSessionSynthesizesAbsences(t *testing.T) {
	store := newFakeStore()
	store.enrollments[1] = []int64{7, 8, 9, 10}
	svc := NewService(store, 50)
	sess := openGeofenced(t, svc, 1)

	// One student submits; three never do.
	if _, err := svc.Submit(context.Background(), sess.Code, 7, f(12.9716), f(77.5950), f(10)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	closed, err := svc.CloseSession(context.Background(), 1, sess.ID)
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if closed.Status != SessionClosed || closed.EndTime == nil {
		t.Errorf("session not finalized: %+v", closed)
	}
	for _, studentID := range store.enrollments[1] {
		status, ok := store.records[recordKey{sess.ID, studentID}]
		if !ok {
			t.Errorf("student %d has no record after close", studentID)
			continue
		}
		want := StatusAbsent
		if studentID == 7 {
			want = StatusPresent
		}
		if status != want {
			t.Errorf("student %d status = %s, want %s", studentID, status, want)
		}
	}
}

func TestCloseSessionNotFound(t *testing.T) {
	svc := NewService(newFakeStore(), 50)
	_, err := svc.CloseSession(context.Background(), 1, 99)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestManualMark(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 50)
	sess := openGeofenced(t, svc, 1)

	if err := svc.ManualMark(context.Background(), sess.ID, 7, "MAYBE"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
	if err := svc.ManualMark(context.Background(), 999, 7, StatusLate); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if err := svc.ManualMark(context.Background(), sess.ID, 7, StatusLate); err != nil {
		t.Fatalf("ManualMark: %v", err)
	}
	if store.records[recordKey{sess.ID, 7}] != StatusLate {
		t.Errorf("record = %q, want LATE", store.records[recordKey{sess.ID, 7}])
	}
}
