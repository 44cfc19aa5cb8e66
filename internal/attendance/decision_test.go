package attendance

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func f(v float64) *float64 { return &v }

func geofencedSession(radius float64) *Session {
	return &Session{
		ID:        1,
		ClassID:   1,
		Status:    SessionActive,
		Latitude:  f(12.9716),
		Longitude: f(77.5946),
		RadiusM:   f(radius),
	}
}

func TestDecideNoGeofenceAlwaysPresent(t *testing.T) {
	s := &Session{ID: 1, ClassID: 1, Status: SessionActive}

	// With or without a reported location, the outcome is PRESENT.
	for _, loc := range [][2]*float64{{nil, nil}, {f(48.8566), f(2.3522)}} {
		d, err := Decide(s, loc[0], loc[1], nil, 50)
		if err != nil {
			t.Fatalf("Decide: %v", err)
		}
		if d.Status != StatusPresent {
			t.Errorf("status = %s, want PRESENT", d.Status)
		}
		if d.Distance != nil {
			t.Errorf("distance should not be reported without a geofence")
		}
	}
}

func TestDecideLocationRequired(t *testing.T) {
	s := geofencedSession(50)
	_, err := Decide(s, nil, nil, nil, 50)
	if !errors.Is(err, ErrLocationRequired) {
		t.Fatalf("err = %v, want ErrLocationRequired", err)
	}
	// One coordinate alone is not a location either.
	_, err = Decide(s, f(12.9716), nil, nil, 50)
	if !errors.Is(err, ErrLocationRequired) {
		t.Fatalf("err = %v, want ErrLocationRequired", err)
	}
}

func TestDecideWithinEffectiveRadius(t *testing.T) {
	// ~44m east of center, radius 50m, accuracy 10m -> effective 60m.
	s := geofencedSession(50)
	d, err := Decide(s, f(12.9716), f(77.5950), f(10), 50)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Status != StatusPresent {
		t.Errorf("status = %s, want PRESENT", d.Status)
	}
	if d.EffectiveRadius != 60 {
		t.Errorf("effective radius = %f, want 60", d.EffectiveRadius)
	}
	if d.Distance == nil || math.Abs(*d.Distance-44) > 2 {
		t.Errorf("distance = %v, want ~44", d.Distance)
	}
	if !strings.Contains(d.Message, "within zone") {
		t.Errorf("message = %q, want within-zone rationale", d.Message)
	}
}

func TestDecideOutsideEffectiveRadius(t *testing.T) {
	// ~500m away, radius 50m, accuracy 5m -> effective 55m.
	s := geofencedSession(50)
	d, err := Decide(s, f(12.9716), f(77.5992), f(5), 50)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Status != StatusAbsent {
		t.Errorf("status = %s, want ABSENT", d.Status)
	}
	if d.EffectiveRadius != 55 {
		t.Errorf("effective radius = %f, want 55", d.EffectiveRadius)
	}
	if d.Distance == nil || *d.Distance < 400 || *d.Distance > 600 {
		t.Errorf("distance = %v, want ~500", d.Distance)
	}
	if !strings.Contains(d.Message, "outside zone") || !strings.Contains(d.Message, "allowed 55m") {
		t.Errorf("message = %q, want outside-zone rationale with allowed radius", d.Message)
	}
}

func TestDecideAccuracyBufferCapped(t *testing.T) {
	// Reported accuracy of 5km must only credit 100m.
	s := geofencedSession(50)
	d, err := Decide(s, f(12.9716), f(77.5992), f(5000), 50)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.EffectiveRadius != 150 {
		t.Errorf("effective radius = %f, want 150", d.EffectiveRadius)
	}
	if d.Status != StatusAbsent {
		t.Errorf("status = %s, want ABSENT despite huge claimed accuracy", d.Status)
	}
}

func TestDecideBoundaryIsPresent(t *testing.T) {
	// Exactly on the effective radius counts as PRESENT (<=, not <).
	s := geofencedSession(50)
	d, err := Decide(s, f(12.9716), f(77.5946), nil, 50)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Status != StatusPresent || *d.Distance != 0 {
		t.Errorf("at center: status=%s distance=%v, want PRESENT at 0", d.Status, d.Distance)
	}
}

func TestDecideDefaultRadius(t *testing.T) {
	// Session with a location but NULL radius falls back to the default.
	s := geofencedSession(0)
	s.RadiusM = nil
	d, err := Decide(s, f(12.9716), f(77.5950), nil, 50)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.EffectiveRadius != 50 {
		t.Errorf("effective radius = %f, want default 50", d.EffectiveRadius)
	}
	if d.Status != StatusPresent {
		t.Errorf("status = %s, want PRESENT at ~44m with 50m default", d.Status)
	}
}
