package attendance

import (
	"fmt"

	"rollcall/internal/geo"
)

// maxAccuracyBufferM caps how much device-reported GPS accuracy widens the
// geofence, so a spoofed low-accuracy reading cannot blow the radius open.
const maxAccuracyBufferM = 100

// Decision is the outcome of evaluating a submission against a session's
// geofence.
type Decision struct {
	Status          string
	Distance        *float64
	EffectiveRadius float64
	Message         string
}

// Decide evaluates a student's reported position against the session
// geofence. Sessions without a geofence accept every submission as PRESENT.
// defaultRadiusM applies when the session stores a location but no radius.
func Decide(s *Session, lat, lon, accuracy *float64, defaultRadiusM float64) (Decision, error) {
	if s.Latitude == nil || s.Longitude == nil {
		return Decision{Status: StatusPresent}, nil
	}
	if lat == nil || lon == nil {
		return Decision{}, ErrLocationRequired
	}

	radius := defaultRadiusM
	if s.RadiusM != nil {
		radius = *s.RadiusM
	}

	var buffer float64
	if accuracy != nil {
		buffer = *accuracy
		if buffer > maxAccuracyBufferM {
			buffer = maxAccuracyBufferM
		}
	}
	effective := radius + buffer

	dist := geo.Distance(*s.Latitude, *s.Longitude, *lat, *lon)
	d := Decision{Distance: &dist, EffectiveRadius: effective}
	if dist > effective {
		d.Status = StatusAbsent
		d.Message = fmt.Sprintf("outside zone (distance %.0fm, allowed %.0fm)", dist, effective)
	} else {
		d.Status = StatusPresent
		d.Message = fmt.Sprintf("within zone (%.0fm)", dist)
	}
	return d, nil
}
