package tracking

import (
	"sync"

	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/spatial"
)

// DefaultMonitoringDistance is the significant-change threshold in meters
const DefaultMonitoringDistance = 50.0

// haversine is the great-circle distance used throughout the tracking core
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	return spatial.HaversineDistance(lat1, lon1, lat2, lon2)
}

// Detector turns the raw fix stream into significant-change events. It holds
// exactly one baseline fix: the first fix after a (re)start seeds the
// downstream tracker with distance 0, fixes at or beyond the monitoring
// distance emit their distance and move the baseline, and closer fixes emit
// a distance-0 "still here" confirmation without moving the baseline. The
// still-here events are deliberate: they let the tracker refresh the current
// session without re-triggering place search.
type Detector struct {
	mu                 sync.Mutex
	monitoringDistance float64
	last               *models.Fix
}

// NewDetector creates a detector. distance <= 0 selects the default.
func NewDetector(distance float64) *Detector {
	if distance <= 0 {
		distance = DefaultMonitoringDistance
	}
	return &Detector{monitoringDistance: distance}
}

// MonitoringDistance returns the current threshold
func (d *Detector) MonitoringDistance() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.monitoringDistance
}

// SetMonitoringDistance updates the threshold. The last-emitted baseline is
// not touched.
func (d *Detector) SetMonitoringDistance(distance float64) {
	if distance <= 0 {
		return
	}
	d.mu.Lock()
	d.monitoringDistance = distance
	d.mu.Unlock()
}

// Observe processes one fix and returns the resulting change event. Every
// fix produces an event; suppression happens upstream in the sampler.
func (d *Detector) Observe(fix models.Fix) models.SignificantChange {
	d.mu.Lock()
	defer d.mu.Unlock()

	change := models.SignificantChange{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Time:      fix.Time,
	}

	if d.last == nil {
		d.last = &fix
		return change
	}

	dist := haversine(d.last.Latitude, d.last.Longitude, fix.Latitude, fix.Longitude)
	if dist >= d.monitoringDistance {
		change.Distance = dist
		d.last = &fix
	}
	return change
}

// Reset clears the baseline. The next observed fix seeds the tracker again.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.last = nil
	d.mu.Unlock()
}
