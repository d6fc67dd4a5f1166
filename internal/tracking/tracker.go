package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/repository"
)

// PlaceStore is the repository surface the tracker depends on
type PlaceStore interface {
	FindNearby(lat, lon, radiusMeters float64) ([]models.Place, error)
	Create(p *models.Place) error
	AddStayDuration(id string, seconds int64) error
}

// TrackerConfig configures the visit tracker
type TrackerConfig struct {
	// NearbyRadius is the strict place-adoption radius in meters. It equals
	// the merge radius so duplicate creation stays bounded.
	NearbyRadius float64
	// CheckpointInterval is how often the open session re-flushes its
	// elapsed time, so a crash loses at most one interval.
	CheckpointInterval time.Duration
	// Clock supplies the current time for checkpoints and lifecycle events
	Clock func() time.Time
}

// DefaultTrackerConfig returns the tracker defaults
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		NearbyRadius:       50.0,
		CheckpointInterval: time.Second,
		Clock:              time.Now,
	}
}

// session is the in-memory visit interval. At most one is open at a time.
type session struct {
	placeID string
	lat     float64
	lon     float64
	entry   time.Time
}

// Tracker is the visit-tracking state machine: Idle, or Tracking one place
// with an entry time. All transitions serialize behind one mutex, so a
// checkpoint tick and an incoming change can never interleave and
// double-count a flush.
type Tracker struct {
	mu sync.Mutex

	store  PlaceStore
	logger *zap.Logger
	cfg    TrackerConfig

	current      *session
	pending      map[string]int64 // unflushed seconds awaiting a retried write
	backgroundAt time.Time
}

// NewTracker creates a tracker over the given store
func NewTracker(store PlaceStore, cfg TrackerConfig, logger *zap.Logger) *Tracker {
	if cfg.NearbyRadius <= 0 {
		cfg.NearbyRadius = 50.0
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Tracker{
		store:   store,
		logger:  logger.Named("tracker"),
		cfg:     cfg,
		pending: make(map[string]int64),
	}
}

// CurrentPlaceID returns the tracked place, if a session is open
func (t *Tracker) CurrentPlaceID() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return "", false
	}
	return t.current.placeID, true
}

// HandleChange drives the state machine with one significant-change event
func (t *Tracker) HandleChange(c models.SignificantChange) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := c.Time
	if now.IsZero() {
		now = t.cfg.Clock()
	}

	t.drainPendingLocked()

	// Idle: the seeding event adopts a nearby place or creates one
	if t.current == nil {
		return t.adoptOrCreateLocked(c.Latitude, c.Longitude, now)
	}

	// Still here: checkpoint the open session and re-arm it
	if c.Distance == 0 {
		return t.flushLocked(now)
	}

	places, err := t.store.FindNearby(c.Latitude, c.Longitude, t.cfg.NearbyRadius)
	if err != nil {
		// No transition without a nearby answer; the session stays intact
		t.logger.Error("nearby search failed", zap.Error(err))
		return err
	}

	if len(places) > 0 && places[0].ID == t.current.placeID {
		// Moved, but still nearest to the tracked place
		return t.flushLocked(now)
	}

	// Leaving: settle the old place before the new entry time becomes
	// authoritative. A failed write moves the elapsed seconds to the pending
	// queue rather than losing them.
	t.flushForTransitionLocked(now)

	if len(places) > 0 {
		nearest := places[0]
		t.current = &session{
			placeID: nearest.ID,
			lat:     nearest.Latitude,
			lon:     nearest.Longitude,
			entry:   now,
		}
		return nil
	}

	return t.createAndTrackLocked(c.Latitude, c.Longitude, now)
}

// Checkpoint flushes the open session and retries pending credits. Invoked
// by the checkpoint ticker.
func (t *Tracker) Checkpoint() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.drainPendingLocked()
	return t.flushLocked(t.cfg.Clock())
}

// RunCheckpoints re-flushes the open session on the configured interval
// until ctx is cancelled
func (t *Tracker) RunCheckpoints(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.CheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Checkpoint(); err != nil {
				t.logger.Warn("checkpoint flush failed, will retry", zap.Error(err))
			}
		}
	}
}

// EnterBackground flushes the open session and records the background entry
// time. The session itself is preserved so the same visit resumes on
// foreground.
func (t *Tracker) EnterBackground() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.cfg.Clock()
	if err := t.flushLocked(now); err != nil {
		t.logger.Warn("pre-background flush failed", zap.Error(err))
	}
	t.backgroundAt = now
}

// EnterForeground credits the whole background interval to the tracked place
// as continued presence and re-arms the session. The offline credit is a
// simplifying assumption, not a GPS-confirmed fact.
func (t *Tracker) EnterForeground() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.cfg.Clock()
	if !t.backgroundAt.IsZero() && t.current != nil {
		offline := int64(now.Sub(t.backgroundAt) / time.Second)
		if offline > 0 {
			if err := t.store.AddStayDuration(t.current.placeID, offline); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					t.retargetLocked(now, offline)
				} else {
					t.pending[t.current.placeID] += offline
					t.logger.Warn("offline credit deferred", zap.Error(err))
				}
			}
		}
		if t.current != nil {
			t.current.entry = now
		}
	}
	t.backgroundAt = time.Time{}
}

// ReAdopt tries to resume tracking at a known coordinate after a restart.
// Only an existing nearby place is adopted; nothing is created, so a
// relaunch never spawns a duplicate.
func (t *Tracker) ReAdopt(lat, lon float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		return nil
	}

	places, err := t.store.FindNearby(lat, lon, t.cfg.NearbyRadius)
	if err != nil {
		return fmt.Errorf("re-adopt search failed: %w", err)
	}
	if len(places) == 0 {
		return nil
	}

	nearest := places[0]
	t.current = &session{
		placeID: nearest.ID,
		lat:     nearest.Latitude,
		lon:     nearest.Longitude,
		entry:   t.cfg.Clock(),
	}
	t.logger.Info("re-adopted nearby place", zap.String("placeId", nearest.ID))
	return nil
}

// Stop ends tracking. Unless preserve is set (a temporary pause expecting to
// resume the same session), the open session is flushed and cleared.
func (t *Tracker) Stop(preserve bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if preserve {
		return nil
	}

	t.drainPendingLocked()
	err := t.flushLocked(t.cfg.Clock())
	t.current = nil
	return err
}

// adoptOrCreateLocked seeds an idle tracker at the coordinate
func (t *Tracker) adoptOrCreateLocked(lat, lon float64, now time.Time) error {
	places, err := t.store.FindNearby(lat, lon, t.cfg.NearbyRadius)
	if err != nil {
		t.logger.Error("nearby search failed", zap.Error(err))
		return err
	}

	if len(places) > 0 {
		nearest := places[0]
		t.current = &session{
			placeID: nearest.ID,
			lat:     nearest.Latitude,
			lon:     nearest.Longitude,
			entry:   now,
		}
		return nil
	}

	return t.createAndTrackLocked(lat, lon, now)
}

// createAndTrackLocked persists a fresh auto place and opens a session on it
func (t *Tracker) createAndTrackLocked(lat, lon float64, now time.Time) error {
	place := &models.Place{
		Name:      fmt.Sprintf("Auto Location (%s)", now.Format("2006-01-02 15:04:05")),
		Latitude:  lat,
		Longitude: lon,
		PlaceType: models.PlaceTypeLocation,
		VisitDate: now.Unix(),
	}

	if err := t.store.Create(place); err != nil {
		t.logger.Error("auto place creation failed", zap.Error(err))
		return err
	}

	t.current = &session{placeID: place.ID, lat: lat, lon: lon, entry: now}
	t.logger.Info("auto place created",
		zap.String("placeId", place.ID),
		zap.Float64("lat", lat),
		zap.Float64("lon", lon))
	return nil
}

// flushLocked adds the session's elapsed whole seconds to the tracked
// place's stay duration. entryTime only advances after the write succeeds:
// on failure the same interval is retried by the next checkpoint, so no
// accumulated time is lost. Sub-second remainders stay in the session.
func (t *Tracker) flushLocked(now time.Time) error {
	if t.current == nil {
		return nil
	}

	elapsed := int64(now.Sub(t.current.entry) / time.Second)
	if elapsed <= 0 {
		return nil
	}

	if err := t.store.AddStayDuration(t.current.placeID, elapsed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			t.retargetLocked(now, elapsed)
			return nil
		}
		return err
	}

	t.current.entry = t.current.entry.Add(time.Duration(elapsed) * time.Second)
	return nil
}

// flushForTransitionLocked settles the old session when leaving a place. A
// transition cannot wait on a retry, so failed credits go to the pending
// queue, drained on every later change and checkpoint.
func (t *Tracker) flushForTransitionLocked(now time.Time) {
	if t.current == nil {
		return
	}

	elapsed := int64(now.Sub(t.current.entry) / time.Second)
	if elapsed <= 0 {
		return
	}

	if err := t.store.AddStayDuration(t.current.placeID, elapsed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			t.retargetLocked(now, elapsed)
			return
		}
		t.pending[t.current.placeID] += elapsed
		t.logger.Warn("transition flush deferred",
			zap.String("placeId", t.current.placeID),
			zap.Int64("seconds", elapsed),
			zap.Error(err))
	}
}

// retargetLocked handles a flush against a place the merge pass deleted
// mid-session: the credit goes to the nearest surviving place at the session
// coordinate, and the session follows it. With no survivor the credit is
// dropped; everything flushed before the merge already lives on the
// survivor.
func (t *Tracker) retargetLocked(now time.Time, elapsed int64) {
	if t.current == nil {
		return
	}

	places, err := t.store.FindNearby(t.current.lat, t.current.lon, t.cfg.NearbyRadius)
	if err != nil || len(places) == 0 {
		t.logger.Warn("tracked place vanished, dropping unflushed credit",
			zap.String("placeId", t.current.placeID),
			zap.Int64("seconds", elapsed))
		t.current = nil
		return
	}

	survivor := places[0]
	if err := t.store.AddStayDuration(survivor.ID, elapsed); err != nil {
		t.pending[survivor.ID] += elapsed
	}

	t.current.placeID = survivor.ID
	t.current.lat = survivor.Latitude
	t.current.lon = survivor.Longitude
	t.current.entry = t.current.entry.Add(time.Duration(elapsed) * time.Second)
	t.logger.Info("session retargeted to merge survivor",
		zap.String("placeId", survivor.ID))
}

// drainPendingLocked retries credits deferred by earlier write failures
func (t *Tracker) drainPendingLocked() {
	for id, seconds := range t.pending {
		err := t.store.AddStayDuration(id, seconds)
		if err == nil || errors.Is(err, repository.ErrNotFound) {
			delete(t.pending, id)
			continue
		}
		// Still failing; keep for the next drain
	}
}
