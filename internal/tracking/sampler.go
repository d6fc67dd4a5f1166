package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/events"
	"github.com/jengzang/places-backend-go/internal/models"
)

// ErrRequestInFlight is returned when a single-update request is already
// waiting for the next fix
var ErrRequestInFlight = errors.New("single location request already in flight")

// SamplerConfig configures the positioning wrapper
type SamplerConfig struct {
	// DistanceFilter is the minimum reporting distance in meters. Fixes
	// closer than this to the last delivered fix are suppressed, mirroring
	// the platform's minimum-distance filtering.
	DistanceFilter float64
	// MaxAccuracy drops fixes with a worse (larger) horizontal accuracy.
	// Zero disables the check.
	MaxAccuracy float64
	// AllowBackground keeps the sampler running across background
	// transitions.
	AllowBackground bool
	// Buffer sizes the fix fan-out channel.
	Buffer int
}

// DefaultSamplerConfig returns the sampler defaults
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		DistanceFilter:  10.0,
		MaxAccuracy:     0,
		AllowBackground: true,
		Buffer:          64,
	}
}

// Sampler wraps the positioning provider. Devices push raw fixes and
// authorization state in; downstream consumers read the filtered fix stream
// from Fixes(). Start/Stop toggle continuous delivery and are idempotent.
type Sampler struct {
	mu sync.Mutex

	cfg    SamplerConfig
	bus    *events.Bus
	logger *zap.Logger

	running    bool
	auth       models.AuthorizationStatus
	lastFix    *models.Fix
	lastErr    error
	requesting bool // reentrancy guard for single-update requests
	single     chan models.Fix

	fixes chan models.Fix
}

// NewSampler creates a sampler. bus may be nil.
func NewSampler(cfg SamplerConfig, bus *events.Bus, logger *zap.Logger) *Sampler {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	return &Sampler{
		cfg:    cfg,
		bus:    bus,
		logger: logger.Named("sampler"),
		auth:   models.AuthorizationNotDetermined,
		fixes:  make(chan models.Fix, cfg.Buffer),
	}
}

// Config returns the sampler configuration
func (s *Sampler) Config() SamplerConfig {
	return s.cfg
}

// Fixes returns the filtered fix stream
func (s *Sampler) Fixes() <-chan models.Fix {
	return s.fixes
}

// Start enables continuous updates. A no-op when already started.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	if !s.auth.Authorized() {
		s.logger.Warn("started without location authorization",
			zap.String("status", string(s.auth)))
	}
	s.logger.Info("continuous updates started",
		zap.Float64("distanceFilter", s.cfg.DistanceFilter))
}

// Stop disables continuous updates. A no-op when already stopped.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.logger.Info("continuous updates stopped")
}

// Running reports whether continuous updates are enabled
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Authorization returns the last reported authorization state
func (s *Sampler) Authorization() models.AuthorizationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// LastFix returns the most recently delivered fix, if any
func (s *Sampler) LastFix() (models.Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFix == nil {
		return models.Fix{}, false
	}
	return *s.lastFix, true
}

// LastError returns the most recent transient sampling failure, if any
func (s *Sampler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// RequestPermission asks the device for location consent. The result is
// observed asynchronously through ReportAuthorization; a determined state is
// never re-requested.
func (s *Sampler) RequestPermission() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.auth != models.AuthorizationNotDetermined {
		return
	}
	s.logger.Info("location permission requested, awaiting device report")
}

// ReportAuthorization records the authorization state reported by the device
// and notifies observers. Denial is an observable state, not an error.
func (s *Sampler) ReportAuthorization(status models.AuthorizationStatus) error {
	if !status.Valid() {
		return errors.New("unknown authorization status: " + string(status))
	}

	s.mu.Lock()
	changed := s.auth != status
	s.auth = status
	s.mu.Unlock()

	if changed {
		s.logger.Info("authorization changed", zap.String("status", string(status)))
		if s.bus != nil {
			s.bus.Publish(events.TopicAuthorizationChanged,
				events.AuthorizationChanged{Status: string(status)})
		}
	}
	return nil
}

// ReportError surfaces a transient sampling failure. The sampler keeps
// listening; no state transition occurs.
func (s *Sampler) ReportError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	s.logger.Warn("transient sample failure", zap.Error(err))
}

// RequestSingleUpdate waits for the next available fix. Only one request may
// be in flight at a time.
func (s *Sampler) RequestSingleUpdate(ctx context.Context) (models.Fix, error) {
	s.mu.Lock()
	if s.requesting {
		s.mu.Unlock()
		return models.Fix{}, ErrRequestInFlight
	}
	s.requesting = true
	s.single = make(chan models.Fix, 1)
	ch := s.single
	s.mu.Unlock()

	select {
	case fix := <-ch:
		return fix, nil
	case <-ctx.Done():
		s.mu.Lock()
		s.requesting = false
		s.single = nil
		s.mu.Unlock()
		return models.Fix{}, ctx.Err()
	}
}

// Offer feeds a raw fix into the sampler. Single-update waiters are served
// first; continuous delivery then applies the accuracy and distance filters.
func (s *Sampler) Offer(fix models.Fix) {
	if fix.Time.IsZero() {
		fix.Time = time.Now()
	}

	s.mu.Lock()

	if s.requesting && s.single != nil {
		s.single <- fix
		s.requesting = false
		s.single = nil
	}

	if !s.running || !s.auth.Authorized() {
		s.mu.Unlock()
		return
	}

	if s.cfg.MaxAccuracy > 0 && fix.Accuracy > s.cfg.MaxAccuracy {
		s.mu.Unlock()
		s.logger.Debug("fix dropped, accuracy above threshold",
			zap.Float64("accuracy", fix.Accuracy))
		return
	}

	if s.lastFix != nil {
		d := haversine(s.lastFix.Latitude, s.lastFix.Longitude, fix.Latitude, fix.Longitude)
		if d < s.cfg.DistanceFilter {
			s.mu.Unlock()
			return
		}
	}

	s.lastFix = &fix

	select {
	case s.fixes <- fix:
	default:
		s.logger.Warn("fix dropped, consumer behind")
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.TopicLocationUpdated, events.LocationUpdated{
			Latitude:  fix.Latitude,
			Longitude: fix.Longitude,
			Time:      fix.Time.Unix(),
		})
	}
}
