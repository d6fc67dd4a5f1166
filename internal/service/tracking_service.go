package service

import (
	"fmt"
	"time"

	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/tracking"
)

// TrackingStatus is the observable state of the tracking pipeline
type TrackingStatus struct {
	Authorization  models.AuthorizationStatus `json:"authorization"`
	Sampling       bool                       `json:"sampling"`
	TrackedPlaceID string                     `json:"trackedPlaceId,omitempty"`
	LastError      string                     `json:"lastError,omitempty"`
}

// TrackingService fronts the sampler and lifecycle coordinator for the HTTP
// surface
type TrackingService struct {
	sampler     *tracking.Sampler
	tracker     *tracking.Tracker
	coordinator *tracking.Coordinator
}

// NewTrackingService creates a new tracking service
func NewTrackingService(sampler *tracking.Sampler, tracker *tracking.Tracker, coordinator *tracking.Coordinator) *TrackingService {
	return &TrackingService{
		sampler:     sampler,
		tracker:     tracker,
		coordinator: coordinator,
	}
}

// OfferFix feeds a device-reported fix into the pipeline
func (s *TrackingService) OfferFix(req models.FixRequest) {
	t := time.Now()
	if req.Time > 0 {
		t = time.Unix(req.Time, 0)
	}
	s.sampler.Offer(models.Fix{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Time:      t,
	})
}

// ReportAuthorization records the device's permission state
func (s *TrackingService) ReportAuthorization(status models.AuthorizationStatus) error {
	if err := s.sampler.ReportAuthorization(status); err != nil {
		return err
	}
	// Sampling resumes only through an explicit start or foreground event;
	// a denial stops delivery immediately via the sampler's auth gate.
	return nil
}

// HandleLifecycleEvent dispatches a device lifecycle transition
func (s *TrackingService) HandleLifecycleEvent(event string) error {
	switch event {
	case "background":
		s.coordinator.EnterBackground()
	case "foreground":
		s.coordinator.EnterForeground()
	default:
		return fmt.Errorf("unknown lifecycle event: %s", event)
	}
	return nil
}

// Status returns the current pipeline state
func (s *TrackingService) Status() TrackingStatus {
	status := TrackingStatus{
		Authorization: s.sampler.Authorization(),
		Sampling:      s.sampler.Running(),
	}
	if id, ok := s.tracker.CurrentPlaceID(); ok {
		status.TrackedPlaceID = id
	}
	if err := s.sampler.LastError(); err != nil {
		status.LastError = err.Error()
	}
	return status
}

// Start enables continuous sampling
func (s *TrackingService) Start() {
	s.sampler.Start()
}

// Stop disables sampling and flushes the open session
func (s *TrackingService) Stop() {
	s.coordinator.Shutdown()
}
