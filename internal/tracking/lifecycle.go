package tracking

import (
	"context"

	"go.uber.org/zap"
)

// Coordinator connects the sampler, detector and tracker, and translates app
// lifecycle transitions into tracker operations
type Coordinator struct {
	sampler  *Sampler
	detector *Detector
	tracker  *Tracker
	logger   *zap.Logger
}

// NewCoordinator wires the pipeline
func NewCoordinator(sampler *Sampler, detector *Detector, tracker *Tracker, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		sampler:  sampler,
		detector: detector,
		tracker:  tracker,
		logger:   logger.Named("lifecycle"),
	}
}

// Run pumps sampler fixes through the detector into the tracker until ctx is
// cancelled. This is the single consumer of the fix stream, so state
// transitions stay serialized.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-c.sampler.Fixes():
			if !ok {
				return
			}
			change := c.detector.Observe(fix)
			if err := c.tracker.HandleChange(change); err != nil {
				c.logger.Warn("change handling failed", zap.Error(err))
			}
		}
	}
}

// EnterBackground flushes the open session while preserving it. When
// background sampling is not allowed the sampler stops and the detector
// baseline resets, so the first fix after foregrounding re-seeds cleanly.
func (c *Coordinator) EnterBackground() {
	c.tracker.EnterBackground()

	if !c.sampler.Config().AllowBackground {
		c.sampler.Stop()
		c.detector.Reset()
	}
	c.logger.Info("entered background")
}

// EnterForeground credits the offline interval, restarts sampling when
// authorized, and re-adopts a nearby place when no session survived the
// restart.
func (c *Coordinator) EnterForeground() {
	c.tracker.EnterForeground()

	if !c.sampler.Running() && c.sampler.Authorization().Authorized() {
		c.sampler.Start()
	}

	if _, tracking := c.tracker.CurrentPlaceID(); !tracking {
		if fix, ok := c.sampler.LastFix(); ok {
			if err := c.tracker.ReAdopt(fix.Latitude, fix.Longitude); err != nil {
				c.logger.Warn("re-adopt failed", zap.Error(err))
			}
		}
	}
	c.logger.Info("entered foreground")
}

// Shutdown stops monitoring with a final flush of any open session
func (c *Coordinator) Shutdown() {
	c.sampler.Stop()
	c.detector.Reset()
	if err := c.tracker.Stop(false); err != nil {
		c.logger.Warn("final flush failed", zap.Error(err))
	}
}
