package tracking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/repository"
)

// MergeStore is the repository surface the merge pass depends on
type MergeStore interface {
	ListByType(t models.PlaceType) ([]models.Place, error)
	Update(p *models.Place) error
	Delete(id string) error
}

// MergerConfig configures the deduplication pass
type MergerConfig struct {
	// Radius is the adjacency rule in meters, identical to the tracker's
	// adoption radius
	Radius float64
	// Interval between passes
	Interval time.Duration
	// InitialDelay before the first pass at process start, letting samples
	// accumulate
	InitialDelay time.Duration
}

// DefaultMergerConfig returns the merger defaults
func DefaultMergerConfig() MergerConfig {
	return MergerConfig{
		Radius:       50.0,
		Interval:     15 * time.Second,
		InitialDelay: 10 * time.Second,
	}
}

// Merger periodically folds near-duplicate auto-created places into one
// canonical record. Auto points accumulate readily when a user lingers near
// a radius boundary; merging bounds storage growth and keeps stay duration
// attributable to a single place.
type Merger struct {
	store  MergeStore
	logger *zap.Logger
	cfg    MergerConfig
}

// NewMerger creates a merger over the given store
func NewMerger(store MergeStore, cfg MergerConfig, logger *zap.Logger) *Merger {
	if cfg.Radius <= 0 {
		cfg.Radius = 50.0
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	return &Merger{
		store:  store,
		logger: logger.Named("merger"),
		cfg:    cfg,
	}
}

// Run executes the pass once after the initial delay and then on every
// interval until ctx is cancelled
func (m *Merger) Run(ctx context.Context) {
	if m.cfg.InitialDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.InitialDelay):
		}
	}

	if _, err := m.MergeOnce(); err != nil {
		m.logger.Error("merge pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.MergeOnce(); err != nil {
				m.logger.Error("merge pass failed", zap.Error(err))
			}
		}
	}
}

// MergeOnce runs a single deduplication pass and returns the number of
// places folded away.
//
// Clustering is a single greedy forward pass: each unabsorbed place becomes
// a cluster representative and absorbs every later place within the radius
// of the representative itself. Chains of points that are pairwise adjacent
// but farther than the radius from the representative stay split until a
// later pass brings representatives within range.
func (m *Merger) MergeOnce() (int, error) {
	places, err := m.store.ListByType(models.PlaceTypeLocation)
	if err != nil {
		return 0, err
	}

	merged := 0
	absorbed := make([]bool, len(places))

	for i := range places {
		if absorbed[i] {
			continue
		}

		// places is ordered by first visit, so the representative is the
		// cluster's earliest member and survives the merge
		survivor := places[i]
		var donors []models.Place

		for j := i + 1; j < len(places); j++ {
			if absorbed[j] {
				continue
			}
			d := haversine(survivor.Latitude, survivor.Longitude,
				places[j].Latitude, places[j].Longitude)
			if d < m.cfg.Radius {
				donors = append(donors, places[j])
				absorbed[j] = true
			}
		}

		if len(donors) == 0 {
			continue
		}

		total := survivor.StayDuration
		for _, donor := range donors {
			total += donor.StayDuration
		}
		survivor.StayDuration = total

		if err := m.store.Update(&survivor); err != nil {
			// Leave the donors in place; nothing is lost and the next pass
			// retries the cluster
			m.logger.Error("survivor update failed, skipping cluster",
				zap.String("placeId", survivor.ID), zap.Error(err))
			for _, donor := range donors {
				for j := range places {
					if places[j].ID == donor.ID {
						absorbed[j] = false
					}
				}
			}
			continue
		}

		for _, donor := range donors {
			if err := m.store.Delete(donor.ID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					continue
				}
				// Best-effort cleanup; the duplicate is retried next pass
				m.logger.Warn("donor delete failed",
					zap.String("placeId", donor.ID), zap.Error(err))
				continue
			}
			merged++
		}

		m.logger.Info("merged duplicate places",
			zap.String("survivor", survivor.ID),
			zap.Int("donors", len(donors)),
			zap.Int64("stayDuration", total))
	}

	return merged, nil
}
