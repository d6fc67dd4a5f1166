package service

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/events"
	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/repository"
	"github.com/jengzang/places-backend-go/internal/stats"
)

// topPlacesLimit caps the ranked list in the summary
const topPlacesLimit = 10

// StatsSummary is the travel summary computed from the finalized place set
type StatsSummary struct {
	TotalPlaces       int64          `json:"totalPlaces"`
	PlacesByType      map[string]int `json:"placesByType"`
	TotalStayDuration int64          `json:"totalStayDuration"` // Seconds
	MedianStay        float64        `json:"medianStay"`
	P90Stay           float64        `json:"p90Stay"`
	FirstVisit        int64          `json:"firstVisit,omitempty"`
	LastVisit         int64          `json:"lastVisit,omitempty"`
	TopPlaces         []models.Place `json:"topPlaces"`
}

// StatsService computes travel statistics downstream of the tracker. It
// reads the finalized place list only, never tracker state, and invalidates
// its cache when the place set changes.
type StatsService struct {
	repo   *repository.PlaceRepository
	bus    *events.Bus
	logger *zap.Logger

	mu     sync.Mutex
	cached *StatsSummary
}

// NewStatsService creates a new stats service. bus may be nil; without it
// the summary is recomputed on every request.
func NewStatsService(repo *repository.PlaceRepository, bus *events.Bus, logger *zap.Logger) *StatsService {
	return &StatsService{
		repo:   repo,
		bus:    bus,
		logger: logger.Named("stats"),
	}
}

// Watch invalidates the cached summary whenever places change, until ctx is
// cancelled
func (s *StatsService) Watch(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}

	msgs, err := s.bus.Subscribe(ctx, events.TopicPlacesChanged)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			s.mu.Lock()
			s.cached = nil
			s.mu.Unlock()
			msg.Ack()
		}
	}()
	return nil
}

// Summary returns the travel summary, computing it when the cache is cold
func (s *StatsService) Summary() (*StatsSummary, error) {
	s.mu.Lock()
	if s.cached != nil {
		summary := *s.cached
		s.mu.Unlock()
		return &summary, nil
	}
	s.mu.Unlock()

	places, err := s.repo.FetchAll()
	if err != nil {
		return nil, err
	}

	summary := computeSummary(places)

	s.mu.Lock()
	s.cached = summary
	s.mu.Unlock()
	return summary, nil
}

func computeSummary(places []models.Place) *StatsSummary {
	summary := &StatsSummary{
		TotalPlaces:  int64(len(places)),
		PlacesByType: make(map[string]int),
		TopPlaces:    []models.Place{},
	}

	durations := make([]float64, 0, len(places))
	for _, p := range places {
		key := string(p.PlaceType)
		if key == "" {
			key = "photo"
		}
		summary.PlacesByType[key]++
		summary.TotalStayDuration += p.StayDuration
		durations = append(durations, float64(p.StayDuration))

		if summary.FirstVisit == 0 || p.VisitDate < summary.FirstVisit {
			summary.FirstVisit = p.VisitDate
		}
		if p.VisitDate > summary.LastVisit {
			summary.LastVisit = p.VisitDate
		}
	}

	summary.MedianStay = stats.Median(durations)
	summary.P90Stay = stats.Percentile(durations, 90)

	ranked := make([]models.Place, len(places))
	copy(ranked, places)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].StayDuration > ranked[j].StayDuration
	})
	if len(ranked) > topPlacesLimit {
		ranked = ranked[:topPlacesLimit]
	}
	summary.TopPlaces = ranked

	return summary
}
