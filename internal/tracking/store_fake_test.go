package tracking

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/repository"
)

// fakeStore is an in-memory PlaceStore/MergeStore with fault injection
type fakeStore struct {
	mu     sync.Mutex
	places map[string]*models.Place
	seq    int

	failAdds   int   // fail this many AddStayDuration calls
	addErr     error // error returned while failAdds > 0
	failCreate error
	failUpdate error
}

func newFakeStore() *fakeStore {
	return &fakeStore{places: make(map[string]*models.Place)}
}

func (s *fakeStore) addPlace(id string, lat, lon float64, t models.PlaceType, duration, visitDate int64) *models.Place {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Place{
		ID: id, Name: id,
		Latitude: lat, Longitude: lon,
		PlaceType: t, StayDuration: duration, VisitDate: visitDate,
	}
	s.places[id] = p
	return p
}

func (s *fakeStore) get(id string) *models.Place {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.places[id]
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.places)
}

func (s *fakeStore) FindNearby(lat, lon, radiusMeters float64) ([]models.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type candidate struct {
		place    models.Place
		distance float64
	}
	var candidates []candidate
	for _, p := range s.places {
		d := haversine(lat, lon, p.Latitude, p.Longitude)
		if d < radiusMeters {
			candidates = append(candidates, candidate{*p, d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	out := make([]models.Place, len(candidates))
	for i, c := range candidates {
		out[i] = c.place
	}
	return out, nil
}

func (s *fakeStore) Create(p *models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate != nil {
		return s.failCreate
	}
	if p.ID == "" {
		s.seq++
		p.ID = fmt.Sprintf("p%d", s.seq)
	}
	cp := *p
	s.places[p.ID] = &cp
	return nil
}

func (s *fakeStore) AddStayDuration(id string, seconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seconds <= 0 {
		return nil
	}
	if s.failAdds > 0 {
		s.failAdds--
		return s.addErr
	}
	p, ok := s.places[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.StayDuration += seconds
	return nil
}

func (s *fakeStore) ListByType(t models.PlaceType) ([]models.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Place
	for _, p := range s.places {
		if p.PlaceType == t {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VisitDate != out[j].VisitDate {
			return out[i].VisitDate < out[j].VisitDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *fakeStore) Update(p *models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdate != nil {
		return s.failUpdate
	}
	if _, ok := s.places[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	s.places[p.ID] = &cp
	return nil
}

func (s *fakeStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.places[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.places, id)
	return nil
}
