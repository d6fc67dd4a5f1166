package service

import (
	"time"

	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/repository"
)

// PlaceService handles business logic for places
type PlaceService struct {
	repo *repository.PlaceRepository
}

// NewPlaceService creates a new place service
func NewPlaceService(repo *repository.PlaceRepository) *PlaceService {
	return &PlaceService{repo: repo}
}

// GetPlaces retrieves places with filtering and pagination
func (s *PlaceService) GetPlaces(filter models.PlaceFilter) ([]models.Place, int64, error) {
	return s.repo.List(filter)
}

// GetPlaceByID retrieves a single place by ID
func (s *PlaceService) GetPlaceByID(id string) (*models.Place, error) {
	return s.repo.GetByID(id)
}

// CreatePlace saves a user-curated place
func (s *PlaceService) CreatePlace(req models.CreatePlaceRequest) (*models.Place, error) {
	place := &models.Place{
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		PlaceType: models.PlaceTypePlace,
		VisitDate: time.Now().Unix(),
	}
	if err := s.repo.Create(place); err != nil {
		return nil, err
	}
	return place, nil
}

// RenamePlace updates a place's display name
func (s *PlaceService) RenamePlace(id, name string) (*models.Place, error) {
	place, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	place.Name = name
	if err := s.repo.Update(place); err != nil {
		return nil, err
	}
	return place, nil
}

// DeletePlace removes a place
func (s *PlaceService) DeletePlace(id string) error {
	return s.repo.Delete(id)
}
