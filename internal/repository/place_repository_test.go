package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/database"
	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/spatial"
)

func newTestRepo(t *testing.T) *PlaceRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path: filepath.Join(t.TempDir(), "places.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrationManager(db, zap.NewNop()).RunMigrations())

	return NewPlaceRepository(db, nil, zap.NewNop())
}

func seedPlace(t *testing.T, repo *PlaceRepository, name string, lat, lon float64, pt models.PlaceType, visitDate int64) *models.Place {
	t.Helper()
	p := &models.Place{
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		PlaceType: pt,
		VisitDate: visitDate,
	}
	require.NoError(t, repo.Create(p))
	return p
}

func TestCreateAssignsIDAndRoundTrips(t *testing.T) {
	repo := newTestRepo(t)

	p := seedPlace(t, repo, "咖啡店", 22.54, 114.06, models.PlaceTypePlace, 1700000000)
	require.NotEmpty(t, p.ID)

	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "咖啡店", got.Name)
	assert.Equal(t, 22.54, got.Latitude)
	assert.Equal(t, models.PlaceTypePlace, got.PlaceType)
	assert.Equal(t, int64(1700000000), got.VisitDate)
	assert.Equal(t, int64(0), got.StayDuration)
	assert.NotEmpty(t, got.CreatedAt)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddStayDurationIsAdditive(t *testing.T) {
	repo := newTestRepo(t)
	p := seedPlace(t, repo, "home", 0, 0, models.PlaceTypeLocation, 1000)

	require.NoError(t, repo.AddStayDuration(p.ID, 60))
	require.NoError(t, repo.AddStayDuration(p.ID, 4))
	require.NoError(t, repo.AddStayDuration(p.ID, 0)) // no-op

	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(64), got.StayDuration)
}

func TestAddStayDurationUnknownPlace(t *testing.T) {
	repo := newTestRepo(t)
	assert.ErrorIs(t, repo.AddStayDuration("missing", 10), ErrNotFound)
}

func TestUpdateWritesMutableFields(t *testing.T) {
	repo := newTestRepo(t)
	p := seedPlace(t, repo, "Auto Location (2025-06-01 12:00:00)", 0, 0, models.PlaceTypeLocation, 1000)

	p.Name = "深圳湾公园"
	p.StayDuration = 120
	require.NoError(t, repo.Update(p))

	got, err := repo.GetByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "深圳湾公园", got.Name)
	assert.Equal(t, int64(120), got.StayDuration)

	assert.ErrorIs(t, repo.Update(&models.Place{ID: "missing"}), ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	p := seedPlace(t, repo, "gone", 0, 0, models.PlaceTypeLocation, 1000)

	require.NoError(t, repo.Delete(p.ID))
	_, err := repo.GetByID(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(p.ID), ErrNotFound)
}

func TestFindNearbySortsByDistance(t *testing.T) {
	repo := newTestRepo(t)
	near := seedPlace(t, repo, "near", 0.0001, 0, models.PlaceTypeLocation, 1000) // ~11m
	mid := seedPlace(t, repo, "mid", 0.0003, 0, models.PlaceTypeLocation, 2000)   // ~33m
	seedPlace(t, repo, "far", 0.01, 0, models.PlaceTypeLocation, 3000)            // ~1.1km

	got, err := repo.FindNearby(0, 0, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, near.ID, got[0].ID)
	assert.Equal(t, mid.ID, got[1].ID)
}

func TestFindNearbyRadiusIsStrict(t *testing.T) {
	repo := newTestRepo(t)
	p := seedPlace(t, repo, "edge", 0.0004, 0, models.PlaceTypeLocation, 1000)

	// Query with the place's exact distance as the radius: strictly less
	// than, so the place is not nearby
	d := spatial.HaversineDistance(0, 0, p.Latitude, p.Longitude)

	got, err := repo.FindNearby(0, 0, d)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.FindNearby(0, 0, d+0.001)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListByTypeOrdersByFirstVisit(t *testing.T) {
	repo := newTestRepo(t)
	later := seedPlace(t, repo, "later", 0, 0, models.PlaceTypeLocation, 2000)
	first := seedPlace(t, repo, "first", 1, 1, models.PlaceTypeLocation, 1000)
	seedPlace(t, repo, "curated", 2, 2, models.PlaceTypePlace, 500)

	got, err := repo.ListByType(models.PlaceTypeLocation)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)
}

func TestGetByPhotoAssetID(t *testing.T) {
	repo := newTestRepo(t)
	p := &models.Place{
		Name: "IMG_0042.jpg", Latitude: 1, Longitude: 2,
		PlaceType: models.PlaceTypeUnset, VisitDate: 1000,
		PhotoAssetID: "IMG_0042.jpg",
	}
	require.NoError(t, repo.Create(p))

	got, err := repo.GetByPhotoAssetID("IMG_0042.jpg")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = repo.GetByPhotoAssetID("IMG_9999.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	// The partial unique index rejects a second import of the same asset
	dup := &models.Place{
		Name: "dup", Latitude: 1, Longitude: 2,
		PlaceType: models.PlaceTypeUnset, VisitDate: 1000,
		PhotoAssetID: "IMG_0042.jpg",
	}
	assert.Error(t, repo.Create(dup))

	// Empty asset IDs are exempt from uniqueness
	require.NoError(t, repo.Create(&models.Place{Name: "a", VisitDate: 1}))
	require.NoError(t, repo.Create(&models.Place{Name: "b", VisitDate: 2}))
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo := newTestRepo(t)
	for i := int64(0); i < 5; i++ {
		p := seedPlace(t, repo, "p", 0, 0, models.PlaceTypeLocation, 1000+i)
		require.NoError(t, repo.AddStayDuration(p.ID, (i+1)*10))
	}
	seedPlace(t, repo, "curated", 0, 0, models.PlaceTypePlace, 9000)

	got, total, err := repo.List(models.PlaceFilter{PlaceType: "location"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, got, 5)

	got, total, err = repo.List(models.PlaceFilter{PlaceType: "location", MinDuration: 30})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	got, total, err = repo.List(models.PlaceFilter{
		PlaceType: "location", StartTime: 1001, EndTime: 1003,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	got, total, err = repo.List(models.PlaceFilter{Page: 2, PageSize: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	assert.Len(t, got, 2)
}
