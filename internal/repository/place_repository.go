package repository

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/events"
	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/spatial"
)

const placeColumns = `id, name, latitude, longitude, place_type,
	stay_duration, visit_date, photo_asset_id, created_at, updated_at`

// PlaceRepository handles database operations for places. Every mutation
// notifies the bus so UI and statistics collaborators can refresh.
type PlaceRepository struct {
	db     *sql.DB
	bus    *events.Bus
	logger *zap.Logger
}

// NewPlaceRepository creates a new place repository. bus may be nil.
func NewPlaceRepository(db *sql.DB, bus *events.Bus, logger *zap.Logger) *PlaceRepository {
	return &PlaceRepository{
		db:     db,
		bus:    bus,
		logger: logger.Named("places"),
	}
}

// Create inserts a new place, assigning an ID when the caller left it empty
func (r *PlaceRepository) Create(p *models.Place) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `INSERT INTO places (id, name, latitude, longitude, place_type,
		stay_duration, visit_date, photo_asset_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query, p.ID, p.Name, p.Latitude, p.Longitude,
		string(p.PlaceType), p.StayDuration, p.VisitDate, p.PhotoAssetID)
	if err != nil {
		return persistenceErr("create", err)
	}

	r.notify("create", p.ID)
	return nil
}

// GetByID retrieves a single place by ID
func (r *PlaceRepository) GetByID(id string) (*models.Place, error) {
	query := fmt.Sprintf("SELECT %s FROM places WHERE id = ?", placeColumns)

	var p models.Place
	err := r.db.QueryRow(query, id).Scan(
		&p.ID, &p.Name, &p.Latitude, &p.Longitude, &p.PlaceType,
		&p.StayDuration, &p.VisitDate, &p.PhotoAssetID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceErr("get", err)
	}

	return &p, nil
}

// GetByPhotoAssetID retrieves the place imported from the given photo asset
func (r *PlaceRepository) GetByPhotoAssetID(assetID string) (*models.Place, error) {
	query := fmt.Sprintf("SELECT %s FROM places WHERE photo_asset_id = ?", placeColumns)

	var p models.Place
	err := r.db.QueryRow(query, assetID).Scan(
		&p.ID, &p.Name, &p.Latitude, &p.Longitude, &p.PlaceType,
		&p.StayDuration, &p.VisitDate, &p.PhotoAssetID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistenceErr("get", err)
	}

	return &p, nil
}

// Update writes all mutable fields in a single statement, so concurrent
// readers never observe a partial write
func (r *PlaceRepository) Update(p *models.Place) error {
	query := `UPDATE places SET name = ?, place_type = ?, stay_duration = ?,
		photo_asset_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	res, err := r.db.Exec(query, p.Name, string(p.PlaceType), p.StayDuration,
		p.PhotoAssetID, p.ID)
	if err != nil {
		return persistenceErr("update", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return persistenceErr("update", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.notify("update", p.ID)
	return nil
}

// AddStayDuration atomically adds elapsed seconds to a place's accumulated
// stay duration. Additive by construction: the statement reads and writes in
// one step, so checkpointed flushes never overwrite each other.
func (r *PlaceRepository) AddStayDuration(id string, seconds int64) error {
	if seconds <= 0 {
		return nil
	}

	query := `UPDATE places SET stay_duration = stay_duration + ?,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	res, err := r.db.Exec(query, seconds, id)
	if err != nil {
		return persistenceErr("add stay duration", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return persistenceErr("add stay duration", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.notify("update", id)
	return nil
}

// Delete removes a place by ID
func (r *PlaceRepository) Delete(id string) error {
	res, err := r.db.Exec("DELETE FROM places WHERE id = ?", id)
	if err != nil {
		return persistenceErr("delete", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return persistenceErr("delete", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.notify("delete", id)
	return nil
}

// FindNearby returns places within radiusMeters of the coordinate, sorted
// ascending by distance. The radius check is strict: a place at exactly the
// radius is not nearby. A bounding box prefilters in SQL before the exact
// haversine pass.
func (r *PlaceRepository) FindNearby(lat, lon, radiusMeters float64) ([]models.Place, error) {
	box := spatial.BoundingBoxAround(lat, lon, radiusMeters)

	query := fmt.Sprintf(`SELECT %s FROM places
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`, placeColumns)

	rows, err := r.db.Query(query, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, persistenceErr("find nearby", err)
	}
	defer rows.Close()

	type candidate struct {
		place    models.Place
		distance float64
	}
	var candidates []candidate

	for rows.Next() {
		var p models.Place
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Latitude, &p.Longitude, &p.PlaceType,
			&p.StayDuration, &p.VisitDate, &p.PhotoAssetID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, persistenceErr("find nearby", err)
		}

		d := spatial.HaversineDistance(lat, lon, p.Latitude, p.Longitude)
		if d < radiusMeters {
			candidates = append(candidates, candidate{place: p, distance: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("find nearby", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	places := make([]models.Place, len(candidates))
	for i, c := range candidates {
		places[i] = c.place
	}
	return places, nil
}

// ListByType returns all places of the given type ordered by first visit,
// oldest first. The merge pass relies on this ordering to pick survivors.
func (r *PlaceRepository) ListByType(t models.PlaceType) ([]models.Place, error) {
	query := fmt.Sprintf(`SELECT %s FROM places WHERE place_type = ?
		ORDER BY visit_date ASC, created_at ASC`, placeColumns)

	rows, err := r.db.Query(query, string(t))
	if err != nil {
		return nil, persistenceErr("list by type", err)
	}
	defer rows.Close()

	return scanPlaces(rows)
}

// FetchAll returns every place
func (r *PlaceRepository) FetchAll() ([]models.Place, error) {
	query := fmt.Sprintf("SELECT %s FROM places ORDER BY visit_date DESC", placeColumns)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, persistenceErr("fetch all", err)
	}
	defer rows.Close()

	return scanPlaces(rows)
}

// List retrieves places with filtering and pagination
func (r *PlaceRepository) List(filter models.PlaceFilter) ([]models.Place, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.PlaceType != "" {
		conditions = append(conditions, "place_type = ?")
		args = append(args, filter.PlaceType)
	}
	if filter.MinDuration > 0 {
		conditions = append(conditions, "stay_duration >= ?")
		args = append(args, filter.MinDuration)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "visit_date >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "visit_date <= ?")
		args = append(args, filter.EndTime)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM places"+where, args...).Scan(&total); err != nil {
		return nil, 0, persistenceErr("count places", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}

	offset := (filter.Page - 1) * filter.PageSize
	query := fmt.Sprintf("SELECT %s FROM places%s ORDER BY visit_date DESC LIMIT ? OFFSET ?",
		placeColumns, where)
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, persistenceErr("list places", err)
	}
	defer rows.Close()

	places, err := scanPlaces(rows)
	if err != nil {
		return nil, 0, err
	}

	return places, total, nil
}

func scanPlaces(rows *sql.Rows) ([]models.Place, error) {
	var places []models.Place
	for rows.Next() {
		var p models.Place
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Latitude, &p.Longitude, &p.PlaceType,
			&p.StayDuration, &p.VisitDate, &p.PhotoAssetID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, persistenceErr("scan place", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("scan place", err)
	}
	return places, nil
}

// notify publishes a places-changed event. Fire and forget.
func (r *PlaceRepository) notify(reason string, ids ...string) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.TopicPlacesChanged, events.PlacesChanged{
		Reason:   reason,
		PlaceIDs: ids,
	})
}
