package models

// PlaceType classifies how a place record came to exist
type PlaceType string

const (
	// PlaceTypeLocation is an auto- or manually-created GPS point
	PlaceTypeLocation PlaceType = "location"
	// PlaceTypePlace is a user-curated place
	PlaceTypePlace PlaceType = "place"
	// PlaceTypeUnset marks photo-imported places
	PlaceTypeUnset PlaceType = ""
)

// Place represents a persisted point of interest with accumulated stay duration
type Place struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	PlaceType    PlaceType `json:"placeType" db:"place_type"`
	StayDuration int64     `json:"stayDuration" db:"stay_duration"` // Accumulated seconds across all visit sessions
	VisitDate    int64     `json:"visitDate" db:"visit_date"`       // Unix timestamp of first creation
	PhotoAssetID string    `json:"photoAssetId,omitempty" db:"photo_asset_id"`

	// Metadata
	CreatedAt string `json:"createdAt,omitempty" db:"created_at"`
	UpdatedAt string `json:"updatedAt,omitempty" db:"updated_at"`
}

// PlacesResponse represents a paginated response of places
type PlacesResponse struct {
	Data       []Place `json:"data"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}

// PlaceFilter represents filter parameters for querying places
type PlaceFilter struct {
	PlaceType   string `form:"placeType"`
	MinDuration int64  `form:"minDuration"` // Minimum stay duration in seconds
	StartTime   int64  `form:"startTime"`   // Earliest visit date, Unix timestamp
	EndTime     int64  `form:"endTime"`     // Latest visit date, Unix timestamp
	Page        int    `form:"page"`
	PageSize    int    `form:"pageSize"`
}

// CreatePlaceRequest is the payload for manually saving a place
type CreatePlaceRequest struct {
	Name      string  `json:"name" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// RenamePlaceRequest is the payload for renaming a place
type RenamePlaceRequest struct {
	Name string `json:"name" binding:"required"`
}
