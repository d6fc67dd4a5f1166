package models

import "time"

// AuthorizationStatus mirrors the positioning provider's permission state
type AuthorizationStatus string

const (
	AuthorizationNotDetermined AuthorizationStatus = "notDetermined"
	AuthorizationLimited       AuthorizationStatus = "authorizedLimited"
	AuthorizationFull          AuthorizationStatus = "authorizedFull"
	AuthorizationDenied        AuthorizationStatus = "denied"
	AuthorizationRestricted    AuthorizationStatus = "restricted"
)

// Authorized reports whether sampling is permitted in this state
func (s AuthorizationStatus) Authorized() bool {
	return s == AuthorizationLimited || s == AuthorizationFull
}

// Valid reports whether s is one of the known authorization states
func (s AuthorizationStatus) Valid() bool {
	switch s {
	case AuthorizationNotDetermined, AuthorizationLimited, AuthorizationFull,
		AuthorizationDenied, AuthorizationRestricted:
		return true
	}
	return false
}

// Fix represents a raw positioning fix
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"` // Horizontal accuracy in meters
	Time      time.Time `json:"time"`
}

// SignificantChange is a filtered fix emitted by the change detector.
// Distance is 0 for the seeding fix after a (re)start and for "still here"
// confirmations inside the monitoring radius.
type SignificantChange struct {
	Latitude  float64
	Longitude float64
	Distance  float64 // Meters from the last emitted baseline fix
	Time      time.Time
}

// FixRequest is the ingest payload for a raw fix
type FixRequest struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
	Accuracy  float64 `json:"accuracy"`
	Time      int64   `json:"time"` // Unix timestamp in seconds; 0 means "now"
}

// LifecycleEventRequest reports an app lifecycle transition from the device
type LifecycleEventRequest struct {
	Event string `json:"event" binding:"required,oneof=background foreground"`
}

// AuthorizationRequest reports the device's authorization state
type AuthorizationRequest struct {
	Status AuthorizationStatus `json:"status" binding:"required"`
}
