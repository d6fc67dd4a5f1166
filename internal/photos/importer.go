package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"

	"github.com/jengzang/places-backend-go/internal/models"
	"github.com/jengzang/places-backend-go/internal/repository"
)

// ImportStore is the repository surface the importer depends on
type ImportStore interface {
	Create(p *models.Place) error
	GetByPhotoAssetID(assetID string) (*models.Place, error)
}

// Geocoder resolves a coordinate to a display name. It is an external
// collaborator and may be slow or offline; failures are non-fatal and fall
// back to filename naming.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// ImportResult summarizes one import run
type ImportResult struct {
	Scanned  int `json:"scanned"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"` // Already imported or no GPS tag
	Failed   int `json:"failed"`
}

// Importer scans a directory of geotagged photos and creates photo-origin
// places. Re-running an import is idempotent: the photo asset identifier is
// unique per place.
type Importer struct {
	store    ImportStore
	geocoder Geocoder // may be nil
	logger   *zap.Logger

	// decode is swappable in tests; production uses EXIF extraction
	decode func(r io.Reader) (photoMeta, error)
}

type photoMeta struct {
	lat   float64
	lon   float64
	taken time.Time
}

// NewImporter creates an importer. geocoder may be nil.
func NewImporter(store ImportStore, geocoder Geocoder, logger *zap.Logger) *Importer {
	return &Importer{
		store:    store,
		geocoder: geocoder,
		logger:   logger.Named("photoimport"),
		decode:   decodeExif,
	}
}

// ImportDirectory walks dir and imports every geotagged photo not yet known.
// Per-file failures are logged and counted, never fatal.
func (i *Importer) ImportDirectory(ctx context.Context, dir string) (ImportResult, error) {
	var result ImportResult

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !isPhotoFile(path) {
			return nil
		}

		result.Scanned++
		imported, err := i.importFile(ctx, path)
		if err != nil {
			result.Failed++
			i.logger.Warn("photo import failed",
				zap.String("path", path), zap.Error(err))
			return nil
		}
		if imported {
			result.Imported++
		} else {
			result.Skipped++
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to walk photo directory: %w", err)
	}

	i.logger.Info("photo import finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

// importFile imports one photo, reporting whether a place was created
func (i *Importer) importFile(ctx context.Context, path string) (bool, error) {
	assetID := filepath.Base(path)

	if _, err := i.store.GetByPhotoAssetID(assetID); err == nil {
		return false, nil // already imported
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	meta, err := i.decode(f)
	if err != nil {
		if errors.Is(err, errNoGPS) {
			return false, nil // not geotagged, skip quietly
		}
		return false, err
	}

	name := strings.TrimSuffix(assetID, filepath.Ext(assetID))
	if i.geocoder != nil {
		if resolved, err := i.geocoder.ReverseGeocode(ctx, meta.lat, meta.lon); err == nil && resolved != "" {
			name = resolved
		}
	}

	place := &models.Place{
		Name:         name,
		Latitude:     meta.lat,
		Longitude:    meta.lon,
		PlaceType:    models.PlaceTypeUnset,
		VisitDate:    meta.taken.Unix(),
		PhotoAssetID: assetID,
	}
	if err := i.store.Create(place); err != nil {
		return false, err
	}
	return true, nil
}

var errNoGPS = errors.New("photo has no GPS tag")

// decodeExif extracts GPS coordinates and the original timestamp
func decodeExif(r io.Reader) (photoMeta, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return photoMeta{}, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	lat, lon, err := x.LatLong()
	if err != nil {
		return photoMeta{}, errNoGPS
	}

	taken, err := x.DateTime()
	if err != nil {
		taken = time.Now()
	}

	return photoMeta{lat: lat, lon: lon, taken: taken}, nil
}

func isPhotoFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	}
	return false
}
