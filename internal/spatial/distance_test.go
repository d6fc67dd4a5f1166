package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// One degree of latitude is ~111.2km on the mean-radius sphere
	d := HaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 1)

	assert.Equal(t, 0.0, HaversineDistance(22.54, 114.06, 22.54, 114.06))

	// Symmetric
	assert.InDelta(t,
		HaversineDistance(22.54, 114.06, 39.90, 116.40),
		HaversineDistance(39.90, 116.40, 22.54, 114.06),
		1e-6)
}

func TestHaversineDistanceKnownCity(t *testing.T) {
	// Shenzhen to Guangzhou, roughly 105km
	d := HaversineDistance(22.5431, 114.0579, 23.1291, 113.2644)
	assert.InDelta(t, 105000, d, 5000)
}

func TestBoundingBoxAroundContainsCircle(t *testing.T) {
	box := BoundingBoxAround(22.54, 114.06, 50)

	// Points 45m away in the four cardinal directions are inside the box
	for _, p := range []Point{
		{Lat: 22.54 + 0.000405, Lon: 114.06},
		{Lat: 22.54 - 0.000405, Lon: 114.06},
		{Lat: 22.54, Lon: 114.06 + 0.000438},
		{Lat: 22.54, Lon: 114.06 - 0.000438},
	} {
		assert.True(t, box.Contains(p.Lat, p.Lon), "point %+v outside box", p)
	}

	assert.False(t, box.Contains(22.55, 114.06))
}

func TestBoundingBoxClampsAtPoles(t *testing.T) {
	box := BoundingBoxAround(89.9999, 0, 50000)

	assert.Equal(t, 90.0, box.MaxLat)
	assert.Equal(t, -180.0, box.MinLon)
	assert.Equal(t, 180.0, box.MaxLon)
}
