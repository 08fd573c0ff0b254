package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelta(t *testing.T) {
	t.Run("one degree along the equator", func(t *testing.T) {
		assert.InDelta(t, 1.0, Delta(0, 0, 0, 1), 1e-9)
	})

	t.Run("pole to pole", func(t *testing.T) {
		assert.InDelta(t, 180.0, Delta(90, 0, -90, 0), 1e-9)
	})

	t.Run("symmetry", func(t *testing.T) {
		d1 := Delta(-20.5, 132.1, 10.2, 110.9)
		d2 := Delta(10.2, 110.9, -20.5, 132.1)
		assert.InDelta(t, d1, d2, 1e-9)
	})

	t.Run("kilometres track degrees", func(t *testing.T) {
		deg := Delta(-25, 133, -30, 140)
		km := DeltaKm(-25, 133, -30, 140)
		assert.InDelta(t, deg*math.Pi/180*EarthRadiusKm, km, 1e-9)
	})
}

func TestAzimuth(t *testing.T) {
	t.Run("due north", func(t *testing.T) {
		assert.InDelta(t, 0.0, Azimuth(0, 0, 10, 0), 1e-9)
	})

	t.Run("due east on the equator", func(t *testing.T) {
		assert.InDelta(t, 90.0, Azimuth(0, 0, 0, 10), 1e-9)
	})

	t.Run("due south", func(t *testing.T) {
		assert.InDelta(t, 180.0, Azimuth(10, 0, 0, 0), 1e-9)
	})

	t.Run("back azimuth reverses the path", func(t *testing.T) {
		az := Azimuth(0, 0, 0, 10)
		baz := BackAzimuth(0, 0, 0, 10)
		assert.InDelta(t, math.Mod(az+180, 360), baz, 1e-9)
	})
}

func TestNormalizeLon(t *testing.T) {
	assert.InDelta(t, -170.0, NormalizeLon(190), 1e-9)
	assert.InDelta(t, -180.0, NormalizeLon(180), 1e-9)
	assert.InDelta(t, 0.0, NormalizeLon(360), 1e-9)
	assert.InDelta(t, 170.0, NormalizeLon(-190), 1e-9)
	assert.InDelta(t, 45.0, NormalizeLon(45), 1e-9)
}

func TestParseBounds(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		box, err := ParseBounds("-54.0 100.0 0.0 160.0")
		require.NoError(t, err)
		assert.Equal(t, BoundingBox{MinLat: -54, MinLon: 100, MaxLat: 0, MaxLon: 160}, box)
	})

	t.Run("wrong field count", func(t *testing.T) {
		_, err := ParseBounds("-54 100 0")
		assert.ErrorContains(t, err, "want 4 values")
	})

	t.Run("non-numeric field", func(t *testing.T) {
		_, err := ParseBounds("-54 100 zero 160")
		assert.Error(t, err)
	})

	t.Run("inverted latitudes", func(t *testing.T) {
		_, err := ParseBounds("10 100 -10 160")
		assert.ErrorContains(t, err, "exceeds maximum latitude")
	})

	t.Run("latitude out of range", func(t *testing.T) {
		_, err := ParseBounds("-95 100 0 160")
		assert.ErrorContains(t, err, "outside [-90, 90]")
	})
}

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{MinLat: -54, MinLon: 100, MaxLat: 0, MaxLon: 160}

	t.Run("inside", func(t *testing.T) {
		assert.True(t, box.Contains(-25.3, 131.0))
	})

	t.Run("edges are inclusive", func(t *testing.T) {
		assert.True(t, box.Contains(0, 160))
		assert.True(t, box.Contains(-54, 100))
	})

	t.Run("outside latitude", func(t *testing.T) {
		assert.False(t, box.Contains(5, 131))
	})

	t.Run("outside longitude", func(t *testing.T) {
		assert.False(t, box.Contains(-25, 80))
	})

	t.Run("0..360 bounds match negative longitudes", func(t *testing.T) {
		wide := BoundingBox{MinLat: -60, MinLon: 100, MaxLat: 10, MaxLon: 190}
		assert.True(t, wide.Contains(-20, -175)) // same point as 185 east
		assert.False(t, wide.Contains(-20, 0))
	})

	t.Run("antimeridian wrap", func(t *testing.T) {
		wrap := BoundingBox{MinLat: -30, MinLon: 170, MaxLat: 0, MaxLon: -170}
		assert.True(t, wrap.Contains(-10, 175))
		assert.True(t, wrap.Contains(-10, -175))
		assert.False(t, wrap.Contains(-10, 0))
	})

	t.Run("nan coordinates are never contained", func(t *testing.T) {
		assert.False(t, box.Contains(math.NaN(), 131))
		assert.False(t, box.Contains(-25, math.NaN()))
	})
}
