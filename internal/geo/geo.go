// Package geo implements the spherical-earth geometry used by the pick
// harvesting and zoning stages: great-circle separation, azimuths, and
// geographic bounding boxes.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusKm is the mean earth radius used for distance conversions.
const EarthRadiusKm = 6371.0

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Delta returns the great-circle separation between two points in degrees,
// computed with the haversine formula.
func Delta(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return degrees(2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a)))
}

// DeltaKm returns the great-circle separation between two points in kilometres.
func DeltaKm(lat1, lon1, lat2, lon2 float64) float64 {
	return radians(Delta(lat1, lon1, lat2, lon2)) * EarthRadiusKm
}

// Azimuth returns the initial bearing from point 1 to point 2 in degrees,
// normalized to [0, 360).
func Azimuth(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dLambda := radians(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	return math.Mod(degrees(math.Atan2(y, x))+360, 360)
}

// BackAzimuth returns the initial bearing from point 2 back to point 1.
func BackAzimuth(lat1, lon1, lat2, lon2 float64) float64 {
	return Azimuth(lat2, lon2, lat1, lon1)
}

// NormalizeLon maps a longitude to the range [-180, 180).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// BoundingBox is a latitude/longitude rectangle. A box whose normalized
// MinLon is greater than its normalized MaxLon spans the antimeridian.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// ParseBounds parses a whitespace-separated "minLat minLon maxLat maxLon"
// string into a validated BoundingBox.
func ParseBounds(s string) (BoundingBox, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return BoundingBox{}, fmt.Errorf("bounds %q: want 4 values (minLat minLon maxLat maxLon), got %d", s, len(fields))
	}

	vals := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bounds %q: %w", s, err)
		}
		vals[i] = v
	}

	box := BoundingBox{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}
	if err := box.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return box, nil
}

// Validate reports whether the box describes a usable region.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinLat, b.MinLon, b.MaxLat, b.MaxLon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bounds contain a non-finite value")
		}
	}
	if b.MinLat < -90 || b.MinLat > 90 || b.MaxLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("latitude bounds [%v, %v] outside [-90, 90]", b.MinLat, b.MaxLat)
	}
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("minimum latitude %v exceeds maximum latitude %v", b.MinLat, b.MaxLat)
	}
	if b.MinLon < -360 || b.MinLon > 360 || b.MaxLon < -360 || b.MaxLon > 360 {
		return fmt.Errorf("longitude bounds [%v, %v] outside [-360, 360]", b.MinLon, b.MaxLon)
	}
	return nil
}

// Contains reports whether the point lies inside the box, inclusive of the
// edges. Longitudes are normalized before the comparison, so boxes given in
// 0..360 convention work against -180..180 data and vice versa. Points with
// NaN coordinates are never contained.
func (b BoundingBox) Contains(lat, lon float64) bool {
	if !(lat >= b.MinLat && lat <= b.MaxLat) {
		return false
	}

	minLon := NormalizeLon(b.MinLon)
	maxLon := NormalizeLon(b.MaxLon)
	lon = NormalizeLon(lon)
	if math.IsNaN(lon) {
		return false
	}

	if minLon <= maxLon {
		return lon >= minLon && lon <= maxLon
	}
	// Box wraps the antimeridian.
	return lon >= minLon || lon <= maxLon
}
