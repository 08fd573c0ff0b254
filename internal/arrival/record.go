// Package arrival defines the arrival record that flows between pipeline
// stages and its on-disk CSV form. A record joins one phase pick with the
// origin it was associated to and the station that recorded it.
package arrival

import (
	"time"
)

// Record is a single harvested arrival. Float fields that could not be
// determined are NaN; they survive a round trip through the CSV codec.
type Record struct {
	EventID       string
	OriginTime    time.Time
	Magnitude     float64
	OriginLon     float64
	OriginLat     float64
	OriginDepthKm float64
	Network       string
	Station       string
	Channel       string
	PickTime      time.Time
	Phase         string
	StationLon    float64
	StationLat    float64
	Azimuth       float64
	BackAzimuth   float64
	DistanceDeg   float64
	Residual      float64
	SNR           float64
	Quality       float64
}

// Key identifies the (event, station) pair a record belongs to. Phase
// matching pairs P and S rows that share a key.
type Key struct {
	EventID string
	Network string
	Station string
}

// Key returns the matching key for the record.
func (r Record) Key() Key {
	return Key{EventID: r.EventID, Network: r.Network, Station: r.Station}
}
