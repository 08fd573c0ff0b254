// Package inventory loads station coordinate inventories from YAML. The
// harvesting stage uses it to attach station positions to picks and to
// compute distances and azimuths.
package inventory

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Station is one station's position. ElevationM defaults to zero when the
// inventory does not carry elevations.
type Station struct {
	Network    string
	Code       string
	Latitude   float64
	Longitude  float64
	ElevationM float64
}

// Inventory is an indexed set of stations keyed by network and station code.
type Inventory struct {
	stations map[string]Station
}

type yamlFile struct {
	Networks []yamlNetwork `yaml:"networks"`
}

type yamlNetwork struct {
	Code     string        `yaml:"code"`
	Stations []yamlStation `yaml:"stations"`
}

type yamlStation struct {
	Code       string   `yaml:"code"`
	Latitude   *float64 `yaml:"latitude"`
	Longitude  *float64 `yaml:"longitude"`
	ElevationM float64  `yaml:"elevation_m"`
}

// Load parses an inventory document from r. A station listed more than once
// keeps its last definition.
func Load(r io.Reader) (*Inventory, error) {
	var file yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, err
	}

	inv := &Inventory{stations: make(map[string]Station)}
	for _, net := range file.Networks {
		if net.Code == "" {
			return nil, fmt.Errorf("network with no code")
		}
		for _, sta := range net.Stations {
			if sta.Code == "" {
				return nil, fmt.Errorf("network %s: station with no code", net.Code)
			}
			if sta.Latitude == nil || sta.Longitude == nil {
				return nil, fmt.Errorf("station %s.%s has no coordinates", net.Code, sta.Code)
			}
			inv.stations[key(net.Code, sta.Code)] = Station{
				Network:    net.Code,
				Code:       sta.Code,
				Latitude:   *sta.Latitude,
				Longitude:  *sta.Longitude,
				ElevationM: sta.ElevationM,
			}
		}
	}
	return inv, nil
}

// LoadFile parses the inventory at path.
func LoadFile(path string) (*Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	inv, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading inventory %s: %w", path, err)
	}
	return inv, nil
}

// Lookup returns the station for the given network and station code.
func (inv *Inventory) Lookup(network, station string) (Station, bool) {
	sta, ok := inv.stations[key(network, station)]
	return sta, ok
}

// Len returns the number of stations in the inventory.
func (inv *Inventory) Len() int {
	return len(inv.stations)
}

func key(network, station string) string {
	return network + "." + station
}
