package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMinTravelSeconds applies to camera pairs absent from the matrix.
const DefaultMinTravelSeconds = 3.0

// TravelMatrix holds the per-deployment minimum camera-to-camera travel
// times in seconds, derived from the store floor plan. The matrix is
// usually symmetric but the gate does not require it to be.
type TravelMatrix struct {
	Default float64
	Times   map[string]map[string]float64
}

// MinTravel returns the minimum plausible travel time between two cameras.
func (m *TravelMatrix) MinTravel(from, to string) float64 {
	if row, ok := m.Times[from]; ok {
		if v, ok := row[to]; ok {
			return v
		}
	}
	return m.Default
}

// LoadTravelMatrix reads the travel-time YAML. A missing file is not an
// error: the gate falls back to the default for every pair, which is the
// documented behavior for fresh deployments that have not been calibrated.
func LoadTravelMatrix(path string) (*TravelMatrix, error) {
	m := &TravelMatrix{
		Default: DefaultMinTravelSeconds,
		Times:   map[string]map[string]float64{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read travel matrix: %w", err)
	}

	var raw struct {
		DefaultMinTravelS float64                       `yaml:"default_min_travel_s"`
		TravelTimes       map[string]map[string]float64 `yaml:"travel_times"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse travel matrix: %w", err)
	}

	if raw.DefaultMinTravelS > 0 {
		m.Default = raw.DefaultMinTravelS
	}
	if raw.TravelTimes != nil {
		m.Times = raw.TravelTimes
	}
	return m, nil
}
