package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Camera types recognized by the pipeline. Anything else in the YAML is a
// startup error: a typo here silently breaks downstream alert routing.
var validCameraTypes = map[string]bool{
	"entrance":     true,
	"face_capture": true,
	"tracking":     true,
	"billing":      true,
	"vehicle":      true,
}

// Camera describes one configured stream source.
type Camera struct {
	ID         string `yaml:"id"`
	Type       string `yaml:"type"`
	RTSPURL    string `yaml:"rtsp_url"`
	Resolution []int  `yaml:"resolution"` // [width, height]
	TargetFPS  int    `yaml:"target_fps"`
}

// LoadCameras reads the per-deployment camera file. Cameras without an
// explicit target_fps fall back to defaultFPS (the TARGET_FPS env).
// Misconfiguration is fatal at startup only; after boot no camera-file
// error can kill a service.
func LoadCameras(path string, defaultFPS int) ([]Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera config: %w", err)
	}

	var raw struct {
		Cameras []Camera `yaml:"cameras"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse camera config: %w", err)
	}
	if len(raw.Cameras) == 0 {
		return nil, fmt.Errorf("camera config %s declares no cameras", path)
	}

	seen := make(map[string]bool, len(raw.Cameras))
	for i := range raw.Cameras {
		c := &raw.Cameras[i]
		if c.ID == "" {
			return nil, fmt.Errorf("camera %d: missing id", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("camera %s: duplicate id", c.ID)
		}
		seen[c.ID] = true
		if !validCameraTypes[c.Type] {
			return nil, fmt.Errorf("camera %s: unknown type %q", c.ID, c.Type)
		}
		if c.RTSPURL == "" {
			return nil, fmt.Errorf("camera %s: missing rtsp_url", c.ID)
		}
		if c.TargetFPS <= 0 {
			c.TargetFPS = defaultFPS
		}
	}
	return raw.Cameras, nil
}
