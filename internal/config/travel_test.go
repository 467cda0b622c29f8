package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "travel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTravelMatrix_MissingFileUsesDefaults(t *testing.T) {
	m, err := LoadTravelMatrix(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMinTravelSeconds, m.MinTravel("cam-a", "cam-b"))
}

func TestLoadTravelMatrix_LookupAndFallback(t *testing.T) {
	path := writeFile(t, `
default_min_travel_s: 5.0
travel_times:
  cam-entrance:
    cam-billing: 12.5
`)
	m, err := LoadTravelMatrix(path)
	require.NoError(t, err)

	assert.Equal(t, 12.5, m.MinTravel("cam-entrance", "cam-billing"))
	// Reverse direction is not declared, falls back to the default.
	assert.Equal(t, 5.0, m.MinTravel("cam-billing", "cam-entrance"))
	assert.Equal(t, 5.0, m.MinTravel("cam-x", "cam-y"))
}

func TestLoadTravelMatrix_MalformedYAML(t *testing.T) {
	path := writeFile(t, "travel_times: [not a map")
	_, err := LoadTravelMatrix(path)
	assert.Error(t, err)
}

func TestLoadCameras_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "valid",
			yaml: `
cameras:
  - id: cam-1
    type: entrance
    rtsp_url: rtsp://10.0.0.1/stream
    target_fps: 10
`,
		},
		{
			name: "unknown type",
			yaml: `
cameras:
  - id: cam-1
    type: parking
    rtsp_url: rtsp://10.0.0.1/stream
`,
			wantErr: "unknown type",
		},
		{
			name: "duplicate id",
			yaml: `
cameras:
  - id: cam-1
    type: entrance
    rtsp_url: rtsp://10.0.0.1/a
  - id: cam-1
    type: billing
    rtsp_url: rtsp://10.0.0.1/b
`,
			wantErr: "duplicate id",
		},
		{
			name:    "empty file",
			yaml:    "cameras: []",
			wantErr: "no cameras",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cameras.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cams, err := LoadCameras(path, 15)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, cams, 1)
			assert.Equal(t, "cam-1", cams[0].ID)
			assert.Equal(t, 10, cams[0].TargetFPS)
		})
	}
}

func TestLoadCameras_DefaultTargetFPS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cameras.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cameras:
  - id: cam-1
    type: tracking
    rtsp_url: rtsp://10.0.0.1/stream
`), 0o644))

	cams, err := LoadCameras(path, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, cams[0].TargetFPS)
}
