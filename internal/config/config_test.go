package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-grid/internal/geo"
	"sector-grid/internal/grid"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PLAN_FILE", "BORDER_NAME", "BORDER_FILE", "GRID_CRS", "GRID_CLIP_POLICY",
		"PROJECTION_ENGINE", "EXPORT_GEOJSON", "GRID_CELL_SIZE_M", "SECTOR_SPREAD_DEG", "SECTOR_RADIUS_M",
		"SECTOR_RESOLUTION", "INTERSECT_WORKERS", "SECTOR_AZIMUTHS"} {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresPolicy(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.True(t, errors.Is(err, geo.ErrInvalidParameters))

	t.Setenv("GRID_CLIP_POLICY", "intersecting")
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, grid.PolicyIntersecting, c.Policy())
	assert.Equal(t, EngineLocal, c.Engine)
	assert.Equal(t, "auto", c.Grid.CRS)
}

func TestLoadPlanFileThenEnv(t *testing.T) {
	clearEnv(t)
	plan := `
border:
  name: Italy
  file: data/italy.geojson
grid:
  cell_size_m: 10000
  crs: EPSG:32633
  policy: clip
sectors:
  azimuths: [45, 135]
  spread_deg: 90
  radius_m: 3000
  resolution: 8
workers: 3
`
	p := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(p, []byte(plan), 0o644))
	t.Setenv("PLAN_FILE", p)
	t.Setenv("SECTOR_RADIUS_M", "7500")
	t.Setenv("SECTOR_AZIMUTHS", "0, 90 ,180,")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Italy", c.Border.Name)
	assert.Equal(t, 10000.0, c.Grid.CellSizeM)
	assert.Equal(t, "EPSG:32633", c.Grid.CRS)
	assert.Equal(t, grid.PolicyClip, c.Policy())
	assert.Equal(t, 3, c.Workers)

	plan2 := c.Plan()
	assert.Equal(t, []float64{0, 90, 180}, plan2.Azimuths)
	assert.Equal(t, 90.0, plan2.Spread)
	assert.Equal(t, 7500.0, plan2.Radius)
	assert.Equal(t, 8, plan2.Resolution)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"cell size":  {"GRID_CELL_SIZE_M", "0"},
		"not number": {"SECTOR_SPREAD_DEG", "wide"},
		"spread":     {"SECTOR_SPREAD_DEG", "400"},
		"azimuth":    {"SECTOR_AZIMUTHS", "10,abc"},
		"engine":     {"PROJECTION_ENGINE", "gdal"},
		"resolution": {"SECTOR_RESOLUTION", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("GRID_CLIP_POLICY", "clip")
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.True(t, errors.Is(err, geo.ErrInvalidParameters), "%v", err)
		})
	}
}

func TestLoadMissingPlanFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLAN_FILE", filepath.Join(t.TempDir(), "none.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestParseAzimuths(t *testing.T) {
	az, err := ParseAzimuths("0,120,240")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 120, 240}, az)
	_, err = ParseAzimuths(" , ")
	assert.Error(t, err)
}

func TestLoadSectorsSkipsGridChecks(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTERSECT_WORKERS", "0")
	c, err := LoadSectors()
	require.NoError(t, err)
	assert.Equal(t, 1, c.Workers)

	t.Setenv("SECTOR_RADIUS_M", "-1")
	_, err = LoadSectors()
	assert.True(t, errors.Is(err, geo.ErrInvalidParameters))
}
