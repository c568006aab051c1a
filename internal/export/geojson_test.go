package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-grid/internal/geo"
	"sector-grid/internal/sector"
)

func sample(t *testing.T) ([]geo.GridPoint, []geo.Sector, []geo.Intersection) {
	t.Helper()
	a := geo.NewGridPoint(orb.Point{12.5, 41.9})
	b := geo.NewGridPoint(orb.Point{13.5, 41.9})
	s, err := sector.New(a, sector.Params{Azimuth: 90, Spread: 60, Radius: 5000, Resolution: 4})
	require.NoError(t, err)
	return []geo.GridPoint{a, b}, []geo.Sector{s}, []geo.Intersection{{PointID: a.ID, SectorID: s.ID}}
}

func TestCollectionOrderAndCounts(t *testing.T) {
	pts, secs, pairs := sample(t)
	fc := Collection(pts, secs, pairs)
	require.Len(t, fc.Features, 3)

	assert.Equal(t, "point", fc.Features[0].Properties["kind"])
	assert.Equal(t, 1, fc.Features[0].Properties["hits"])
	assert.Equal(t, 0, fc.Features[1].Properties["hits"])
	assert.Equal(t, "sector", fc.Features[2].Properties["kind"])
	assert.Equal(t, pts[0].ID, fc.Features[2].Properties["origin_point_id"])
	assert.Equal(t, 1, fc.Features[2].Properties["hits"])
	assert.Equal(t, "Polygon", fc.Features[2].Geometry.GeoJSONType())
}

func TestWriteFileRoundTrip(t *testing.T) {
	pts, secs, pairs := sample(t)
	p := filepath.Join(t.TempDir(), "out.geojson")
	require.NoError(t, WriteFile(p, Collection(pts, secs, pairs)))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(b)
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, secs[0].Polygon, fc.Features[2].Geometry)
	assert.Equal(t, 90.0, fc.Features[2].Properties.MustFloat64("azimuth"))
}

func TestWriteFileBadPath(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "x.geojson"), Collection(nil, nil, nil))
	assert.Error(t, err)
}
