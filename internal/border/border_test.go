package border

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-grid/internal/geo"
)

const countries = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Smallland"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1],[1,0],[0,0]]]}},
    {"type": "Feature", "properties": {"ADMIN": "Archipelago", "level": "country"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[10,10],[10,11],[11,11],[11,10],[10,10]]],
       [[[20,20],[20,23],[23,23],[23,20]]]
     ]}}
  ]
}`

func TestParsePicksNamedFeatureAndLargestPart(t *testing.T) {
	b, err := Parse([]byte(countries), "archipelago")
	require.NoError(t, err)
	assert.Equal(t, "Archipelago", b.Name)
	assert.Equal(t, 2, b.Parts)
	require.Len(t, b.Polygon, 1)
	// 未闭合的环被补齐
	assert.True(t, b.Polygon[0].Closed())
	assert.Equal(t, orb.Bound{Min: orb.Point{20, 20}, Max: orb.Point{23, 23}}, b.Polygon.Bound())
}

func TestParseFirstFeatureWhenUnnamed(t *testing.T) {
	b, err := Parse([]byte(countries), "")
	require.NoError(t, err)
	assert.Equal(t, "Smallland", b.Name)
	assert.Equal(t, "country", b.Level)
}

func TestParseBareGeometry(t *testing.T) {
	b, err := Parse([]byte(`{"type":"Polygon","coordinates":[[[0,0],[0,2],[2,2],[2,0],[0,0]]]}`), "x")
	require.Error(t, err)
	assert.Nil(t, b)

	b, err = Parse([]byte(`{"type":"Polygon","coordinates":[[[0,0],[0,2],[2,2],[2,0],[0,0]]]}`), "")
	require.NoError(t, err)
	assert.Len(t, b.Polygon[0], 5)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"not json":    `{`,
		"point only":  `{"type":"Point","coordinates":[1,2]}`,
		"zero area":   `{"type":"Polygon","coordinates":[[[0,0],[1,1],[2,2],[0,0]]]}`,
		"missing one": countries,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			want := ""
			if name == "missing one" {
				want = "Atlantis"
			}
			_, err := Parse([]byte(in), want)
			assert.True(t, errors.Is(err, geo.ErrInvalidGeometry), "%v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "b.geojson")
	require.NoError(t, os.WriteFile(p, []byte(countries), 0o644))
	b, err := LoadFile(p, "Smallland")
	require.NoError(t, err)
	assert.Equal(t, "Smallland", b.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.geojson"), "")
	assert.Error(t, err)
}
