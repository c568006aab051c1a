package projection

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-grid/internal/geo"
)

func TestUTMKnownPoints(t *testing.T) {
	fwd := utmForward(33, true)
	p := fwd(orb.Point{15, 0})
	assert.InDelta(t, 500000, p[0], 1e-3)
	assert.InDelta(t, 0, p[1], 1e-3)

	// 45°N 在中央子午线上：0.9996 × 子午线弧长 4984944.378
	p = fwd(orb.Point{15, 45})
	assert.InDelta(t, 500000, p[0], 1e-3)
	assert.InDelta(t, 4982950.40, p[1], 0.5)

	south := utmForward(33, false)(orb.Point{15, -10})
	assert.Less(t, south[1], 10000000.0)
	assert.Greater(t, south[1], 8000000.0)

	// 带外点仍可换算（不做带内范围检查）
	out := fwd(orb.Point{22, 45})
	assert.Greater(t, out[0], 1000000.0)
}

func TestUTMRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		zone  int
		north bool
		pt    orb.Point
	}{
		{33, true, orb.Point{12.4964, 41.9028}},
		{31, true, orb.Point{2.3522, 48.8566}},
		{56, false, orb.Point{151.2093, -33.8688}},
		{35, true, orb.Point{28.2, 60.5}},
	} {
		m := utmForward(tc.zone, tc.north)(tc.pt)
		back := utmInverse(tc.zone, tc.north)(m)
		assert.InDelta(t, tc.pt[0], back[0], 1e-6, "lon zone %d", tc.zone)
		assert.InDelta(t, tc.pt[1], back[1], 1e-6, "lat zone %d", tc.zone)
	}
}

func TestNewLocal(t *testing.T) {
	for _, crs := range []string{"planar", "EPSG:3857", "epsg:32633", "32733"} {
		p, err := NewLocal(crs)
		require.NoError(t, err, crs)
		require.NotEmpty(t, p.CRS())
	}
	for _, crs := range []string{"", "EPSG:4326", "EPSG:32661", "utm"} {
		_, err := NewLocal(crs)
		assert.True(t, errors.Is(err, geo.ErrInvalidGeometry), crs)
	}
}

func TestLocalDoesNotMutateInput(t *testing.T) {
	p, err := NewLocal("EPSG:32633")
	require.NoError(t, err)
	in := orb.Polygon{{{14, 44}, {14, 45}, {15, 45}, {15, 44}, {14, 44}}}
	out, err := p.Forward(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{14, 44}, in[0][0])
	poly, ok := out.(orb.Polygon)
	require.True(t, ok)
	assert.Greater(t, poly[0][0][0], 1000.0)
}

func TestForwardRejectsOutOfDomain(t *testing.T) {
	p, err := NewLocal("EPSG:3857")
	require.NoError(t, err)
	_, err = p.Forward(context.Background(), orb.MultiPoint{{0, 89}})
	assert.True(t, errors.Is(err, geo.ErrInvalidGeometry))

	u, err := NewLocal("EPSG:32633")
	require.NoError(t, err)
	_, err = u.Forward(context.Background(), orb.MultiPoint{{200, 10}})
	assert.True(t, errors.Is(err, geo.ErrInvalidGeometry))

	_, err = u.Forward(context.Background(), nil)
	assert.True(t, errors.Is(err, geo.ErrInvalidGeometry))
}

func TestResolveCRS(t *testing.T) {
	italy := orb.Polygon{{{12, 41}, {12, 43}, {14, 43}, {14, 41}, {12, 41}}}
	assert.Equal(t, "EPSG:32633", ResolveCRS("auto", italy))
	chile := orb.Polygon{{{-71, -34}, {-71, -32}, {-70, -32}, {-70, -34}, {-71, -34}}}
	assert.Equal(t, "EPSG:32719", ResolveCRS("AUTO", chile))
	assert.Equal(t, "planar", ResolveCRS("planar", italy))
}
