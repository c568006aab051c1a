package grid

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-grid/internal/geo"
	"sector-grid/internal/projection"
)

func planarProjector(t *testing.T) projection.Projector {
	t.Helper()
	p, err := projection.NewLocal(projection.CRSPlanar)
	require.NoError(t, err)
	return p
}

func points(res *Result) []orb.Point {
	out := make([]orb.Point, 0, len(res.Points))
	for _, p := range res.Points {
		out = append(out, p.Point)
	}
	return out
}

var unitSquare = orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}

func TestUnitSquareLattice(t *testing.T) {
	want := []orb.Point{
		{0, 0}, {0.5, 0}, {1, 0},
		{0, 0.5}, {0.5, 0.5}, {1, 0.5},
		{0, 1}, {0.5, 1}, {1, 1},
	}
	for _, policy := range []Policy{PolicyClip, PolicyIntersecting} {
		g := &Generator{Projector: planarProjector(t), CellSize: 0.5, Policy: policy}
		res, err := g.Generate(context.Background(), unitSquare)
		require.NoError(t, err, policy)
		assert.Equal(t, want, points(res), policy)
		assert.Equal(t, 4, res.Cells, policy)
	}
}

func TestSharedCornersCollapse(t *testing.T) {
	g := &Generator{Projector: planarProjector(t), CellSize: 0.25, Policy: PolicyIntersecting}
	res, err := g.Generate(context.Background(), unitSquare)
	require.NoError(t, err)
	// 16 个单元、64 个角点，去重后为 5x5
	assert.Equal(t, 16, res.Cells)
	assert.Len(t, res.Points, 25)
	ids := map[string]bool{}
	for _, p := range res.Points {
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
	}
}

func TestBoundSmallerThanCell(t *testing.T) {
	small := orb.Polygon{{{0, 0}, {0, 0.3}, {0.3, 0.3}, {0.3, 0}, {0, 0}}}

	g := &Generator{Projector: planarProjector(t), CellSize: 1, Policy: PolicyIntersecting}
	res, err := g.Generate(context.Background(), small)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cells)
	assert.Equal(t, []orb.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, points(res))

	g.Policy = PolicyClip
	res, err = g.Generate(context.Background(), small)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cells)
	assert.Equal(t, []orb.Point{{0, 0}, {0.3, 0}, {0, 0.3}, {0.3, 0.3}}, points(res))
}

func TestLShapePolicies(t *testing.T) {
	lshape := orb.Polygon{{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}, {0, 0}}}

	g := &Generator{Projector: planarProjector(t), CellSize: 0.5, Policy: PolicyIntersecting}
	res, err := g.Generate(context.Background(), lshape)
	require.NoError(t, err)
	// 仅右上角 [1.5,2]x[1.5,2] 与边界不接触
	assert.Equal(t, 15, res.Cells)
	assert.Len(t, res.Points, 24)
	assert.NotContains(t, points(res), orb.Point{2, 2})

	g.Policy = PolicyClip
	res, err = g.Generate(context.Background(), lshape)
	require.NoError(t, err)
	assert.Len(t, res.Points, 21)
	for _, p := range res.Points {
		assert.True(t, planar.PolygonContains(lshape, p.Point), "%v outside border", p.Point)
	}
}

// covered：闭包含，落在边界线 1e-6 以内也算
func covered(poly orb.Polygon, p orb.Point) bool {
	if planar.PolygonContains(poly, p) {
		return true
	}
	for _, r := range poly {
		for i := 0; i+1 < len(r); i++ {
			if planar.DistanceFromSegment(r[i], r[i+1], p) <= 1e-6 {
				return true
			}
		}
	}
	return false
}

// 凹口不与网格线对齐，且完整包住单元 [1,2]x[1,2] 与 [2,3]x[1,2]
var cShape = orb.Polygon{{{0, 0}, {3, 0}, {3, 0.9}, {0.9, 0.9}, {0.9, 2.1}, {3, 2.1}, {3, 3}, {0, 3}, {0, 0}}}

func TestClipConcaveNotch(t *testing.T) {
	g := &Generator{Projector: planarProjector(t), CellSize: 1, Policy: PolicyClip}
	res, err := g.Generate(context.Background(), cShape)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Cells)
	want := []orb.Point{
		{0, 0}, {1, 0}, {2, 0}, {3, 0},
		{0.9, 0.9}, {1, 0.9}, {2, 0.9}, {3, 0.9},
		{0, 1}, {0.9, 1},
		{0, 2}, {0.9, 2},
		{0.9, 2.1}, {1, 2.1}, {2, 2.1}, {3, 2.1},
		{0, 3}, {1, 3}, {2, 3}, {3, 3},
	}
	assert.Equal(t, want, points(res))
	for _, p := range res.Points {
		assert.True(t, covered(cShape, p.Point), "%v outside border", p.Point)
	}

	g.Policy = PolicyIntersecting
	res, err = g.Generate(context.Background(), cShape)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Cells)
	assert.Len(t, res.Points, 16)
}

func TestClipNotchCellEmitsNothing(t *testing.T) {
	notch := Cell{I: 1, J: 1, origin: orb.Point{0, 0}, side: 1}
	assert.Nil(t, clipCell(notch, cShape))
	// 只以边相接的单元没有正面积重叠
	outside := orb.Polygon{{{1, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 0}}}
	assert.Nil(t, clipCell(Cell{I: 0, J: 0, origin: orb.Point{0, 0}, side: 1}, outside))
}

func TestClipSlitBorder(t *testing.T) {
	slit := orb.Polygon{{{0, 0}, {3, 0}, {3, 3}, {1.6, 3}, {1.6, 0.4}, {1.4, 0.4}, {1.4, 3}, {0, 3}, {0, 0}}}
	for _, side := range []float64{0.7, 1, 1.5} {
		g := &Generator{Projector: planarProjector(t), CellSize: side, Policy: PolicyClip}
		res, err := g.Generate(context.Background(), slit)
		require.NoError(t, err)
		require.NotEmpty(t, res.Points)
		for _, p := range res.Points {
			assert.True(t, covered(slit, p.Point), "side %v: %v outside border", side, p.Point)
		}
	}
}

func TestPointsWithinBorderBound(t *testing.T) {
	proj, err := projection.NewLocal("EPSG:32633")
	require.NoError(t, err)
	border := orb.Polygon{{{12.4, 41.8}, {12.4, 42.0}, {12.6, 42.0}, {12.6, 41.8}, {12.4, 41.8}}}
	g := &Generator{Projector: proj, CellSize: 2000, Policy: PolicyClip}
	res, err := g.Generate(context.Background(), border)
	require.NoError(t, err)
	require.NotEmpty(t, res.Points)
	// 投影后的直边与经纬线之间有数米的弦高差
	const tol = 1e-4
	b := border.Bound()
	for _, p := range res.Points {
		assert.GreaterOrEqual(t, p.Point[0], b.Min[0]-tol)
		assert.LessOrEqual(t, p.Point[0], b.Max[0]+tol)
		assert.GreaterOrEqual(t, p.Point[1], b.Min[1]-tol)
		assert.LessOrEqual(t, p.Point[1], b.Max[1]+tol)
	}
	again, err := g.Generate(context.Background(), border)
	require.NoError(t, err)
	assert.Equal(t, res.Points, again.Points)
}

func TestCellsCoverBound(t *testing.T) {
	b := orb.Bound{Min: orb.Point{-3, 2}, Max: orb.Point{7.1, 5}}
	side := 2.0
	nx, ny := Dims(b, side)
	assert.Equal(t, 6, nx)
	assert.Equal(t, 2, ny)
	count := 0
	var last Cell
	Cells(b, side, func(c Cell) bool {
		count++
		// 相邻单元共享边，无缝无叠
		if c.I > 0 {
			assert.Equal(t, last.Bound().Max[0], c.Bound().Min[0])
		}
		assert.Equal(t, side, c.Side())
		last = c
		return true
	})
	assert.Equal(t, nx*ny, count)
	assert.GreaterOrEqual(t, last.Bound().Max[0], b.Max[0])
	assert.GreaterOrEqual(t, last.Bound().Max[1], b.Max[1])
	assert.Equal(t, b.Min, Cell{origin: b.Min, side: side}.LowerLeft())
}

func TestGenerateErrors(t *testing.T) {
	ctx := context.Background()
	proj := planarProjector(t)

	_, err := (&Generator{Projector: proj, CellSize: 1, Policy: PolicyClip}).Generate(ctx, orb.Polygon{{{0, 0}, {1, 0}, {2, 0}, {0, 0}}})
	assert.True(t, errors.Is(err, geo.ErrInvalidGeometry), "zero area: %v", err)

	_, err = (&Generator{Projector: proj, CellSize: 1, Policy: PolicyClip}).Generate(ctx, nil)
	assert.True(t, errors.Is(err, geo.ErrInvalidGeometry), "empty: %v", err)

	_, err = (&Generator{Projector: proj, CellSize: 0, Policy: PolicyClip}).Generate(ctx, unitSquare)
	assert.True(t, errors.Is(err, geo.ErrInvalidParameters), "cell size: %v", err)

	_, err = (&Generator{Projector: proj, CellSize: 1}).Generate(ctx, unitSquare)
	assert.True(t, errors.Is(err, geo.ErrInvalidParameters), "policy: %v", err)

	_, err = (&Generator{Projector: proj, CellSize: 0.001, Policy: PolicyClip, MaxCells: 100}).Generate(ctx, unitSquare)
	assert.True(t, errors.Is(err, geo.ErrInvalidParameters), "limit: %v", err)

	merc, err := projection.NewLocal("EPSG:3857")
	require.NoError(t, err)
	polar := orb.Polygon{{{0, 80}, {0, 89}, {10, 89}, {10, 80}, {0, 80}}}
	_, err = (&Generator{Projector: merc, CellSize: 1000, Policy: PolicyClip}).Generate(ctx, polar)
	assert.True(t, errors.Is(err, geo.ErrInvalidGeometry), "projection: %v", err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = (&Generator{Projector: proj, CellSize: 0.5, Policy: PolicyClip}).Generate(cctx, unitSquare)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" Clip ")
	require.NoError(t, err)
	assert.Equal(t, PolicyClip, p)
	p, err = ParsePolicy("intersecting")
	require.NoError(t, err)
	assert.Equal(t, PolicyIntersecting, p)
	_, err = ParsePolicy("")
	assert.True(t, errors.Is(err, geo.ErrInvalidParameters))
}
