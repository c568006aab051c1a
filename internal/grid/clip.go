package grid

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

// areaEps：相对单元面积的零面积阈值
const areaEps = 1e-9

// clipCell：单元与边界重叠部分的顶点；没有正面积重叠时返回 nil
// 背景：clip.Polygon 逐条裁剪线处理，凹边界会在单元边上留下零宽度的连接边，
// 连接边端点可能落在边界之外（凹口里的单元角点）。面积按有向面积求和不受连接边影响，
// 用来判定是否重叠；顶点再按闭包含过滤，落在边界线上（容差内）的交点保留。
func clipCell(c Cell, border orb.Polygon) []orb.Point {
	b := c.Bound()
	if !b.Intersects(border.Bound()) {
		return nil
	}
	piece := clip.Polygon(b, border.Clone())
	if len(piece) == 0 || len(piece[0]) < 4 {
		return nil
	}
	side := c.Side()
	if pieceArea(piece) <= areaEps*side*side {
		return nil
	}
	eps := side * areaEps
	var edges [][2]orb.Point // 惰性收集与单元相交的边界边
	loaded := false
	var out []orb.Point
	for _, r := range piece {
		for _, p := range r {
			if planar.PolygonContains(border, p) {
				out = append(out, p)
				continue
			}
			if !loaded {
				edges = edgesNear(border, b.Pad(eps))
				loaded = true
			}
			if nearAny(edges, p, eps) {
				out = append(out, p)
			}
		}
	}
	return out
}

// pieceArea：外环面积减去洞面积（均按绝对值）
func pieceArea(p orb.Polygon) float64 {
	a := math.Abs(planar.Area(p[0]))
	for _, h := range p[1:] {
		a -= math.Abs(planar.Area(h))
	}
	return a
}

func edgesNear(poly orb.Polygon, b orb.Bound) [][2]orb.Point {
	var out [][2]orb.Point
	for _, r := range poly {
		for i := 0; i+1 < len(r); i++ {
			if (orb.MultiPoint{r[i], r[i+1]}).Bound().Intersects(b) {
				out = append(out, [2]orb.Point{r[i], r[i+1]})
			}
		}
	}
	return out
}

func nearAny(edges [][2]orb.Point, p orb.Point, eps float64) bool {
	for _, e := range edges {
		if planar.DistanceFromSegmentSquared(e[0], e[1], p) <= eps*eps {
			return true
		}
	}
	return false
}
