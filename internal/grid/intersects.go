package grid

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// cellIntersects：单元（闭区域）与多边形是否相交，接触亦算相交
// 约束：三步判定——多边形顶点落入单元、单元角点落入多边形、边与边相交；任一成立即相交
func cellIntersects(c Cell, poly orb.Polygon) bool {
	b := c.Bound()
	if !b.Intersects(poly.Bound()) {
		return false
	}
	for _, r := range poly {
		for _, p := range r {
			if b.Contains(p) {
				return true
			}
		}
	}
	for _, k := range c.Corners() {
		if planar.PolygonContains(poly, k) {
			return true
		}
	}
	cr := c.Ring()
	for _, r := range poly {
		for i := 0; i+1 < len(r); i++ {
			for k := 0; k+1 < len(cr); k++ {
				if segmentsIntersect(r[i], r[i+1], cr[k], cr[k+1]) {
					return true
				}
			}
		}
	}
	return false
}

func orient(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}

// segmentsIntersect：闭线段相交（含端点接触与共线重叠）
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}
