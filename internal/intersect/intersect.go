// 包 intersect：计算网格点与扇区的包含关系
package intersect

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/sync/errgroup"

	"sector-grid/internal/geo"
)

// Contains：闭包含判定，点落在扇区边界上也算在内
// 背景：先以包围盒粗筛，再用 orb 的射线法（边界视为命中）精判；粗筛不改变结果。
func Contains(s geo.Sector, p orb.Point) bool {
	if !s.Polygon.Bound().Contains(p) {
		return false
	}
	return planar.PolygonContains(s.Polygon, p)
}

// Test：对每个扇区逐一检测全部点，返回唯一的（点, 扇区）配对
// 背景：点集先建 KD-Tree，按扇区包围盒取候选；各扇区相互独立，可按 workers 并行，
// 每个扇区的结果写入自己的槽位，输出顺序与并行度无关。
// 约束：输出按扇区输入顺序、再按点输入顺序排列；重复的点/扇区 ID 只产生一次配对。
func Test(ctx context.Context, points []geo.GridPoint, sectors []geo.Sector, workers int) ([]geo.Intersection, error) {
	if workers < 1 {
		workers = 1
	}
	coords := make([]orb.Point, len(points))
	for i, p := range points {
		coords[i] = p.Point
	}
	tree := newKDTree(coords)
	slots := make([][]geo.Intersection, len(sectors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sectors {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s := sectors[i]
			var hits []geo.Intersection
			for _, j := range tree.within(s.Polygon.Bound()) {
				if planar.PolygonContains(s.Polygon, points[j].Point) {
					hits = append(hits, geo.Intersection{PointID: points[j].ID, SectorID: s.ID})
				}
			}
			slots[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	seen := make(map[geo.Intersection]struct{})
	var out []geo.Intersection
	for _, hits := range slots {
		for _, h := range hits {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	return out, nil
}

// Diff：与参照结果（如 PostGIS ST_Covers）逐对比较
// missing 为参照有而本地没有的配对，extra 为本地有而参照没有的配对；均保持各自输入顺序。
func Diff(local, reference []geo.Intersection) (missing, extra []geo.Intersection) {
	have := make(map[geo.Intersection]struct{}, len(local))
	for _, x := range local {
		have[x] = struct{}{}
	}
	ref := make(map[geo.Intersection]struct{}, len(reference))
	for _, x := range reference {
		ref[x] = struct{}{}
		if _, ok := have[x]; !ok {
			missing = append(missing, x)
		}
	}
	for _, x := range local {
		if _, ok := ref[x]; !ok {
			extra = append(extra, x)
		}
	}
	return missing, extra
}
