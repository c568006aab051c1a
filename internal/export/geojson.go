// 包 export：把网格点、扇区与相交结果导出为 GeoJSON，供地图查看
package export

import (
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"sector-grid/internal/geo"
)

// Collection：点要素在前、扇区要素在后，顺序与输入一致
// 约束：kind 属性区分 point / sector；hits 为相交计数
func Collection(points []geo.GridPoint, sectors []geo.Sector, pairs []geo.Intersection) *geojson.FeatureCollection {
	perPoint := make(map[string]int, len(points))
	perSector := make(map[string]int, len(sectors))
	for _, x := range pairs {
		perPoint[x.PointID]++
		perSector[x.SectorID]++
	}
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		f := geojson.NewFeature(p.Point)
		f.ID = p.ID
		f.Properties["kind"] = "point"
		f.Properties["id"] = p.ID
		f.Properties["hits"] = perPoint[p.ID]
		fc.Append(f)
	}
	for _, s := range sectors {
		fc.Append(SectorFeature(s, perSector[s.ID]))
	}
	return fc
}

// SectorFeature：单个扇区要素
func SectorFeature(s geo.Sector, hits int) *geojson.Feature {
	f := geojson.NewFeature(s.Polygon)
	f.ID = s.ID
	f.Properties["kind"] = "sector"
	f.Properties["id"] = s.ID
	f.Properties["origin_point_id"] = s.OriginID
	f.Properties["azimuth"] = s.Azimuth
	f.Properties["spread"] = s.Spread
	f.Properties["radius_m"] = s.Radius
	f.Properties["resolution"] = s.Resolution
	f.Properties["hits"] = hits
	return f
}

// WriteFile：序列化并写入文件
func WriteFile(path string, fc *geojson.FeatureCollection) error {
	b, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "marshal geojson")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
