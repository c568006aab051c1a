// 包 border：从 GeoJSON 读取国界多边形
package border

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"

	"sector-grid/internal/geo"
)

// Border：单个边界及其名称
type Border struct {
	Name    string
	Level   string
	Polygon orb.Polygon
	Parts   int // 原始几何中多边形个数
}

// nameKeys：按顺序尝试的名称属性
var nameKeys = []string{"name", "NAME", "ADMIN", "shapeName", "country"}

func featureName(f *geojson.Feature) string {
	for _, k := range nameKeys {
		if v := f.Properties.MustString(k, ""); v != "" {
			return v
		}
	}
	return ""
}

// Parse：解析 FeatureCollection / Feature / 裸几何
// 背景：国界通常是 MultiPolygon（本土 + 岛屿），网格只铺在面积最大的部分上。
// 约束：want 非空时按名称属性（不区分大小写）挑选要素；未闭合的环自动补首点。
func Parse(data []byte, want string) (*Border, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(geo.ErrInvalidGeometry, err.Error())
	}
	var feats []*geojson.Feature
	switch strings.ToLower(head.Type) {
	case "featurecollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrap(geo.ErrInvalidGeometry, err.Error())
		}
		feats = fc.Features
	case "feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, errors.Wrap(geo.ErrInvalidGeometry, err.Error())
		}
		feats = []*geojson.Feature{f}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, errors.Wrap(geo.ErrInvalidGeometry, err.Error())
		}
		feats = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	}
	for _, f := range feats {
		name := featureName(f)
		if want != "" && !strings.EqualFold(name, want) {
			continue
		}
		poly, parts, ok := largestPart(f.Geometry)
		if !ok {
			continue
		}
		if err := geo.ValidatePolygon(poly); err != nil {
			return nil, errors.Wrapf(err, "border %q", name)
		}
		if name == "" {
			name = want
		}
		return &Border{Name: name, Level: f.Properties.MustString("level", "country"), Polygon: poly, Parts: parts}, nil
	}
	if want != "" {
		return nil, errors.Wrapf(geo.ErrInvalidGeometry, "no polygon feature named %q", want)
	}
	return nil, errors.Wrap(geo.ErrInvalidGeometry, "no polygon feature")
}

// LoadFile：读取文件后 Parse
func LoadFile(path, want string) (*Border, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read border %s", path)
	}
	return Parse(b, want)
}

func largestPart(g orb.Geometry) (orb.Polygon, int, bool) {
	var parts orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		parts = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		parts = v
	default:
		return nil, 0, false
	}
	best, bestArea := -1, -1.0
	for i, p := range parts {
		if len(p) == 0 {
			continue
		}
		if a := planar.Area(p); a > bestArea {
			best, bestArea = i, a
		}
	}
	if best < 0 {
		return nil, 0, false
	}
	out := make(orb.Polygon, 0, len(parts[best]))
	for _, r := range parts[best] {
		out = append(out, closeRing(r))
	}
	return out, len(parts), true
}

func closeRing(r orb.Ring) orb.Ring {
	out := append(orb.Ring(nil), r...)
	if len(out) > 0 && !out.Closed() {
		out = append(out, out[0])
	}
	return out
}
