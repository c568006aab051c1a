// 包 projection：地理坐标（EPSG:4326）与米制投影坐标之间的互转
package projection

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/pkg/errors"

	"sector-grid/internal/geo"
)

// Projector：几何正向（地理→米制）与反向投影
// 背景：进程内实现与 PostGIS（ST_Transform）实现共用该接口，由配置选择，二者均不是默认。
// 约束：输入几何不被修改；任何失败都归为 geo.ErrInvalidGeometry。
type Projector interface {
	Forward(ctx context.Context, g orb.Geometry) (orb.Geometry, error)
	Inverse(ctx context.Context, g orb.Geometry) (orb.Geometry, error)
	CRS() string
}

// Local：基于 orb.Projection 的进程内投影
type Local struct {
	crs    string
	fwd    orb.Projection
	inv    orb.Projection
	domain func(orb.Point) bool
}

func (l *Local) CRS() string { return l.crs }

func (l *Local) Forward(_ context.Context, g orb.Geometry) (orb.Geometry, error) {
	if l.domain != nil && g != nil {
		ok := true
		visit(g, func(p orb.Point) {
			if !l.domain(p) {
				ok = false
			}
		})
		if !ok {
			return nil, errors.Wrapf(geo.ErrInvalidGeometry, "coordinates outside the domain of %s", l.crs)
		}
	}
	return apply(g, l.fwd, l.crs)
}

func (l *Local) Inverse(_ context.Context, g orb.Geometry) (orb.Geometry, error) {
	return apply(g, l.inv, l.crs)
}

func apply(g orb.Geometry, fn orb.Projection, crs string) (orb.Geometry, error) {
	if g == nil {
		return nil, errors.Wrap(geo.ErrInvalidGeometry, "nil geometry")
	}
	out := project.Geometry(orb.Clone(g), fn)
	if !allFinite(out) {
		return nil, errors.Wrapf(geo.ErrInvalidGeometry, "projection %s produced non-finite coordinates", crs)
	}
	return out, nil
}

// Web Mercator 的纬度上限
const mercatorMaxLat = 85.0511287798

func geographic(p orb.Point) bool {
	return p[0] >= -180 && p[0] <= 180 && p[1] >= -90 && p[1] <= 90
}

func mercatorDomain(p orb.Point) bool {
	return geographic(p) && math.Abs(p[1]) <= mercatorMaxLat
}

// 平面投影：恒等变换，坐标本身即为米制（用于测试与已投影数据）
func identity(p orb.Point) orb.Point { return p }

// CRSPlanar：平面恒等坐标系名称
const CRSPlanar = "planar"

// CRSAuto：由边界中心推断 UTM 带
const CRSAuto = "auto"

// NewLocal：按 CRS 名称构建进程内投影
// 支持：planar、EPSG:3857（Web Mercator）、EPSG:326xx / EPSG:327xx（UTM 北/南）
func NewLocal(crs string) (*Local, error) {
	name := strings.ToUpper(strings.TrimSpace(crs))
	if name == "" {
		return nil, errors.Wrap(geo.ErrInvalidGeometry, "empty crs")
	}
	if name == strings.ToUpper(CRSPlanar) {
		return &Local{crs: CRSPlanar, fwd: identity, inv: identity}, nil
	}
	code, err := ParseEPSG(name)
	if err != nil {
		return nil, err
	}
	switch {
	case code == 3857:
		return &Local{crs: "EPSG:3857", fwd: project.WGS84.ToMercator, inv: project.Mercator.ToWGS84, domain: mercatorDomain}, nil
	case code > 32600 && code <= 32600+utmMaxZones:
		z := code - 32600
		return &Local{crs: name, fwd: utmForward(z, true), inv: utmInverse(z, true), domain: geographic}, nil
	case code > 32700 && code <= 32700+utmMaxZones:
		z := code - 32700
		return &Local{crs: name, fwd: utmForward(z, false), inv: utmInverse(z, false), domain: geographic}, nil
	}
	return nil, errors.Wrapf(geo.ErrInvalidGeometry, "unsupported crs %s", crs)
}

// ParseEPSG：解析 "EPSG:32633" 或纯数字
func ParseEPSG(crs string) (int, error) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(crs)), "EPSG:")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.Wrapf(geo.ErrInvalidGeometry, "bad crs %q", crs)
	}
	return n, nil
}

// ResolveCRS：将 auto 解析为边界包围盒中心所在的 UTM 带
func ResolveCRS(crs string, border orb.Polygon) string {
	if !strings.EqualFold(strings.TrimSpace(crs), CRSAuto) {
		return crs
	}
	c := border.Bound().Center()
	z, north := ZoneFor(c[0], c[1])
	if north {
		return "EPSG:" + strconv.Itoa(32600+z)
	}
	return "EPSG:" + strconv.Itoa(32700+z)
}

func allFinite(g orb.Geometry) bool {
	ok := true
	visit(g, func(p orb.Point) {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			ok = false
		}
	})
	return ok
}

// visit：遍历几何中的全部点（仅本系统用到的类型）
func visit(g orb.Geometry, fn func(orb.Point)) {
	switch v := g.(type) {
	case orb.Point:
		fn(v)
	case orb.MultiPoint:
		for _, p := range v {
			fn(p)
		}
	case orb.LineString:
		for _, p := range v {
			fn(p)
		}
	case orb.Ring:
		for _, p := range v {
			fn(p)
		}
	case orb.Polygon:
		for _, r := range v {
			visit(r, fn)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			visit(p, fn)
		}
	case orb.Collection:
		for _, x := range v {
			visit(x, fn)
		}
	}
}
