// 包 sector：以网格点为原点构造扇形（扇区）多边形
package sector

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"sector-grid/internal/geo"
)

// MetersPerDegree：赤道处每度纬度对应的平均米数
// 约束：经纬度增量都按该常数换算，不随纬度修正经度压缩；几十公里半径、中纬度范围内可用。
// 这是既有图表与结果所基于的近似，改为大地线精确计算属于行为变更。
const MetersPerDegree = 111320.0

// Params：扇区构造参数
type Params struct {
	Azimuth    float64 // 度，0 为正北，顺时针
	Spread     float64 // 张角（度），(0, 360]
	Radius     float64 // 米
	Resolution int     // 弧线细分数 n，弧上共 n+1 个点
}

// Validate：在任何计算前拒绝非法参数
func (p Params) Validate() error {
	if !geo.Finite(p.Azimuth, p.Spread, p.Radius) {
		return errors.Wrap(geo.ErrInvalidParameters, "non-finite sector parameter")
	}
	if p.Azimuth < 0 || p.Azimuth > 360 {
		return errors.Wrapf(geo.ErrInvalidParameters, "azimuth %v outside [0, 360]", p.Azimuth)
	}
	if p.Spread <= 0 || p.Spread > 360 {
		return errors.Wrapf(geo.ErrInvalidParameters, "spread %v outside (0, 360]", p.Spread)
	}
	if p.Radius <= 0 {
		return errors.Wrapf(geo.ErrInvalidParameters, "radius %v must be positive", p.Radius)
	}
	if p.Resolution < 1 {
		return errors.Wrapf(geo.ErrInvalidParameters, "resolution %d must be at least 1", p.Resolution)
	}
	return nil
}

// Build：生成闭合扇形环 [原点, 弧点0 … 弧点n, 原点]，共 n+3 个点
// 背景：弧点角度从 az-spread/2 到 az+spread/2 均匀取 n+1 个；局部东北切平面偏移
// dx=r·sinθ、dy=r·cosθ 直接除以 MetersPerDegree 得到经纬度增量。
// 约束：同样输入得到逐位相同的多边形。
func Build(origin orb.Point, p Params) (orb.Polygon, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !geo.Finite(origin[0], origin[1]) {
		return nil, errors.Wrap(geo.ErrInvalidParameters, "non-finite origin")
	}
	n := p.Resolution
	start := p.Azimuth - p.Spread/2
	step := p.Spread / float64(n)
	ring := make(orb.Ring, 0, n+3)
	ring = append(ring, origin)
	for i := 0; i <= n; i++ {
		theta := (start + float64(i)*step) * math.Pi / 180
		dx := p.Radius * math.Sin(theta)
		dy := p.Radius * math.Cos(theta)
		ring = append(ring, orb.Point{origin[0] + dx/MetersPerDegree, origin[1] + dy/MetersPerDegree})
	}
	ring = append(ring, origin)
	return orb.Polygon{ring}, nil
}

// New：为网格点构造带标识的扇区
func New(origin geo.GridPoint, p Params) (geo.Sector, error) {
	poly, err := Build(origin.Point, p)
	if err != nil {
		return geo.Sector{}, err
	}
	return geo.Sector{
		ID:         geo.SectorID(origin.ID, p.Azimuth, p.Spread, p.Radius, p.Resolution),
		OriginID:   origin.ID,
		Azimuth:    p.Azimuth,
		Spread:     p.Spread,
		Radius:     p.Radius,
		Resolution: p.Resolution,
		Polygon:    poly,
	}, nil
}

// Fan：每个网格点按全部方位角各构造一个扇区
// 约束：所有方位角先统一校验，出错时不返回部分结果
func Fan(points []geo.GridPoint, azimuths []float64, spread, radius float64, resolution int) ([]geo.Sector, error) {
	if len(azimuths) == 0 {
		return nil, errors.Wrap(geo.ErrInvalidParameters, "no azimuths")
	}
	for _, az := range azimuths {
		if err := (Params{Azimuth: az, Spread: spread, Radius: radius, Resolution: resolution}).Validate(); err != nil {
			return nil, err
		}
	}
	out := make([]geo.Sector, 0, len(points)*len(azimuths))
	for _, pt := range points {
		for _, az := range azimuths {
			s, err := New(pt, Params{Azimuth: az, Spread: spread, Radius: radius, Resolution: resolution})
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}
