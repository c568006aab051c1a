package projection

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// UTM 带数上限
const utmMaxZones = 60

// utmForward：WGS84 经纬度 → UTM 米制坐标
// 背景：UTM 换算交给 wgs84 的横轴墨卡托实现，这里只包装成 orb.Projection 供 project.Geometry 使用。
// 约束：不做带内范围检查（不用 SafeTransform），全国边界常跨出所选带的 6° 范围。
func utmForward(zone int, north bool) orb.Projection {
	fn := wgs84.To(wgs84.UTM(float64(zone), north))
	return func(p orb.Point) orb.Point {
		e, n, _ := fn(p[0], p[1], 0)
		return orb.Point{e, n}
	}
}

// utmInverse：UTM 米制坐标 → WGS84 经纬度
func utmInverse(zone int, north bool) orb.Projection {
	fn := wgs84.From(wgs84.UTM(float64(zone), north))
	return func(p orb.Point) orb.Point {
		lon, lat, _ := fn(p[0], p[1], 0)
		return orb.Point{lon, lat}
	}
}

// ZoneFor：按经纬度推断 UTM 带号与南北半球
func ZoneFor(lon, lat float64) (int, bool) {
	z := int(math.Floor((lon+180)/6)) + 1
	if z < 1 {
		z = 1
	}
	if z > utmMaxZones {
		z = utmMaxZones
	}
	return z, lat >= 0
}
