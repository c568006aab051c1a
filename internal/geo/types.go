package geo

import (
	"math"
	"strconv"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// CoordPrecision：网格点去重前统一保留的小数位数（约 1 cm）
const CoordPrecision = 7

// 标识命名空间：固定值，保证同一坐标/参数在不同运行中得到同一 ID
var (
	pointNamespace  = uuid.MustParse("5b8f3c1e-3f7a-4c55-9d0e-6c2a1f4b8e01")
	sectorNamespace = uuid.MustParse("9e2d7a40-1c6b-4f83-a5d2-0b7e3c9f6a12")
)

// GridPoint：去重后的网格角点（WGS84，经度在前）
type GridPoint struct {
	ID    string
	Point orb.Point
}

// Sector：以网格点为原点的扇形多边形
// 约束：Polygon 仅一个外环，首尾均为原点
type Sector struct {
	ID         string
	OriginID   string
	Azimuth    float64
	Spread     float64
	Radius     float64
	Resolution int
	Polygon    orb.Polygon
}

// Intersection：点落入扇区（含边界）的配对；可随时由点与扇区重新计算
type Intersection struct {
	PointID  string
	SectorID string
}

// Round：按固定小数位四舍五入，吸收投影往返的浮点噪声
func Round(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}

// RoundPoint：对经纬度同时取整
func RoundPoint(p orb.Point) orb.Point {
	return orb.Point{Round(p[0], CoordPrecision), Round(p[1], CoordPrecision)}
}

// coordKey：稳定的坐标文本，用作 ID 种子
func coordKey(p orb.Point) string {
	return strconv.FormatFloat(p[0], 'f', CoordPrecision, 64) + "," + strconv.FormatFloat(p[1], 'f', CoordPrecision, 64)
}

// NewGridPoint：按取整后的坐标值生成网格点；同坐标得到同 ID
func NewGridPoint(p orb.Point) GridPoint {
	rp := RoundPoint(p)
	return GridPoint{ID: PointID(rp), Point: rp}
}

// PointID：坐标的 UUIDv5 标识
func PointID(p orb.Point) string {
	return uuid.NewSHA1(pointNamespace, []byte(coordKey(RoundPoint(p)))).String()
}

// SectorID：由原点 ID 与全部构造参数决定
func SectorID(originID string, azimuth, spread, radius float64, resolution int) string {
	key := originID + "|" +
		strconv.FormatFloat(azimuth, 'g', -1, 64) + "|" +
		strconv.FormatFloat(spread, 'g', -1, 64) + "|" +
		strconv.FormatFloat(radius, 'g', -1, 64) + "|" +
		strconv.Itoa(resolution)
	return uuid.NewSHA1(sectorNamespace, []byte(key)).String()
}

// ValidateRing：检查外环可作为边界使用
// 约束：至少 4 个点、首尾相同、有限坐标、面积为正（按绝对值，绕向不敏感）
func ValidateRing(r orb.Ring) error {
	if len(r) < 4 {
		return errors.Wrapf(ErrInvalidGeometry, "ring has %d points, need at least 4", len(r))
	}
	for i, p := range r {
		if !finite(p[0]) || !finite(p[1]) {
			return errors.Wrapf(ErrInvalidGeometry, "non-finite coordinate at index %d", i)
		}
	}
	if !r.Closed() {
		return errors.Wrap(ErrInvalidGeometry, "ring is not closed")
	}
	if a := math.Abs(SignedArea(r)); a <= 0 {
		return errors.Wrap(ErrInvalidGeometry, "ring has zero area")
	}
	return nil
}

// ValidatePolygon：多边形非空且外环合法
func ValidatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return errors.Wrap(ErrInvalidGeometry, "empty polygon")
	}
	return ValidateRing(p[0])
}

// SignedArea：鞋带公式，逆时针为正
func SignedArea(r orb.Ring) float64 {
	var s float64
	for i := 0; i+1 < len(r); i++ {
		s += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return s / 2
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Finite：参数校验共用
func Finite(vs ...float64) bool {
	for _, v := range vs {
		if !finite(v) {
			return false
		}
	}
	return true
}
