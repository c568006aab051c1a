package grid

import (
	"math"

	"github.com/paulmach/orb"
)

// Cell：米制坐标系中的轴对齐正方形，仅在生成期间存在
// 约束：角点由行列号重新计算，保证相邻单元共享的角点逐位相同
type Cell struct {
	I, J   int
	origin orb.Point
	side   float64
}

func (c Cell) x(i int) float64 { return c.origin[0] + float64(i)*c.side }
func (c Cell) y(j int) float64 { return c.origin[1] + float64(j)*c.side }

// LowerLeft：左下角
func (c Cell) LowerLeft() orb.Point { return orb.Point{c.x(c.I), c.y(c.J)} }

// Side：边长（米）
func (c Cell) Side() float64 { return c.side }

// Bound：单元包围盒
func (c Cell) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{c.x(c.I), c.y(c.J)},
		Max: orb.Point{c.x(c.I + 1), c.y(c.J + 1)},
	}
}

// Corners：逆时针四角（左下、右下、右上、左上）
func (c Cell) Corners() [4]orb.Point {
	x0, x1 := c.x(c.I), c.x(c.I+1)
	y0, y1 := c.y(c.J), c.y(c.J+1)
	return [4]orb.Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

// Ring：闭合环形式
func (c Cell) Ring() orb.Ring {
	k := c.Corners()
	return orb.Ring{k[0], k[1], k[2], k[3], k[0]}
}

// Dims：覆盖包围盒所需的列数与行数
// 约束：从最小值起按边长步进直至超出最大值；不足一个边长时仍为 1
func Dims(b orb.Bound, side float64) (int, int) {
	return steps(b.Min[0], b.Max[0], side), steps(b.Min[1], b.Max[1], side)
}

func steps(lo, hi, side float64) int {
	n := int(math.Ceil((hi - lo) / side))
	if n < 1 {
		n = 1
	}
	// 浮点除法可能多算一步，按实际起点复核
	for n > 1 && lo+float64(n-1)*side >= hi {
		n--
	}
	for lo+float64(n)*side < hi {
		n++
	}
	return n
}

// Cells：按行优先惰性枚举覆盖包围盒的单元；fn 返回 false 时提前结束
func Cells(b orb.Bound, side float64, fn func(Cell) bool) {
	nx, ny := Dims(b, side)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			if !fn(Cell{I: i, J: j, origin: b.Min, side: side}) {
				return
			}
		}
	}
}
