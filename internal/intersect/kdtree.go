package intersect

import (
	"sort"

	"github.com/paulmach/orb"
)

// 文档注释：二维 KD-Tree（经度/纬度交替分割），用于按扇区包围盒取候选点
// 背景：点数上万、扇区数千时逐点比较包围盒代价明显；树只保存点在输入中的下标。
// 约束：查询结果按下标升序返回，保证输出顺序与逐点扫描一致。
type kdNode struct {
	idx int
	ax  int // 0:lon,1:lat
	l   *kdNode
	r   *kdNode
}

type kdTree struct {
	pts  []orb.Point
	root *kdNode
}

func newKDTree(pts []orb.Point) *kdTree {
	ids := make([]int, len(pts))
	for i := range ids {
		ids[i] = i
	}
	t := &kdTree{pts: pts}
	t.root = t.build(ids, 0)
	return t
}

func (t *kdTree) build(ids []int, depth int) *kdNode {
	if len(ids) == 0 {
		return nil
	}
	ax := depth % 2
	// 选择中位数分割
	mid := len(ids) / 2
	t.selectNth(ids, mid, ax)
	node := &kdNode{idx: ids[mid], ax: ax}
	node.l = t.build(ids[:mid], depth+1)
	node.r = t.build(ids[mid+1:], depth+1)
	return node
}

// 原地 nth 元素选择
func (t *kdTree) selectNth(a []int, n int, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := t.partition(a, lo, hi, (lo+hi)/2, ax)
		if p == n {
			return
		}
		if n < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func (t *kdTree) partition(a []int, lo, hi, pivot, ax int) int {
	pv := t.pts[a[pivot]][ax]
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if t.pts[a[j]][ax] < pv {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

// within：包围盒内（含边界）的点下标，升序
// 约束：等于分割值的点可能落在任一侧，两侧都要按闭区间判断
func (t *kdTree) within(b orb.Bound) []int {
	var out []int
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		p := t.pts[n.idx]
		if b.Contains(p) {
			out = append(out, n.idx)
		}
		if b.Min[n.ax] <= p[n.ax] {
			dfs(n.l)
		}
		if b.Max[n.ax] >= p[n.ax] {
			dfs(n.r)
		}
	}
	dfs(t.root)
	sort.Ints(out)
	return out
}
