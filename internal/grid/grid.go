// 包 grid：以固定边长的正方形单元铺满边界多边形，输出去重后的角点
package grid

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"sector-grid/internal/geo"
	"sector-grid/internal/logger"
	"sector-grid/internal/projection"
)

// Policy：单元与边界的取舍方式；两种输出都有效，不设默认值
type Policy string

const (
	// PolicyClip：单元按边界裁剪，取裁剪结果的顶点
	PolicyClip Policy = "clip"
	// PolicyIntersecting：保留与边界相交（含接触）的整单元，取四角
	PolicyIntersecting Policy = "intersecting"
)

// DefaultMaxCells：单次生成允许的单元上限，防止边长配置错误时耗尽内存
const DefaultMaxCells = 5_000_000

// ParsePolicy：解析配置值；空值同样视为错误，调用方必须显式选择
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyClip:
		return PolicyClip, nil
	case PolicyIntersecting:
		return PolicyIntersecting, nil
	}
	return "", errors.Wrapf(geo.ErrInvalidParameters, "grid policy %q must be %q or %q", s, PolicyClip, PolicyIntersecting)
}

// Generator：网格生成器
type Generator struct {
	Projector projection.Projector
	CellSize  float64 // 米
	Policy    Policy
	MaxCells  int // <=0 时取 DefaultMaxCells
}

// Result：生成结果与统计
type Result struct {
	Points []geo.GridPoint
	Cells  int // 参与取角点的单元数
	Bound  orb.Bound
}

func (g *Generator) validate(border orb.Polygon) error {
	if g.Projector == nil {
		return errors.Wrap(geo.ErrInvalidGeometry, "no projector")
	}
	if !(g.CellSize > 0) || math.IsInf(g.CellSize, 0) {
		return errors.Wrapf(geo.ErrInvalidParameters, "cell size %v must be positive", g.CellSize)
	}
	if _, err := ParsePolicy(string(g.Policy)); err != nil {
		return err
	}
	for _, r := range border {
		if err := geo.ValidateRing(r); err != nil {
			return err
		}
	}
	return geo.ValidatePolygon(border)
}

// Generate：边界（WGS84）→ 米制包围盒 → 单元 → 角点 → 反投影、取整、去重
// 背景：角点在米制下先按精确值去重，再反投影后按 7 位小数二次去重，吸收往返浮点噪声。
// 约束：任何错误都在产出前返回；结果按纬度、经度排序，保证多次运行一致。
func (g *Generator) Generate(ctx context.Context, border orb.Polygon) (*Result, error) {
	if err := g.validate(border); err != nil {
		return nil, err
	}
	l := logger.Component("grid")
	mg, err := g.Projector.Forward(ctx, border)
	if err != nil {
		return nil, errors.Wrapf(geo.ErrInvalidGeometry, "project border to %s: %v", g.Projector.CRS(), err)
	}
	metric, ok := mg.(orb.Polygon)
	if !ok {
		return nil, errors.Wrapf(geo.ErrInvalidGeometry, "projected border is %T", mg)
	}
	if err := geo.ValidatePolygon(metric); err != nil {
		return nil, errors.Wrap(err, "projected border")
	}
	b := metric.Bound()
	nx, ny := Dims(b, g.CellSize)
	maxCells := g.MaxCells
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	if nx*ny > maxCells || nx*ny < 0 {
		return nil, errors.Wrapf(geo.ErrInvalidParameters, "grid of %dx%d cells exceeds limit %d", nx, ny, maxCells)
	}
	l.Debug("grid_bbox", "crs", g.Projector.CRS(), "min_x", b.Min[0], "min_y", b.Min[1], "max_x", b.Max[0], "max_y", b.Max[1], "cols", nx, "rows", ny)

	seen := make(map[orb.Point]struct{})
	var corners orb.MultiPoint
	add := func(p orb.Point) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		corners = append(corners, p)
	}
	used := 0
	var ctxErr error
	Cells(b, g.CellSize, func(c Cell) bool {
		if c.I == 0 {
			if ctxErr = ctx.Err(); ctxErr != nil {
				return false
			}
		}
		switch g.Policy {
		case PolicyClip:
			pts := clipCell(c, metric)
			if len(pts) == 0 {
				return true
			}
			used++
			for _, p := range pts {
				add(p)
			}
		case PolicyIntersecting:
			if !cellIntersects(c, metric) {
				return true
			}
			used++
			for _, p := range c.Corners() {
				add(p)
			}
		}
		return true
	})
	if ctxErr != nil {
		return nil, ctxErr
	}
	if len(corners) == 0 {
		return &Result{Bound: b}, nil
	}
	back, err := g.Projector.Inverse(ctx, corners)
	if err != nil {
		return nil, errors.Wrapf(geo.ErrInvalidGeometry, "unproject %d corners: %v", len(corners), err)
	}
	mp, ok := back.(orb.MultiPoint)
	if !ok || len(mp) != len(corners) {
		return nil, errors.Wrap(geo.ErrInvalidGeometry, "unprojected corners do not match input")
	}
	out := Dedupe(mp)
	l.Info("grid_done", "policy", string(g.Policy), "cell_size_m", g.CellSize, "cells", used, "corners", len(corners), "points", len(out))
	return &Result{Points: out, Cells: used, Bound: b}, nil
}

// Dedupe：取整到 geo.CoordPrecision 后按坐标值去重并排序
func Dedupe(pts []orb.Point) []geo.GridPoint {
	idx := make(map[orb.Point]struct{}, len(pts))
	out := make([]geo.GridPoint, 0, len(pts))
	for _, p := range pts {
		gp := geo.NewGridPoint(p)
		if _, ok := idx[gp.Point]; ok {
			continue
		}
		idx[gp.Point] = struct{}{}
		out = append(out, gp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Point[1] != out[j].Point[1] {
			return out[i].Point[1] < out[j].Point[1]
		}
		return out[i].Point[0] < out[j].Point[0]
	})
	return out
}
