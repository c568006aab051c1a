// 包 pipeline：边界 → 网格点 → 扇区 → 相交配对的单向批处理流程
package pipeline

import (
	"context"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"sector-grid/internal/geo"
	"sector-grid/internal/grid"
	"sector-grid/internal/intersect"
	"sector-grid/internal/logger"
	"sector-grid/internal/metrics"
	"sector-grid/internal/sector"
)

// SectorPlan：每个网格点要构造的扇区
type SectorPlan struct {
	Azimuths   []float64
	Spread     float64
	Radius     float64
	Resolution int
}

// Validate：全部方位角逐一校验
func (p SectorPlan) Validate() error {
	if len(p.Azimuths) == 0 {
		return errors.Wrap(geo.ErrInvalidParameters, "sector plan has no azimuths")
	}
	for _, az := range p.Azimuths {
		if err := (sector.Params{Azimuth: az, Spread: p.Spread, Radius: p.Radius, Resolution: p.Resolution}).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Report：一次运行的统计
type Report struct {
	Cells         int
	Points        int
	Sectors       int
	Intersections int
	Elapsed       time.Duration
}

func observe(stage string, start time.Time, err error) {
	metrics.StageDurationMs.WithLabelValues(stage).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.StageErrorsTotal.WithLabelValues(stage).Inc()
	}
}

// BuildGrid：生成网格点并保存
func BuildGrid(ctx context.Context, gen *grid.Generator, border orb.Polygon, port Port) (*grid.Result, error) {
	start := time.Now()
	res, err := gen.Generate(ctx, border)
	observe("grid", start, err)
	if err != nil {
		return nil, err
	}
	metrics.GridCellsTotal.Add(float64(res.Cells))
	metrics.GridPointsTotal.Add(float64(len(res.Points)))
	start = time.Now()
	err = port.SavePoints(ctx, res.Points)
	observe("save_points", start, err)
	if err != nil {
		return nil, errors.Wrap(err, "save points")
	}
	return res, nil
}

// BuildSectors：为网格点构造扇区、计算相交并依次保存
func BuildSectors(ctx context.Context, points []geo.GridPoint, plan SectorPlan, workers int, port Port) ([]geo.Sector, []geo.Intersection, error) {
	if err := plan.Validate(); err != nil {
		return nil, nil, err
	}
	l := logger.Component("pipeline")
	start := time.Now()
	sectors, err := sector.Fan(points, plan.Azimuths, plan.Spread, plan.Radius, plan.Resolution)
	observe("sectors", start, err)
	if err != nil {
		return nil, nil, err
	}
	metrics.SectorsTotal.Add(float64(len(sectors)))
	l.Info("sectors_built", "points", len(points), "azimuths", len(plan.Azimuths), "sectors", len(sectors))
	start = time.Now()
	err = port.SaveSectors(ctx, sectors)
	observe("save_sectors", start, err)
	if err != nil {
		return nil, nil, errors.Wrap(err, "save sectors")
	}

	start = time.Now()
	pairs, err := intersect.Test(ctx, points, sectors, workers)
	observe("intersect", start, err)
	if err != nil {
		return nil, nil, err
	}
	metrics.IntersectionsTotal.Add(float64(len(pairs)))
	l.Info("intersections_found", "pairs", len(pairs), "workers", workers, "duration_ms", time.Since(start).Milliseconds())
	start = time.Now()
	err = port.SaveIntersections(ctx, pairs)
	observe("save_intersections", start, err)
	if err != nil {
		return nil, nil, errors.Wrap(err, "save intersections")
	}
	return sectors, pairs, nil
}

// Run：完整流程；扇区参数在生成网格前校验，非法参数不会留下部分结果
func Run(ctx context.Context, gen *grid.Generator, border orb.Polygon, plan SectorPlan, workers int, port Port) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	begin := time.Now()
	res, err := BuildGrid(ctx, gen, border, port)
	if err != nil {
		return nil, err
	}
	sectors, pairs, err := BuildSectors(ctx, res.Points, plan, workers, port)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		Cells:         res.Cells,
		Points:        len(res.Points),
		Sectors:       len(sectors),
		Intersections: len(pairs),
		Elapsed:       time.Since(begin),
	}
	logger.Component("pipeline").Info("pipeline_done", "cells", rep.Cells, "points", rep.Points, "sectors", rep.Sectors, "intersections", rep.Intersections, "elapsed_ms", rep.Elapsed.Milliseconds())
	return rep, nil
}
