package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"sector-grid/internal/border"
	"sector-grid/internal/config"
	"sector-grid/internal/grid"
	"sector-grid/internal/logger"
	"sector-grid/internal/migrate"
	"sector-grid/internal/pipeline"
	"sector-grid/internal/projection"
	"sector-grid/internal/store"
	"sector-grid/internal/utils"
)

// 文档注释：边界 → 网格点 → 入库（PostGIS，可选 Redis）
// 背景：边界优先读 BORDER_FILE，否则按 BORDER_NAME 从 _borders 读取；GRID_CRS=auto 时按边界中心选 UTM 带。
// 约束：GRID_CLIP_POLICY 必须显式配置；RUN_SECTORS=true 时在同一进程内继续构造扇区与相交。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	cfg, err := config.Load()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)
	defer st.Close()
	if err := migrate.EnsureSchema(ctx, st.DB()); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}

	name, poly, err := loadBorder(ctx, cfg, st)
	if err != nil {
		l.Error("border_load_error", "err", err)
		os.Exit(1)
	}
	proj, err := projector(cfg, st, poly)
	if err != nil {
		l.Error("projection_error", "crs", cfg.Grid.CRS, "err", err)
		os.Exit(1)
	}
	l.Info("grid_config", "border", name, "crs", proj.CRS(), "engine", cfg.Engine, "cell_m", cfg.Grid.CellSizeM, "policy", cfg.Grid.Policy)

	var sink pipeline.Port
	if rc := utils.OpenRedisFromEnv(); rc != nil {
		defer rc.Close()
		sink = store.NewRedisSink(rc, "sectorgrid:"+name)
	}
	port := pipeline.NewFanout(st.ForBorder(name), sink)
	gen := &grid.Generator{Projector: proj, CellSize: cfg.Grid.CellSizeM, Policy: cfg.Policy()}

	if os.Getenv("RUN_SECTORS") == "true" {
		rep, err := pipeline.Run(ctx, gen, poly, cfg.Plan(), cfg.Workers, port)
		if err != nil {
			l.Error("pipeline_error", "err", err)
			os.Exit(1)
		}
		l.Info("grid_build_done", "points", rep.Points, "sectors", rep.Sectors, "intersections", rep.Intersections)
		return
	}
	res, err := pipeline.BuildGrid(ctx, gen, poly, port)
	if err != nil {
		l.Error("grid_error", "err", err)
		os.Exit(1)
	}
	l.Info("grid_build_done", "points", len(res.Points), "cells", res.Cells)
}

func loadBorder(ctx context.Context, cfg *config.Config, st *store.Store) (string, orb.Polygon, error) {
	if cfg.Border.File != "" {
		b, err := border.LoadFile(cfg.Border.File, cfg.Border.Name)
		if err != nil {
			return "", nil, err
		}
		return b.Name, b.Polygon, nil
	}
	if cfg.Border.Name == "" {
		return "", nil, errors.New("BORDER_FILE or BORDER_NAME required")
	}
	poly, err := st.LoadBorder(ctx, cfg.Border.Name)
	return cfg.Border.Name, poly, err
}

func projector(cfg *config.Config, st *store.Store, poly orb.Polygon) (projection.Projector, error) {
	crs := projection.ResolveCRS(cfg.Grid.CRS, poly)
	if cfg.Engine == config.EnginePostGIS {
		return store.NewPostGISProjector(st.DB(), crs)
	}
	return projection.NewLocal(crs)
}
