package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"sector-grid/internal/config"
	"sector-grid/internal/export"
	"sector-grid/internal/geo"
	"sector-grid/internal/intersect"
	"sector-grid/internal/logger"
	"sector-grid/internal/migrate"
	"sector-grid/internal/pipeline"
	"sector-grid/internal/store"
	"sector-grid/internal/utils"
)

// 文档注释：读取已入库的网格点，构造扇区并计算相交
// 背景：扇区参数来自 PLAN_FILE / SECTOR_*；VERIFY_POSTGIS=true 时用 ST_Covers 逐对复核本次扇区的配对。
// 约束：EXPORT_GEOJSON 非空时把本次结果写成 FeatureCollection。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	cfg, err := config.LoadSectors()
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
	pts, err := st.LoadPoints(ctx, cfg.Border.Name, 0)
	if err != nil {
		l.Error("points_load_error", "err", err)
		os.Exit(1)
	}
	if len(pts) == 0 {
		l.Error("points_empty", "border", cfg.Border.Name)
		os.Exit(1)
	}
	l.Info("points_loaded", "border", cfg.Border.Name, "count", len(pts))

	var sink pipeline.Port
	if rc := utils.OpenRedisFromEnv(); rc != nil {
		defer rc.Close()
		sink = store.NewRedisSink(rc, "sectorgrid:"+cfg.Border.Name)
	}
	sectors, pairs, err := pipeline.BuildSectors(ctx, pts, cfg.Plan(), cfg.Workers, pipeline.NewFanout(st, sink))
	if err != nil {
		l.Error("sector_build_error", "err", err)
		os.Exit(1)
	}

	if os.Getenv("VERIFY_POSTGIS") == "true" {
		verify(ctx, st, cfg.Border.Name, sectors, pairs)
	}
	if cfg.ExportGeoJSON != "" {
		if err := export.WriteFile(cfg.ExportGeoJSON, export.Collection(pts, sectors, pairs)); err != nil {
			l.Error("export_error", "err", err)
			os.Exit(1)
		}
		l.Info("export_done", "path", cfg.ExportGeoJSON)
	}
	l.Info("sector_build_done", "sectors", len(sectors), "intersections", len(pairs))
}

// verifyLogLimit：差异配对最多逐条打印的条数
const verifyLogLimit = 20

// verify：只比较本次构造的扇区，双向列出缺失与多余的配对
func verify(ctx context.Context, st *store.Store, border string, sectors []geo.Sector, pairs []geo.Intersection) {
	l := logger.Component("verify")
	ids := make([]string, 0, len(sectors))
	for _, s := range sectors {
		ids = append(ids, s.ID)
	}
	covered, err := st.CoveredPairs(ctx, border, ids)
	if err != nil {
		l.Error("verify_error", "err", err)
		return
	}
	missing, extra := intersect.Diff(pairs, covered)
	if len(missing) == 0 && len(extra) == 0 {
		l.Info("verify_ok", "pairs", len(pairs), "sectors", len(ids))
		return
	}
	l.Warn("verify_mismatch", "local", len(pairs), "postgis", len(covered), "missing", len(missing), "extra", len(extra))
	for i, x := range missing {
		if i == verifyLogLimit {
			break
		}
		l.Warn("verify_missing_pair", "point_id", x.PointID, "sector_id", x.SectorID)
	}
	for i, x := range extra {
		if i == verifyLogLimit {
			break
		}
		l.Warn("verify_extra_pair", "point_id", x.PointID, "sector_id", x.SectorID)
	}
}
