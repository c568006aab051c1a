// 包 migrate：首次运行时创建 PostGIS 扩展、表与索引
package migrate

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"sector-grid/internal/logger"
)

// Statements：建表语句，均为幂等（IF NOT EXISTS）
// 约束：几何统一为 SRID 4326；唯一约束保证重复保存不会产生重复行
var Statements = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS _borders (
        id SERIAL PRIMARY KEY,
        name TEXT NOT NULL UNIQUE,
        level TEXT NOT NULL DEFAULT 'country',
        geom geometry(Polygon, 4326) NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_borders_geom ON _borders USING GIST (geom)`,
	`CREATE TABLE IF NOT EXISTS _grid_points (
        id UUID PRIMARY KEY,
        border_name TEXT NOT NULL DEFAULT '',
        geom geometry(Point, 4326) NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_grid_points_geom ON _grid_points USING GIST (geom)`,
	`CREATE TABLE IF NOT EXISTS _sectors (
        id UUID PRIMARY KEY,
        origin_point_id UUID NOT NULL REFERENCES _grid_points(id) ON DELETE CASCADE,
        azimuth DOUBLE PRECISION NOT NULL,
        spread DOUBLE PRECISION NOT NULL,
        radius_m DOUBLE PRECISION NOT NULL,
        resolution INT NOT NULL,
        geom geometry(Polygon, 4326) NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_sectors_geom ON _sectors USING GIST (geom)`,
	`CREATE INDEX IF NOT EXISTS idx_sectors_origin ON _sectors(origin_point_id)`,
	`CREATE TABLE IF NOT EXISTS _intersections (
        point_id UUID NOT NULL REFERENCES _grid_points(id) ON DELETE CASCADE,
        sector_id UUID NOT NULL REFERENCES _sectors(id) ON DELETE CASCADE,
        PRIMARY KEY (point_id, sector_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_intersections_sector ON _intersections(sector_id)`,
}

// EnsureSchema：顺序执行建表语句，遇错即返回
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	l := logger.L()
	for i, s := range Statements {
		l.Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return errors.Wrapf(err, "schema statement %d", i)
		}
	}
	l.Debug("schema_done", "statements", len(Statements))
	return nil
}
