// 包 store：PostGIS 数据访问层，保存边界、网格点、扇区与相交结果
package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/pkg/errors"

	"sector-grid/internal/geo"
	"sector-grid/internal/logger"
)

// ErrBorderNotFound：按名称查不到边界
var ErrBorderNotFound = errors.New("border not found")

// DefaultBatchSize：每批提交的行数，降低锁持有与 WAL 压力
const DefaultBatchSize = 5000

// Store：数据库访问入口；borderName 作为网格点的归属标签
type Store struct {
	db         *sql.DB
	borderName string
	batchSize  int
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db, batchSize: DefaultBatchSize} }

// ForBorder：返回写入网格点时带边界标签的副本
func (s *Store) ForBorder(name string) *Store {
	c := *s
	c.borderName = name
	return &c
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// SaveBorder：按名称写入或覆盖边界
func (s *Store) SaveBorder(ctx context.Context, name, level string, poly orb.Polygon) error {
	if err := geo.ValidatePolygon(poly); err != nil {
		return err
	}
	if level == "" {
		level = "country"
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO _borders(name, level, geom)
        VALUES($1, $2, ST_GeomFromWKB($3, 4326))
        ON CONFLICT (name) DO UPDATE SET level=EXCLUDED.level, geom=EXCLUDED.geom, updated_at=now()`,
		name, level, wkb.Value(poly))
	if err != nil {
		return errors.Wrapf(err, "save border %s", name)
	}
	logger.L().Debug("db_border_saved", "name", name, "level", level, "vertices", len(poly[0]))
	return nil
}

// LoadBorder：按名称读取边界多边形
func (s *Store) LoadBorder(ctx context.Context, name string) (orb.Polygon, error) {
	var poly orb.Polygon
	err := s.db.QueryRowContext(ctx, `SELECT ST_AsBinary(geom) FROM _borders WHERE name=$1`, name).Scan(wkb.Scanner(&poly))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(ErrBorderNotFound, name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load border %s", name)
	}
	return poly, nil
}

// batch：事务内按批执行同一条语句，满 batchSize 行提交一次并重开事务
// 约束：任何一行失败即回滚当前批并返回；已提交的批次保留（语句均为幂等 UPSERT）
func (s *Store) batch(ctx context.Context, query string, n int, args func(i int) []any) error {
	size := s.batchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		if err := s.execBatch(ctx, query, lo, hi, args); err != nil {
			return err
		}
		logger.L().Debug("db_batch_commit", "from", lo, "to", hi)
	}
	return nil
}

func (s *Store) execBatch(ctx context.Context, query string, lo, hi int, args func(i int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()
	for i := lo; i < hi; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// SavePoints：批量写入网格点，已存在的 ID 跳过
func (s *Store) SavePoints(ctx context.Context, pts []geo.GridPoint) error {
	err := s.batch(ctx, `INSERT INTO _grid_points(id, border_name, geom)
        VALUES($1, $2, ST_GeomFromWKB($3, 4326))
        ON CONFLICT (id) DO NOTHING`, len(pts), func(i int) []any {
		return []any{pts[i].ID, s.borderName, wkb.Value(pts[i].Point)}
	})
	if err != nil {
		return errors.Wrap(err, "save points")
	}
	logger.L().Info("db_points_saved", "border", s.borderName, "count", len(pts))
	return nil
}

// SaveSectors：批量写入扇区多边形及其构造参数
func (s *Store) SaveSectors(ctx context.Context, sectors []geo.Sector) error {
	err := s.batch(ctx, `INSERT INTO _sectors(id, origin_point_id, azimuth, spread, radius_m, resolution, geom)
        VALUES($1, $2, $3, $4, $5, $6, ST_GeomFromWKB($7, 4326))
        ON CONFLICT (id) DO NOTHING`, len(sectors), func(i int) []any {
		x := sectors[i]
		return []any{x.ID, x.OriginID, x.Azimuth, x.Spread, x.Radius, x.Resolution, wkb.Value(x.Polygon)}
	})
	if err != nil {
		return errors.Wrap(err, "save sectors")
	}
	logger.L().Info("db_sectors_saved", "count", len(sectors))
	return nil
}

// SaveIntersections：批量写入配对，主键去重
func (s *Store) SaveIntersections(ctx context.Context, pairs []geo.Intersection) error {
	err := s.batch(ctx, `INSERT INTO _intersections(point_id, sector_id) VALUES($1, $2)
        ON CONFLICT (point_id, sector_id) DO NOTHING`, len(pairs), func(i int) []any {
		return []any{pairs[i].PointID, pairs[i].SectorID}
	})
	if err != nil {
		return errors.Wrap(err, "save intersections")
	}
	logger.L().Info("db_intersections_saved", "count", len(pairs))
	return nil
}

func scanPoints(rows *sql.Rows) ([]geo.GridPoint, error) {
	defer rows.Close()
	var out []geo.GridPoint
	for rows.Next() {
		var gp geo.GridPoint
		if err := rows.Scan(&gp.ID, wkb.Scanner(&gp.Point)); err != nil {
			return nil, errors.Wrap(err, "scan point")
		}
		out = append(out, gp)
	}
	return out, errors.Wrap(rows.Err(), "iterate points")
}

// LoadPoints：读取某边界下的网格点（border 为空时读取全部），按纬度、经度排序
// 约束：limit<=0 表示不限
func (s *Store) LoadPoints(ctx context.Context, border string, limit int) ([]geo.GridPoint, error) {
	q := `SELECT id::text, ST_AsBinary(geom) FROM _grid_points
        WHERE ($1 = '' OR border_name = $1)
        ORDER BY ST_Y(geom), ST_X(geom)`
	args := []any{border}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query points")
	}
	return scanPoints(rows)
}

// PointsInSector：查询已保存的相交结果
func (s *Store) PointsInSector(ctx context.Context, sectorID string) ([]geo.GridPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT p.id::text, ST_AsBinary(p.geom)
        FROM _intersections i JOIN _grid_points p ON p.id = i.point_id
        WHERE i.sector_id = $1
        ORDER BY ST_Y(p.geom), ST_X(p.geom)`, sectorID)
	if err != nil {
		return nil, errors.Wrap(err, "query sector points")
	}
	return scanPoints(rows)
}

// CoveredPairs：由 PostGIS 的 ST_Covers（边界计入）重新计算给定扇区的全部配对，用于核对进程内结果
// 约束：只在 sectorIDs 内比较；点取自同一边界（border 为空时不限）
func (s *Store) CoveredPairs(ctx context.Context, border string, sectorIDs []string) ([]geo.Intersection, error) {
	if len(sectorIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT p.id::text, s.id::text
        FROM _sectors s JOIN _grid_points p ON ST_Covers(s.geom, p.geom)
        WHERE s.id = ANY($1::uuid[]) AND ($2 = '' OR p.border_name = $2)
        ORDER BY s.id, p.id`, pq.Array(sectorIDs), border)
	if err != nil {
		return nil, errors.Wrap(err, "query covered pairs")
	}
	defer rows.Close()
	var out []geo.Intersection
	for rows.Next() {
		var x geo.Intersection
		if err := rows.Scan(&x.PointID, &x.SectorID); err != nil {
			return nil, errors.Wrap(err, "scan pair")
		}
		out = append(out, x)
	}
	return out, errors.Wrap(rows.Err(), "iterate pairs")
}

// Totals：各表行数
type Totals struct {
	Borders       int64 `json:"borders"`
	Points        int64 `json:"points"`
	Sectors       int64 `json:"sectors"`
	Intersections int64 `json:"intersections"`
}

// Stats：读取各表行数，用于接口返回
func (s *Store) Stats(ctx context.Context) (*Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `SELECT
        (SELECT COUNT(1) FROM _borders),
        (SELECT COUNT(1) FROM _grid_points),
        (SELECT COUNT(1) FROM _sectors),
        (SELECT COUNT(1) FROM _intersections)`).Scan(&t.Borders, &t.Points, &t.Sectors, &t.Intersections)
	if err != nil {
		return nil, errors.Wrap(err, "stats")
	}
	logger.L().Debug("stats_totals", "points", t.Points, "sectors", t.Sectors, "intersections", t.Intersections)
	return &t, nil
}
