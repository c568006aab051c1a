package store

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/pkg/errors"

	"sector-grid/internal/geo"
	"sector-grid/internal/projection"
)

// 文档注释：PostGIS 投影（ST_Transform）
// 背景：作为进程外几何引擎的投影实现，与进程内 projection.Local 共用接口；支持 spatial_ref_sys 中的任意 SRID。
// 约束：一次调用传送整块几何（WKB），角点以 MultiPoint 形式一次反投影；失败统一归为 geo.ErrInvalidGeometry。
type PostGISProjector struct {
	db   *sql.DB
	srid int
}

// NewPostGISProjector：crs 形如 EPSG:32633
func NewPostGISProjector(db *sql.DB, crs string) (*PostGISProjector, error) {
	srid, err := projection.ParseEPSG(crs)
	if err != nil {
		return nil, err
	}
	return &PostGISProjector{db: db, srid: srid}, nil
}

func (p *PostGISProjector) CRS() string { return "EPSG:" + strconv.Itoa(p.srid) }

func (p *PostGISProjector) Forward(ctx context.Context, g orb.Geometry) (orb.Geometry, error) {
	return p.transform(ctx, g, 4326, p.srid)
}

func (p *PostGISProjector) Inverse(ctx context.Context, g orb.Geometry) (orb.Geometry, error) {
	return p.transform(ctx, g, p.srid, 4326)
}

func (p *PostGISProjector) transform(ctx context.Context, g orb.Geometry, from, to int) (orb.Geometry, error) {
	if g == nil {
		return nil, errors.Wrap(geo.ErrInvalidGeometry, "nil geometry")
	}
	sc := wkb.Scanner(nil)
	err := p.db.QueryRowContext(ctx,
		`SELECT ST_AsBinary(ST_Transform(ST_SetSRID(ST_GeomFromWKB($1), $2::int), $3::int))`,
		wkb.Value(g), from, to).Scan(sc)
	if err != nil {
		return nil, errors.Wrapf(geo.ErrInvalidGeometry, "st_transform %d->%d: %v", from, to, err)
	}
	if !sc.Valid || sc.Geometry == nil {
		return nil, errors.Wrapf(geo.ErrInvalidGeometry, "st_transform %d->%d returned null", from, to)
	}
	return sc.Geometry, nil
}
