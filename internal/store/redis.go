package store

import (
	"context"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"sector-grid/internal/geo"
	"sector-grid/internal/logger"
)

// redisWriter：RedisSink 用到的命令子集，*redis.Client 满足该接口
type redisWriter interface {
	GeoAdd(ctx context.Context, key string, geoLocation ...*redis.GeoLocation) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// 每条命令携带的最大成员数
const redisChunk = 1000

// 文档注释：Redis 结果落地
// 背景：网格点写入 GEO 集合（可直接 GEORADIUS 查询），扇区以 WKT 存入哈希，相交结果按扇区分组为集合，供前端快速读取。
// 约束：键前缀由调用方给定；写入幂等（GEOADD/HSET/SADD 均为覆盖或去重语义）。
type RedisSink struct {
	rc     redisWriter
	prefix string
}

func NewRedisSink(rc *redis.Client, prefix string) *RedisSink {
	return newRedisSink(rc, prefix)
}

func newRedisSink(rc redisWriter, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "sectorgrid"
	}
	return &RedisSink{rc: rc, prefix: prefix}
}

func (r *RedisSink) PointsKey() string                { return r.prefix + ":points" }
func (r *RedisSink) SectorsKey() string               { return r.prefix + ":sectors" }
func (r *RedisSink) SectorKey(sectorID string) string { return r.prefix + ":sector:" + sectorID + ":points" }

func (r *RedisSink) SavePoints(ctx context.Context, pts []geo.GridPoint) error {
	for lo := 0; lo < len(pts); lo += redisChunk {
		hi := min(lo+redisChunk, len(pts))
		locs := make([]*redis.GeoLocation, 0, hi-lo)
		for _, p := range pts[lo:hi] {
			locs = append(locs, &redis.GeoLocation{Name: p.ID, Longitude: p.Point[0], Latitude: p.Point[1]})
		}
		if err := r.rc.GeoAdd(ctx, r.PointsKey(), locs...).Err(); err != nil {
			return errors.Wrap(err, "redis geoadd")
		}
	}
	logger.L().Debug("redis_points_saved", "count", len(pts))
	return nil
}

func (r *RedisSink) SaveSectors(ctx context.Context, sectors []geo.Sector) error {
	for lo := 0; lo < len(sectors); lo += redisChunk {
		hi := min(lo+redisChunk, len(sectors))
		vals := make([]interface{}, 0, 2*(hi-lo))
		for _, s := range sectors[lo:hi] {
			vals = append(vals, s.ID, wkt.MarshalString(s.Polygon))
		}
		if err := r.rc.HSet(ctx, r.SectorsKey(), vals...).Err(); err != nil {
			return errors.Wrap(err, "redis hset")
		}
	}
	logger.L().Debug("redis_sectors_saved", "count", len(sectors))
	return nil
}

func (r *RedisSink) SaveIntersections(ctx context.Context, pairs []geo.Intersection) error {
	groups := make(map[string][]interface{})
	var order []string
	for _, p := range pairs {
		if _, ok := groups[p.SectorID]; !ok {
			order = append(order, p.SectorID)
		}
		groups[p.SectorID] = append(groups[p.SectorID], p.PointID)
	}
	for _, sid := range order {
		if err := r.rc.SAdd(ctx, r.SectorKey(sid), groups[sid]...).Err(); err != nil {
			return errors.Wrapf(err, "redis sadd %s", sid)
		}
	}
	logger.L().Debug("redis_intersections_saved", "count", len(pairs), "sectors", len(order))
	return nil
}
