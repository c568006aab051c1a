// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"sector-grid/internal/export"
	"sector-grid/internal/geo"
	"sector-grid/internal/logger"
	"sector-grid/internal/metrics"
	"sector-grid/internal/sector"
	"sector-grid/internal/store"
)

// Reader：接口层需要的只读查询，由 store.Store 实现
type Reader interface {
	LoadPoints(ctx context.Context, border string, limit int) ([]geo.GridPoint, error)
	PointsInSector(ctx context.Context, sectorID string) ([]geo.GridPoint, error)
	Stats(ctx context.Context) (*store.Totals, error)
}

// Cache：响应缓存；未命中返回空串
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, val string, ttl time.Duration) error
}

type redisCache struct{ rc *redis.Client }

func (c redisCache) Get(ctx context.Context, key string) (string, error) {
	s, err := c.rc.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return s, err
}

func (c redisCache) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	return c.rc.Set(ctx, key, val, ttl).Err()
}

// RedisCache：rc 为 nil 时返回 nil（不缓存）
func RedisCache(rc *redis.Client) Cache {
	if rc == nil {
		return nil
	}
	return redisCache{rc: rc}
}

// sectorTTL：扇区由参数唯一确定，缓存一天
const sectorTTL = 24 * time.Hour

// 最大返回点数，防止一次拉取整张网格
const maxPointsLimit = 50000

type recorder struct {
	http.ResponseWriter
	status int
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument：按路由记录请求数与耗时
func instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.APIDurationMs.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError：参数错误 400，其余 500
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, geo.ErrInvalidParameters) || errors.Is(err, geo.ErrInvalidGeometry) {
		status = http.StatusBadRequest
	} else {
		logger.L().Error("api_error", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func floatParam(r *http.Request, key string, def float64, required bool) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		if required {
			return 0, errors.Wrapf(geo.ErrInvalidParameters, "missing %s", key)
		}
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(geo.ErrInvalidParameters, "%s=%q", key, s)
	}
	return v, nil
}

func intParam(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(geo.ErrInvalidParameters, "%s=%q", key, s)
	}
	return v, nil
}

// sectorRequest：从查询串解析扇区参数，缺省值与命令行一致
func sectorRequest(r *http.Request) (geo.GridPoint, sector.Params, error) {
	var p sector.Params
	lon, err := floatParam(r, "lon", 0, true)
	if err != nil {
		return geo.GridPoint{}, p, err
	}
	lat, err := floatParam(r, "lat", 0, true)
	if err != nil {
		return geo.GridPoint{}, p, err
	}
	if p.Azimuth, err = floatParam(r, "azimuth", 0, false); err != nil {
		return geo.GridPoint{}, p, err
	}
	if p.Spread, err = floatParam(r, "spread", 60, false); err != nil {
		return geo.GridPoint{}, p, err
	}
	if p.Radius, err = floatParam(r, "radius", 5000, false); err != nil {
		return geo.GridPoint{}, p, err
	}
	if p.Resolution, err = intParam(r, "n", 16); err != nil {
		return geo.GridPoint{}, p, err
	}
	if !geo.Finite(lon, lat) || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return geo.GridPoint{}, p, errors.Wrapf(geo.ErrInvalidParameters, "origin (%v, %v)", lon, lat)
	}
	return geo.NewGridPoint(orb.Point{lon, lat}), p, nil
}

// BuildRoutes：独立 ServeMux，由主入口挂载到 API_BASE 前缀
// 约束：cache 可为 nil；只有 /sector 的响应进入缓存，其余查询直接读库
func BuildRoutes(rd Reader, cache Cache) *http.ServeMux {
	apiMux := http.NewServeMux()

	apiMux.HandleFunc("GET /sector", instrument("sector", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		origin, p, err := sectorRequest(r)
		if err != nil {
			writeError(w, err)
			return
		}
		key := "sector:" + geo.SectorID(origin.ID, p.Azimuth, p.Spread, p.Radius, p.Resolution)
		if cache != nil {
			if s, _ := cache.Get(ctx, key); s != "" {
				metrics.CacheHitsTotal.Inc()
				w.Header().Set("content-type", "application/geo+json; charset=utf-8")
				_, _ = w.Write([]byte(s))
				return
			}
			metrics.CacheMissesTotal.Inc()
		}
		s, err := sector.New(origin, p)
		if err != nil {
			writeError(w, err)
			return
		}
		b, err := json.Marshal(export.SectorFeature(s, 0))
		if err != nil {
			writeError(w, err)
			return
		}
		if cache != nil {
			if err := cache.Set(ctx, key, string(b), sectorTTL); err != nil {
				logger.L().Warn("cache_set_error", "key", key, "err", err)
			}
		}
		w.Header().Set("content-type", "application/geo+json; charset=utf-8")
		_, _ = w.Write(b)
	}))

	apiMux.HandleFunc("GET /points", instrument("points", func(w http.ResponseWriter, r *http.Request) {
		limit, err := intParam(r, "limit", 1000)
		if err != nil {
			writeError(w, err)
			return
		}
		if limit <= 0 || limit > maxPointsLimit {
			limit = maxPointsLimit
		}
		pts, err := rd.LoadPoints(r.Context(), r.URL.Query().Get("border"), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, export.Collection(pts, nil, nil))
	}))

	apiMux.HandleFunc("GET /sectors/{id}/points", instrument("sector_points", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		pts, err := rd.PointsInSector(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		ids := make([]string, 0, len(pts))
		for _, p := range pts {
			ids = append(ids, p.ID)
		}
		writeJSON(w, http.StatusOK, map[string]any{"sector_id": id, "count": len(pts), "point_ids": ids})
	}))

	apiMux.HandleFunc("GET /stats", instrument("stats", func(w http.ResponseWriter, r *http.Request) {
		t, err := rd.Stats(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}))

	apiMux.Handle("GET /metrics", metrics.Handler())
	return apiMux
}
