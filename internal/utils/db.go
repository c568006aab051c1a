// 包 utils：PostgreSQL/PostGIS 与 Redis 连接工具，统一环境变量读取
package utils

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			return n
		}
	}
	return def
}

// BuildPostgresDSNFromEnv：由 PG_* 变量拼出 DSN
// 约束：用户与密码做 URL 转义；未配置时连本机 sectorgrid 库
func BuildPostgresDSNFromEnv() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   envOr("PG_HOST", "localhost") + ":" + envOr("PG_PORT", "5432"),
		Path:   "/" + envOr("PG_DB", "sectorgrid"),
	}
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(envOr("PG_USER", "postgres"), pass)
	} else {
		u.User = url.User(envOr("PG_USER", "postgres"))
	}
	q := url.Values{}
	q.Set("sslmode", envOr("PG_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// OpenPostgres：按 DSN 打开连接池
func OpenPostgres(dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// OpenPostgresFromEnv：读取 PG_MAX_OPEN_CONNS / PG_MAX_IDLE_CONNS 后打开连接池
// 背景：批处理命令行只需少量连接，默认值低于服务端
func OpenPostgresFromEnv() (*sql.DB, error) {
	return OpenPostgres(BuildPostgresDSNFromEnv(), envInt("PG_MAX_OPEN_CONNS", 10), envInt("PG_MAX_IDLE_CONNS", 5))
}

// PingWithTimeout：带超时的连通性检查
func PingWithTimeout(db *sql.DB, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return db.PingContext(ctx)
}
