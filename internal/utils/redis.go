package utils

import (
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"sector-grid/internal/logger"
)

// OpenRedis：使用地址与密码打开 Redis 客户端；地址为空返回 nil
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// OpenRedisFromEnv：REDIS_ENABLED=true 时按 REDIS_* 变量打开客户端，否则返回 nil
// 约束：REDIS_DB 解析失败或为负时回退到 0
func OpenRedisFromEnv() *redis.Client {
	if os.Getenv("REDIS_ENABLED") != "true" {
		return nil
	}
	addr := envOr("REDIS_HOST", "127.0.0.1") + ":" + envOr("REDIS_PORT", "6379")
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return OpenRedis(addr, os.Getenv("REDIS_PASS"), db)
}
