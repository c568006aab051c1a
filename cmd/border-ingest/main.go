package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"sector-grid/internal/border"
	"sector-grid/internal/logger"
	"sector-grid/internal/migrate"
	"sector-grid/internal/store"
	"sector-grid/internal/utils"
)

// 文档注释：把 GeoJSON 国界写入 _borders
// 背景：多部分国界只保留面积最大的部分；同名边界再次导入时覆盖几何。
// 约束：BORDER_FILE 必填；BORDER_NAME 为空时取第一个面要素。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	path := os.Getenv("BORDER_FILE")
	if path == "" {
		l.Error("border_file_missing")
		os.Exit(1)
	}
	b, err := border.LoadFile(path, os.Getenv("BORDER_NAME"))
	if err != nil {
		l.Error("border_parse_error", "path", path, "err", err)
		os.Exit(1)
	}
	l.Info("border_parsed", "name", b.Name, "parts", b.Parts, "vertices", len(b.Polygon[0]))

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)
	defer st.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := migrate.EnsureSchema(ctx, st.DB()); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	if err := st.SaveBorder(ctx, b.Name, b.Level, b.Polygon); err != nil {
		l.Error("border_save_error", "err", err)
		os.Exit(1)
	}
	l.Info("border_ingest_done", "name", b.Name)
}
