// 包 logger：进程级 slog 日志器；级别、格式与源码位置由环境变量控制
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.Mutex
	defaultLogger *slog.Logger
)

// ParseLevel：LOG_LEVEL 文本转级别，未知值回退到 info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New：按给定输出与配置构造日志器，便于测试注入缓冲区
func New(w io.Writer, level, format string, addSource bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level), AddSource: addSource}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Setup：初始化默认日志器
// 约束：输出固定为标准错误；LOG_LEVEL、LOG_FORMAT（text/json）、LOG_SOURCE=true 控制行为
func Setup() *slog.Logger {
	l := New(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Getenv("LOG_SOURCE") == "true")
	Set(l)
	return l
}

// L：获取默认日志器；未初始化时先 Setup
func L() *slog.Logger {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if l == nil {
		return Setup()
	}
	return l
}

// Set：替换默认日志器；传 nil 时下次 L() 重新 Setup
func Set(l *slog.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// Component：带组件名的子日志器，如 grid / sector / store
func Component(name string) *slog.Logger { return L().With("component", name) }
