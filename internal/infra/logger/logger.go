// Package logger owns the workspace diagnostic log. Command output stays on
// stdout; everything else goes to .bindkit/logs/bindkit.log as JSON lines.
package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Root  string
	Debug bool
}

var (
	mu      sync.RWMutex
	global  = zap.NewNop()
	logPath string
)

// Setup opens the log file under the workspace root and installs the global
// logger. The level comes from BINDKIT_LOG_LEVEL unless Debug forces it down.
// The returned cleanup flushes and closes the file.
func Setup(cfg Config) (func() error, error) {
	root := filepath.Clean(cfg.Root)
	if root == "" {
		root = "."
	}

	dir := filepath.Join(root, ".bindkit", "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		setNop()
		return nil, err
	}

	path := filepath.Join(dir, "bindkit.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		setNop()
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := parseLogLevel(os.Getenv("BINDKIT_LOG_LEVEL"))
	var opts []zap.Option
	if cfg.Debug {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
		opts = append(opts, zap.AddCaller())
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(f), level)
	l := zap.New(core, opts...)

	mu.Lock()
	global = l
	logPath = path
	mu.Unlock()

	l.Info("logger initialized", zap.String("path", path), zap.Bool("debug", cfg.Debug))

	cleanup := func() error {
		mu.Lock()
		defer mu.Unlock()

		_ = global.Sync()
		global = zap.NewNop()
		logPath = ""
		return f.Close()
	}

	return cleanup, nil
}

// L returns the global logger. Before Setup (or after cleanup) it is a nop,
// so call sites never need a nil check.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return logPath
}

func setNop() {
	mu.Lock()
	defer mu.Unlock()
	global = zap.NewNop()
	logPath = ""
}

func parseLogLevel(s string) zap.AtomicLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "WARN":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "ERROR":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}
