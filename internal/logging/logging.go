// Package logging builds the process-wide *zap.Logger, optionally routing
// output through lumberjack for size-based rotation. Grounded on the
// zap+lumberjack pairing already present in this module's dependency
// graph (pulled in transitively via gnet and promoted to direct use here,
// the same pairing packetd-packetd wires directly for its own server).
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the logger's verbosity, format, and (optionally) file
// rotation. The zero Config gives info level, JSON encoding, stderr only.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Empty means
	// "info".
	Level string

	// Development selects the console encoder (colorized, human-oriented)
	// instead of JSON. Production deployments should set this false.
	Development bool

	// FilePath, when non-empty, additionally writes JSON-encoded logs
	// through lumberjack at this path with the rotation settings below.
	FilePath   string
	MaxSizeMB  int // default 100
	MaxBackups int // default 3
	MaxAgeDays int // default 28
	Compress   bool
}

// New builds a *zap.Logger from cfg. Callers must call Sync() before
// process exit (best-effort; the returned error is safe to ignore on
// most platforms, per zap's own documented quirk with stderr/stdout).
func New(cfg Config) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	var encoder zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), level),
	}

	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   cfg.Compress,
		}
		fileEncoder := zapcore.NewJSONEncoder(encCfg)
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "", "info":
		return zapcore.InfoLevel
	default:
		return zapcore.InfoLevel
	}
}
