package logging

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the optional rolling-file sink. The zero value logs to
// stdout only.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func New(level string, opts ...Options) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(strings.ToLower(strings.TrimSpace(level))); err != nil {
		lvl = zapcore.InfoLevel
	}

	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Path == "" {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.Encoding = "json"
		cfg.EncoderConfig.TimeKey = "ts"
		return cfg.Build()
	}

	if dir := filepath.Dir(o.Path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	enc := zapcore.NewJSONEncoder(encCfg)

	lj := &lumberjack.Logger{
		Filename:   o.Path,
		MaxSize:    nz(o.MaxSizeMB, 100),
		MaxBackups: nz(o.MaxBackups, 3),
		MaxAge:     nz(o.MaxAgeDays, 7),
		Compress:   o.Compress,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl),
		zapcore.NewCore(enc, zapcore.AddSync(lj), lvl),
	)
	return zap.New(core, zap.AddCaller()), nil
}

func nz(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
