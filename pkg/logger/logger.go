package logger

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amoylab/hydrowatch/internal/common/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger. Output "stdout", "file" or "both";
// file output is rotated by lumberjack.
func NewLogger(cfg *config.LoggerConfig) (*zap.Logger, error) {
	setLoggerDefaults(cfg)

	level := getLogLevel(cfg.Level)
	encoder := getEncoder(cfg)

	var cores []zapcore.Core
	output := strings.ToLower(cfg.Output)
	if output == "stdout" || output == "both" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}
	if output == "file" || output == "both" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder, getLogWriter(cfg), level))
	}
	if len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Stacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func setLoggerDefaults(cfg *config.LoggerConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
	if cfg.FilePath == "" {
		cfg.FilePath = "./logs/apiserver.log"
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 100 // MB
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 7 // days
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = "Local"
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}
}

func getEncoder(cfg *config.LoggerConfig) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Color && cfg.Format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	loc := resolveTimeZone(cfg.TimeZone)
	layout := cfg.TimeFormat
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(layout))
	}
	if cfg.Format == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// resolveTimeZone falls back to the local zone for unknown names
func resolveTimeZone(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil || loc == nil {
		return time.Local
	}
	return loc
}

func getLogWriter(cfg *config.LoggerConfig) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		LocalTime:  true,
		Compress:   cfg.Compress,
	})
}

// getLogLevel maps a level name to zapcore.Level, defaulting to info
func getLogLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
