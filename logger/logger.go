// Package logger builds the zap loggers used by the server and the operator
// commands.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON zap logger.
// Debug mode keeps JSON output but lowers the level to debug.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.Level = zap.NewAtomicLevelAt(level(debug, zap.InfoLevel))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]interface{}{"service": "rallyapi"}
	return cfg.Build()
}

// ForCommand builds a console logger on stderr for an operator command so
// the command's own report on stdout stays readable. Only warnings and errors
// are shown unless verbose is set.
func ForCommand(command string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level(verbose, zap.WarnLevel))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Named(command), nil
}

func level(verbose bool, quiet zapcore.Level) zapcore.Level {
	if verbose {
		return zap.DebugLevel
	}
	return quiet
}
