// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds both the structured logger and its sugared counterpart.
type Logger struct {
	*zap.Logger
	*zap.SugaredLogger
}

// Formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a logger writing to stderr. Levels are debug, info, warn and
// error; formats are json and console.
func New(level, format string) (*Logger, error) {
	return NewWriter(level, format, os.Stderr)
}

// NewWriter is New with an explicit sink.
func NewWriter(level, format string, w io.Writer) (*Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	case FormatConsole:
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("log format %q: want json or console", format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zapLevel)
	l := zap.New(core, zap.AddCaller())
	return &Logger{Logger: l, SugaredLogger: l.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	l := zap.NewNop()
	return &Logger{Logger: l, SugaredLogger: l.Sugar()}
}

// Flush syncs buffered entries; call it just before exit.
func Flush(l *Logger) {
	// Sync on a terminal stderr returns EINVAL on some platforms.
	_ = l.Logger.Sync()
}
