// Package logging builds the zap logger shared by commands.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to w. Diagnostics at info and above
// are shown by default; verbose lowers the level to debug.
func New(verbose bool, w io.Writer) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	config := zap.NewDevelopmentEncoderConfig()
	config.TimeKey = ""
	config.CallerKey = ""
	config.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !verbose {
		config.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(config), zapcore.AddSync(w), level)
	return zap.New(core)
}

// Level parses a level name, falling back to info.
func Level(name string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
