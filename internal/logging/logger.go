// File: internal/logging/logger.go
// Author: momentics <momentics@gmail.com>
//
// Package logging builds the console logger and the zap-backed event sink.
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures NewLogger. Nil writers default to the process streams.
type Options struct {
	Level  string
	Color  bool
	Stdout zapcore.WriteSyncer
	Stderr zapcore.WriteSyncer
}

// NewLogger returns a console logger that writes entries below warn to
// Stdout and warn or above to Stderr.
func NewLogger(o Options) (*zap.Logger, error) {
	floor, err := zapcore.ParseLevel(o.Level)
	if err != nil {
		return nil, err
	}
	if o.Stdout == nil {
		o.Stdout = zapcore.Lock(os.Stdout)
	}
	if o.Stderr == nil {
		o.Stderr = zapcore.Lock(os.Stderr)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if o.Color {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	enc := zapcore.NewConsoleEncoder(encCfg)

	info := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= floor && l < zapcore.WarnLevel
	})
	warn := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= floor && l >= zapcore.WarnLevel
	})
	core := zapcore.NewTee(
		zapcore.NewCore(enc, o.Stdout, info),
		zapcore.NewCore(enc.Clone(), o.Stderr, warn),
	)
	return zap.New(core, zap.ErrorOutput(o.Stderr)), nil
}

// ColorEnabled resolves a color mode ("auto", "always", "never") for f.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
