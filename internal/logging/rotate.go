package logging

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation bounds how much disk a log file may consume. Zero values fall
// back to keeping everything, which matches lumberjack's own defaults.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewRotatingWriter returns a writer that appends to path and rotates the
// file per the rotation policy. The caller owns the returned closer; logs
// written after Close are dropped by lumberjack, not errored.
func NewRotatingWriter(path string, r Rotation) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    r.MaxSizeMB,
		MaxBackups: r.MaxBackups,
		MaxAge:     r.MaxAgeDays,
		Compress:   r.Compress,
	}
}
