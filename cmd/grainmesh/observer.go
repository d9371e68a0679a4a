package main

import (
	"log/slog"
)

// levelFromFlags returns the log level selected by the -vv, -v and -q
// flags, evaluated in that order. The default level is warn.
func levelFromFlags(vv, v, q bool) slog.Level {
	switch {
	case vv:
		return slog.LevelDebug
	case v:
		return slog.LevelInfo
	case q:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// logObserver reports meshing progress to a structured logger.
type logObserver struct {
	log *slog.Logger
	// step is the minimum progress increase in percent between two
	// progress records.
	step int
	last int
}

func newLogObserver(log *slog.Logger, stage string) *logObserver {
	return &logObserver{log: log.With("stage", stage), step: 10, last: -100}
}

func (o *logObserver) Status(msg string) { o.log.Info(msg) }

func (o *logObserver) Progress(percent int) {
	if percent-o.last < o.step && percent != 100 {
		return
	}
	o.last = percent
	o.log.Debug("progress", "percent", percent)
}

func (o *logObserver) Error(msg string, code int) { o.log.Error(msg, "code", code) }
