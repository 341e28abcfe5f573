// Package logger wires logrus loggers through a context.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type logger struct{}

// Options configure a new logger.
type Options struct {
	// Level is a logrus level name (default: warn)
	Level string

	// JSON switches to the JSON formatter
	JSON bool

	// Output defaults to stderr so it never mixes with trace output
	Output io.Writer
}

// New creates a logrus logger from the given options.
// An unknown level falls back to warn.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	log.SetOutput(opts.Output)

	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	log.SetLevel(ParseLevel(opts.Level))
	return log
}

// ParseLevel converts a level name, defaulting to warn.
func ParseLevel(s string) logrus.Level {
	if s == "" {
		return logrus.WarnLevel
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return logrus.WarnLevel
	}
	return lvl
}

// IntoContext returns a copy of ctx carrying the given entry.
func IntoContext(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, logger{}, entry)
}

// FromContext returns the entry stored in ctx, or one on the standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
	return FromContextOr(ctx, nil)
}

// FromContextOr returns the entry stored in ctx, or fallback if there is none.
// A nil fallback means the standard logger.
func FromContextOr(ctx context.Context, fallback *logrus.Entry) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(logger{}).(*logrus.Entry); ok && entry != nil {
			return entry.WithContext(ctx)
		}
	}
	if fallback != nil {
		return fallback
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
