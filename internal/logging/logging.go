// Package logging configures the structured logger shared by all packages.
package logging

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Options selects the logger's level and format.
type Options struct {
	Level  string // logrus level name; empty means "warn"
	Format string // "text" or "json"
}

// New creates a logger writing to w.
func New(w io.Writer, opts Options) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	if opts.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			DisableColors:    true,
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			QuoteEmptyFields: true,
		})
	}

	log.SetLevel(logrus.WarnLevel)
	if opts.Level != "" {
		if lvl, err := logrus.ParseLevel(opts.Level); err == nil {
			log.SetLevel(lvl)
		}
	}
	return log
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
