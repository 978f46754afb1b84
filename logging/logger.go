// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	logFilePrefix = "issuer-contract-tests"
)

// Options selects where and how the harness logs.
type Options struct {
	Level  string
	Format string

	// Location is a directory for log files. Empty means only the console.
	Location string

	// Console is the console destination. Nil means stderr.
	Console io.Writer
}

// Configure applies the options to logger. An unparseable level falls back to info. When a
// log file was opened, it is returned so the caller can close it.
func Configure(logger *logrus.Logger, opts Options) (*os.File, error) {
	if opts.Level != "" {
		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			logger.WithError(err).Errorf("could not parse log level<%s>, setting to info", opts.Level)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	}

	switch opts.Format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case FormatText, "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("unknown log format<%s>", opts.Format)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	logger.SetOutput(console)
	if opts.Location == "" {
		return nil, nil
	}

	now := time.Now()
	name := logFilePrefix + "-" + now.Format("2006-01-02") + "-" + strconv.FormatInt(now.Unix(), 10) + ".log"
	file, err := os.OpenFile(filepath.Join(opts.Location, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		logger.WithError(err).Warn("failed to create log file, using console only")
		return nil, nil
	}
	logger.SetOutput(io.MultiWriter(console, file))
	return file, nil
}
