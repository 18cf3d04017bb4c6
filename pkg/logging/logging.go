// Package logging configures the shared logrus logger used across the
// application.
package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Configure sets level and output format on the standard logrus logger.
// format is "text" or "json"; an empty level defaults to info.
func Configure(out io.Writer, level, format string) error {
	l := logrus.StandardLogger()
	if out != nil {
		l.SetOutput(out)
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(lvl)
	switch format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// For returns a logger entry tagged with the component name.
func For(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}
