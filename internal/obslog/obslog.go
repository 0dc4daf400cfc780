// Package obslog configures the sirupsen/logrus logger the CLI uses for
// its build and inference progress messages.
package obslog

import (
	log "github.com/sirupsen/logrus"
)

// New returns a logrus Logger configured for CLI use: text formatting,
// Info level by default, Debug when verbose is set.
func New(verbose bool) *log.Logger {
	l := log.New()
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	l.SetLevel(log.InfoLevel)
	if verbose {
		l.SetLevel(log.DebugLevel)
	}
	return l
}
