package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logger at the level named by LOG_LEVEL (default info).
// verbose forces the debug level.
func New(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		parsed, err := logrus.ParseLevel(v)
		if err != nil {
			log.Warnf("Invalid LOG_LEVEL '%s', defaulting to 'info'", v)
		} else {
			level = parsed
		}
	}
	if verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	return log
}
