package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the process-wide logrus logger. When file is set, entries
// are also written as JSON to a rotated log file.
func Setup(level, file string, production bool) {
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)

	if production {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if strings.TrimSpace(file) != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	log.SetOutput(out)
}

// Area returns an entry tagged with the subsystem name, e.g. "AUTH" or "CASCADE".
func Area(name string) *log.Entry {
	return log.WithField("area", name)
}
