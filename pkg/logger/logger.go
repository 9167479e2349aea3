package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

type Fields = logrus.Fields

func Init() {
	log = logrus.New()
	log.SetOutput(os.Stdout)

	if os.Getenv("ENVIRONMENT") == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		log.SetLevel(logrus.DebugLevel)
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := logrus.ParseLevel(lvl); err == nil {
			log.SetLevel(parsed)
		}
	}
}

// WithFields returns an entry carrying structured key/value context.
func WithFields(fields Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// WithComponent tags every line from a long-lived subsystem (reaper, storage
// breaker) so its output can be filtered.
func WithComponent(name string) *logrus.Entry {
	return log.WithField("component", name)
}

func Info(args ...interface{}) {
	log.Info(args...)
}

func Error(args ...interface{}) {
	log.Error(args...)
}

func Debug(args ...interface{}) {
	log.Debug(args...)
}

func Warn(args ...interface{}) {
	log.Warn(args...)
}

func Fatal(args ...interface{}) {
	log.Fatal(args...)
}
