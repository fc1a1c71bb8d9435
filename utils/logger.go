package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Logger
}

// InitLogger builds the process logger. An unknown level falls back to debug.
func InitLogger(level string) *Logger {
	logger := logrus.New()

	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.DebugLevel
	}
	logger.SetLevel(lvl)

	return &Logger{logger}
}

// WithComponent tags every entry with the subsystem that produced it.
func (l *Logger) WithComponent(name string) *logrus.Entry {
	return l.WithField("component", name)
}
