package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/envrelay/envrelay/internal/log"
)

type logger struct {
	entry *logrus.Entry
}

// NewLogrus returns a new log.Logger implementation based on logrus.
func NewLogrus(entry *logrus.Entry) log.Logger {
	return logger{entry: entry}
}

func (l logger) Infof(format string, args ...any)    { l.entry.Infof(format, args...) }
func (l logger) Warningf(format string, args ...any) { l.entry.Warnf(format, args...) }
func (l logger) Errorf(format string, args ...any)   { l.entry.Errorf(format, args...) }
func (l logger) Debugf(format string, args ...any)   { l.entry.Debugf(format, args...) }

func (l logger) WithValues(kv log.Kv) log.Logger {
	return logger{entry: l.entry.WithFields(logrus.Fields(kv))}
}
