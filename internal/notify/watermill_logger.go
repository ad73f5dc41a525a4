package notify

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

// WatermillLogger bridges watermill's logging onto logrus.
func WatermillLogger(logger logrus.FieldLogger) watermill.LoggerAdapter {
	return watermillLogger{logger: logger}
}

type watermillLogger struct {
	logger logrus.FieldLogger
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.with(fields).WithError(err).Error(msg)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.with(fields).Info(msg)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.with(fields).Debug(msg)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.with(fields).Debug(msg)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{logger: l.with(fields)}
}

func (l watermillLogger) with(fields watermill.LogFields) logrus.FieldLogger {
	if len(fields) == 0 {
		return l.logger
	}
	return l.logger.WithFields(logrus.Fields(fields))
}
