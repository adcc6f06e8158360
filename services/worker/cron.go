package worker

import (
	"sjsage522/examwatcher/logger"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts the zerolog-based logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msgf("cron: %s", msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msgf("cron: %s", msg)
}
