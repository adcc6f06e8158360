package internal

import (
	"sjsage522/examwatcher/services/cache"
	"sjsage522/examwatcher/services/metrics"
	"sjsage522/examwatcher/services/publisher"
	"sjsage522/examwatcher/services/telegram"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher // nil when no stream is configured
	Metrics   *metrics.Metrics
	Telegram  *telegram.Client
}

// Cleanup releases connections held by the dependencies
func (d *Dependencies) Cleanup() error {
	if d.Publisher != nil {
		return d.Publisher.Close()
	}
	return nil
}
