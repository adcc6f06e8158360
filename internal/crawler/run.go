package crawler

import (
	"context"
	"time"

	"sjsage522/examwatcher/logger"
	"sjsage522/examwatcher/pkg/errors"
	"sjsage522/examwatcher/services/metrics"
)

// CrawlRun walks pages 1..PageRangeEnd-1 one at a time
type CrawlRun struct {
	Fetcher      Fetcher
	Extractor    *TableExtractor
	PageRangeEnd int
	Delay        time.Duration
	Metrics      *metrics.Metrics

	sleep func(ctx context.Context, d time.Duration) error
	log   *logger.Logger
}

// NewCrawlRun creates a crawl over the given page range
func NewCrawlRun(fetcher Fetcher, extractor *TableExtractor, pageRangeEnd int, delay time.Duration, m *metrics.Metrics) *CrawlRun {
	return &CrawlRun{
		Fetcher:      fetcher,
		Extractor:    extractor,
		PageRangeEnd: pageRangeEnd,
		Delay:        delay,
		Metrics:      m,
		sleep:        sleepContext,
		log:          logger.ForCrawler(),
	}
}

// Run fetches, extracts and classifies every page in order.
// Page failures contribute zero records; only ctx cancellation stops early.
// The delay follows every fetch attempt, failed ones included.
func (c *CrawlRun) Run(ctx context.Context) CrawlResult {
	var result CrawlResult

	for page := 1; page < c.PageRangeEnd; page++ {
		if ctx.Err() != nil {
			c.log.Warn().Int("page", page).Msg("Crawl interrupted")
			break
		}

		c.crawlPage(ctx, page, &result)

		if err := c.sleep(ctx, c.Delay); err != nil {
			break
		}
	}

	c.log.Info().
		Int("pages", result.PagesAttempted).
		Int("failed", result.PagesFailed).
		Int("without_table", result.PagesWithoutTable).
		Int("rows_skipped", result.RowsSkipped).
		Int("incomplete", len(result.Incomplete)).
		Int("completed", len(result.Completed)).
		Int("records", result.Total()).
		Msg("Crawl finished")

	return result
}

func (c *CrawlRun) crawlPage(ctx context.Context, page int, result *CrawlResult) {
	log := c.log.WithField("page", page)
	result.PagesAttempted++

	log.Debug().Msg("Scraping page")
	body, err := c.Fetcher.Fetch(ctx, page)
	if err != nil {
		result.PagesFailed++
		if errors.Is(err, errors.ErrorTypeRateLimit) {
			c.Metrics.IncPage("rate_limited")
		} else {
			c.Metrics.IncPage("fetch_failed")
		}
		log.Error().Err(err).Msg("Failed to retrieve page")
		return
	}

	records, stats := c.Extractor.Extract(body)
	result.RowsSkipped += stats.RowsSkipped
	c.Metrics.AddRowsSkipped(stats.RowsSkipped)
	if !stats.TableFound {
		result.PagesWithoutTable++
		c.Metrics.IncPage("no_table")
		log.Debug().Err(errors.NewStructure("page", "results table not found")).Msg("No table found")
		return
	}
	c.Metrics.IncPage("ok")

	incomplete, completed := Classify(records)
	result.Incomplete = append(result.Incomplete, incomplete...)
	result.Completed = append(result.Completed, completed...)
	c.Metrics.AddRecords(Incomplete.String(), len(incomplete))
	c.Metrics.AddRecords(Completed.String(), len(completed))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
