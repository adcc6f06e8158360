package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sjsage522/examwatcher/helpers"
	"sjsage522/examwatcher/logger"
	"sjsage522/examwatcher/pkg/errors"
	"sjsage522/examwatcher/services/cache"
)

// PageFetcher fetches listing pages by appending the page index to BaseURL
type PageFetcher struct {
	BaseURL   string
	Client    *http.Client
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration

	log *logger.Logger
}

// NewPageFetcher creates a fetcher with the given request timeout.
// cacheSvc may be nil, in which case 429 answers do not block later requests.
func NewPageFetcher(baseURL string, timeout time.Duration, cacheSvc cache.CacheService, blockTime time.Duration) *PageFetcher {
	return &PageFetcher{
		BaseURL:   baseURL,
		Client:    helpers.NewHTTPClient(timeout),
		CacheKey:  "examwatcher_rate_limited",
		CacheSvc:  cacheSvc,
		BlockTime: blockTime,
		log:       logger.ForCrawler(),
	}
}

// URL returns the address of the given page
func (f *PageFetcher) URL(page int) string {
	return f.BaseURL + strconv.Itoa(page)
}

// Fetch retrieves one page, failing fast while a rate-limit block is active
func (f *PageFetcher) Fetch(ctx context.Context, page int) ([]byte, error) {
	if f.blocked() {
		return nil, errors.NewRateLimit(f.CacheKey, f.BlockTime)
	}

	body, err := helpers.FetchWithRandomHeaders(ctx, f.Client, f.URL(page))
	if err != nil {
		if errors.Is(err, errors.ErrorTypeRateLimit) {
			f.block()
		}
		return nil, err
	}
	return body, nil
}

func (f *PageFetcher) blocked() bool {
	if f.CacheSvc == nil || f.CacheKey == "" {
		return false
	}
	_, err := f.CacheSvc.Get(f.CacheKey)
	return err == nil
}

func (f *PageFetcher) block() {
	if f.CacheSvc == nil || f.CacheKey == "" || f.BlockTime <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", f.BlockTime/time.Second))
	if err := f.CacheSvc.Set(f.CacheKey, value, f.BlockTime); err != nil {
		f.log.Warn().Err(err).Msg("Failed to store rate limit block")
		return
	}
	f.log.Warn().Dur("block_time", f.BlockTime).Msg("Source site rate limited us, pausing requests")
}
