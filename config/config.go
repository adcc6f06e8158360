package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/examwatcher/pkg/errors"
)

// DefaultBaseURL is the computer-delivered exam listing for Tehran; the page index is appended to it.
const DefaultBaseURL = "https://ieltsadd.ir/test?originalType=1%2C3&type=1%2C5&province=%D8%AA%D9%87%D8%B1%D8%A7%D9%86&typeMaterial=%DA%A9%D8%A7%D9%85%D9%BE%DB%8C%D9%88%D8%AA%D8%B1%DB%8C&page="

// Config represents the application configuration
type Config struct {
	// Telegram configuration
	TelegramBotToken string
	TelegramAPIURL   string
	OwnerChatID      string
	ChatIDs          []string
	MessageLimit     int
	SendRate         float64
	ManualBroadcast  bool

	// Crawler configuration
	BaseURL        string
	PageRangeEnd   int
	RequestDelay   time.Duration
	RequestTimeout time.Duration
	BlockTime      time.Duration

	// Scheduling and alerting
	ScheduleInterval time.Duration
	QuietTimeout     time.Duration
	QuietRepeat      time.Duration
	RunOnStart       bool

	// Export configuration
	ExportDir    string
	ExportFormat string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Metrics
	MetricsAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	quietTimeout := time.Duration(getEnvInt("NO_RESULT_TIMEOUT_MINUTES", 60)) * time.Minute
	quietRepeat := quietTimeout
	if v := getEnvInt("QUIET_REPEAT_MINUTES", 0); v > 0 {
		quietRepeat = time.Duration(v) * time.Minute
	}

	owner := strings.TrimSpace(os.Getenv("BOT_OWNER_CHAT_ID"))

	return &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		OwnerChatID:      owner,
		ChatIDs:          recipients(getEnv("TELEGRAM_CHAT_IDS", "[]"), owner),
		MessageLimit:     getEnvInt("MESSAGE_LIMIT", 4000),
		SendRate:         getEnvFloat("SEND_RATE_PER_SECOND", 20),
		ManualBroadcast:  getEnvBool("MANUAL_BROADCAST", false),

		BaseURL:        getEnv("BASE_URL", DefaultBaseURL),
		PageRangeEnd:   getEnvInt("PAGE_RANGE_END", 11),
		RequestDelay:   time.Duration(getEnvFloat("REQUEST_DELAY", 1) * float64(time.Second)),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		BlockTime:      time.Duration(getEnvInt("BLOCK_TIME_SECONDS", 300)) * time.Second,

		ScheduleInterval: time.Duration(getEnvInt("SCHEDULE_INTERVAL_MINUTES", 5)) * time.Minute,
		QuietTimeout:     quietTimeout,
		QuietRepeat:      quietRepeat,
		RunOnStart:       getEnvBool("RUN_ON_START", true),

		ExportDir:    os.Getenv("EXPORT_DIR"),
		ExportFormat: strings.ToLower(getEnv("EXPORT_FORMAT", "csv")),

		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "examwatcher:alerts"),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),

		MemcacheAddr: os.Getenv("MEMCACHE_ADDR"),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),

		Environment: getEnv("EXAMWATCHER_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration can start the scheduler
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return errors.NewConfiguration("TELEGRAM_BOT_TOKEN is required", nil)
	}
	if c.OwnerChatID == "" {
		return errors.NewConfiguration("BOT_OWNER_CHAT_ID is required", nil)
	}
	if c.BaseURL == "" {
		return errors.NewConfiguration("BASE_URL must not be empty", nil)
	}
	if c.PageRangeEnd < 2 {
		return errors.NewConfiguration(fmt.Sprintf("PAGE_RANGE_END must be at least 2, got %d", c.PageRangeEnd), nil)
	}
	if c.RequestDelay < 0 {
		return errors.NewConfiguration("REQUEST_DELAY must not be negative", nil)
	}
	if c.RequestTimeout <= 0 {
		return errors.NewConfiguration("REQUEST_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.ScheduleInterval <= 0 {
		return errors.NewConfiguration("SCHEDULE_INTERVAL_MINUTES must be positive", nil)
	}
	if c.QuietTimeout <= 0 || c.QuietRepeat <= 0 {
		return errors.NewConfiguration("quiet period durations must be positive", nil)
	}
	if c.MessageLimit <= 0 || c.MessageLimit > 4096 {
		return errors.NewConfiguration(fmt.Sprintf("MESSAGE_LIMIT must be in (0, 4096], got %d", c.MessageLimit), nil)
	}
	if c.SendRate <= 0 {
		return errors.NewConfiguration("SEND_RATE_PER_SECOND must be positive", nil)
	}
	if c.ExportFormat != "csv" && c.ExportFormat != "xlsx" {
		return errors.NewConfiguration(fmt.Sprintf("unsupported EXPORT_FORMAT %q", c.ExportFormat), nil)
	}
	return nil
}

// IsRecipient reports whether chatID belongs to the configured recipient set
func (c *Config) IsRecipient(chatID string) bool {
	for _, id := range c.ChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// recipients parses a JSON array of chat ids (strings or numbers), appends the
// owner and drops blanks and duplicates while keeping order.
func recipients(raw, owner string) []string {
	var values []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		// Tolerate a plain comma separated list as well
		values = nil
		for _, part := range strings.Split(raw, ",") {
			values = append(values, json.RawMessage(strconv.Quote(strings.Trim(strings.TrimSpace(part), "[]\""))))
		}
	}

	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, v := range values {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			add(s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			add(n.String())
		}
	}
	add(owner)

	return ids
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
