// Package alert decides, once per crawl cycle, whether to announce incomplete
// sessions, send a quiet-period reassurance, or stay silent.
package alert

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"sjsage522/examwatcher/internal/crawler"
	"sjsage522/examwatcher/logger"
)

// Kind identifies which branch produced a Message
type Kind string

const (
	KindFound Kind = "found"
	KindQuiet Kind = "quiet"
)

// Message is an alert ready for delivery
type Message struct {
	Kind Kind
	Text string
}

// State holds the two timers driving quiet-period alerts.
// A zero LastAlertSent means no quiet alert has been sent yet.
type State struct {
	LastFoundTime time.Time
	LastAlertSent time.Time
}

// Engine owns State and serializes every evaluation
type Engine struct {
	mu           sync.Mutex
	state        State
	quietTimeout time.Duration
	quietRepeat  time.Duration

	log *logger.Logger
}

// NewEngine creates an engine whose quiet clock starts at start.
// quietTimeout is how long without findings before the first quiet alert;
// quietRepeat is the minimum spacing between quiet alerts.
func NewEngine(start time.Time, quietTimeout, quietRepeat time.Duration) *Engine {
	if quietRepeat <= 0 {
		quietRepeat = quietTimeout
	}
	return &Engine{
		state:        State{LastFoundTime: start},
		quietTimeout: quietTimeout,
		quietRepeat:  quietRepeat,
		log:          logger.ForAlert(),
	}
}

// State returns a snapshot of the timers
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Evaluate applies one cycle's result at time now and commits the new state.
// Found always fires when there are incomplete records; quiet fires at most
// once per quietRepeat after quietTimeout without findings.
func (e *Engine) Evaluate(result crawler.CrawlResult, now time.Time) (Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg, ok, next := e.decide(result, now)
	e.state = next

	switch {
	case !ok:
	case msg.Kind == KindFound:
		e.log.Info().Int("incomplete", len(result.Incomplete)).Msg("Incomplete sessions found")
	default:
		e.log.Info().Time("last_found", next.LastFoundTime).Msg("Quiet period elapsed")
	}
	return msg, ok
}

// Peek returns what Evaluate would return without changing the state
func (e *Engine) Peek(result crawler.CrawlResult, now time.Time) (Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg, ok, _ := e.decide(result, now)
	return msg, ok
}

// decide computes the message for result and the state that follows it
func (e *Engine) decide(result crawler.CrawlResult, now time.Time) (Message, bool, State) {
	next := e.state

	if len(result.Incomplete) > 0 {
		if now.After(next.LastFoundTime) {
			next.LastFoundTime = now
		}
		return Message{Kind: KindFound, Text: FormatFound(result.Incomplete)}, true, next
	}

	if now.Sub(next.LastFoundTime) < e.quietTimeout {
		return Message{}, false, next
	}
	if !next.LastAlertSent.IsZero() && now.Sub(next.LastAlertSent) < e.quietRepeat {
		return Message{}, false, next
	}

	next.LastAlertSent = now
	return Message{Kind: KindQuiet, Text: FormatQuiet(e.quietTimeout)}, true, next
}

// FormatFound renders every incomplete record, one per line
func FormatFound(records []crawler.Record) string {
	return "🚨 Incomplete tests found:\n" + FormatRecords(records)
}

// FormatRecords renders records one per line
func FormatRecords(records []crawler.Record) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		line := fmt.Sprintf("📅 %s | %s | %s | %s | %s | 📌 %s",
			r.Date, r.ExamName, r.Category, r.ExamType, r.Location, r.Status)
		if r.Cost != "" {
			line += " | 💰 " + r.Cost
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// FormatQuiet renders the reassurance sent after a quiet period
func FormatQuiet(period time.Duration) string {
	return fmt.Sprintf("✅ No incomplete data found in the past %s.", humanize(period))
}

func humanize(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
