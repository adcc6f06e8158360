package notifier

import (
	"context"
	"strings"
	"unicode/utf16"

	"sjsage522/examwatcher/logger"
	"sjsage522/examwatcher/pkg/errors"
	"sjsage522/examwatcher/services/metrics"
)

// DefaultMaxLength keeps segments under Telegram's 4096 unit limit
const DefaultMaxLength = 4000

// Sender delivers one text segment to one recipient
type Sender interface {
	Send(ctx context.Context, recipient string, text string) error
}

// Sink receives every delivered message as a whole, e.g. a stream mirror
type Sink interface {
	Name() string
	Publish(ctx context.Context, text string) error
}

// Outcome is the result of one delivery attempt
type Outcome struct {
	Recipient string
	Segment   int
	Err       error
}

// OK reports whether the attempt succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Notifier fans a message out to recipients, segment by segment
type Notifier struct {
	sender    Sender
	sinks     []Sink
	maxLength int
	metrics   *metrics.Metrics

	log *logger.Logger
}

// NewNotifier creates a notifier; maxLength <= 0 selects DefaultMaxLength
func NewNotifier(sender Sender, maxLength int, m *metrics.Metrics, sinks ...Sink) *Notifier {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Notifier{
		sender:    sender,
		sinks:     sinks,
		maxLength: maxLength,
		metrics:   m,
		log:       logger.ForNotifier(),
	}
}

// Deliver sends every segment of message to every recipient.
// Attempts are independent: a failure is logged and recorded, never retried,
// and never stops the remaining attempts.
func (n *Notifier) Deliver(ctx context.Context, message string, recipients []string) []Outcome {
	segments := Split(message, n.maxLength)
	outcomes := make([]Outcome, 0, len(segments)*len(recipients)+len(n.sinks))

	for _, recipient := range recipients {
		if strings.TrimSpace(recipient) == "" {
			continue
		}
		for i, segment := range segments {
			outcome := Outcome{Recipient: recipient, Segment: i}
			if err := n.sender.Send(ctx, recipient, segment); err != nil {
				outcome.Err = errors.NewDelivery(recipient, "send failed", err)
				n.log.Error().
					Err(err).
					Str("recipient", recipient).
					Int("segment", i+1).
					Int("segments", len(segments)).
					Msg("Failed to send message")
			} else {
				n.log.Info().
					Str("recipient", recipient).
					Int("segment", i+1).
					Int("segments", len(segments)).
					Msg("Sent message")
			}
			n.metrics.IncDelivery(outcome.OK())
			outcomes = append(outcomes, outcome)
		}
	}

	for _, sink := range n.sinks {
		outcome := Outcome{Recipient: "sink:" + sink.Name()}
		if err := sink.Publish(ctx, message); err != nil {
			outcome.Err = errors.NewDelivery(outcome.Recipient, "publish failed", err)
			n.log.Error().Err(err).Str("sink", sink.Name()).Msg("Failed to publish message")
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// Failed counts the unsuccessful outcomes
func Failed(outcomes []Outcome) int {
	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
	}
	return failed
}

// Split cuts message into contiguous segments of at most maxLength UTF-16
// code units, the unit Telegram counts in. Runes are never split.
func Split(message string, maxLength int) []string {
	if message == "" {
		return nil
	}
	if maxLength <= 0 {
		return []string{message}
	}

	var segments []string
	start, units := 0, 0
	for i, r := range message {
		width := utf16.RuneLen(r)
		if width < 0 {
			// invalid rune, encoded as U+FFFD
			width = 1
		}
		if units+width > maxLength && i > start {
			segments = append(segments, message[start:i])
			start, units = i, 0
		}
		units += width
	}
	return append(segments, message[start:])
}
