// Package bot answers Telegram commands over long polling.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sjsage522/examwatcher/logger"
	"sjsage522/examwatcher/services/telegram"
	"sjsage522/examwatcher/services/worker"
)

// Reply texts
const (
	HelpText         = "🛠 Bot is running. /stat get stat manually right now, /getchatid get chat id"
	UnauthorizedText = "Unauthorized access."
	StartingText     = "Starting the crawler..."
)

// Updates is the polling side of the Bot API
type Updates interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
}

// Triggerer runs a manual cycle
type Triggerer interface {
	Trigger(ctx context.Context) worker.Report
}

// Options configures a Bot
type Options struct {
	Updates Updates
	// Replier answers the requesting chat only; it should carry no sinks
	Replier      worker.Deliverer
	Worker       Triggerer
	IsAuthorized func(chatID string) bool
	// ErrorBackoff is the pause after a failed poll
	ErrorBackoff time.Duration
}

// Bot dispatches incoming commands
type Bot struct {
	opts   Options
	offset int64

	// manual runs in flight; they answer after the poll loop has moved on
	runs sync.WaitGroup
	log  *logger.Logger
}

// NewBot creates a new bot
func NewBot(opts Options) *Bot {
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 5 * time.Second
	}
	if opts.IsAuthorized == nil {
		opts.IsAuthorized = func(string) bool { return false }
	}
	return &Bot{opts: opts, log: logger.ForBot()}
}

// Run polls for updates until ctx is done, then waits for manual runs
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info().Msg("Bot polling started")
	defer b.runs.Wait()
	for {
		if ctx.Err() != nil {
			b.log.Info().Msg("Bot polling stopped")
			return nil
		}

		updates, err := b.opts.Updates.GetUpdates(ctx, b.offset)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.log.Warn().Err(err).Dur("backoff", b.opts.ErrorBackoff).Msg("Polling failed")
			select {
			case <-ctx.Done():
			case <-time.After(b.opts.ErrorBackoff):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
			b.Handle(ctx, u)
		}
	}
}

// Handle reacts to a single update. A manual run is started in the
// background so other commands keep being answered while it crawls.
func (b *Bot) Handle(ctx context.Context, u telegram.Update) {
	if u.Message == nil {
		return
	}
	chatID := u.Message.Chat.ChatID()
	cmd := command(u.Message.Text)
	if cmd == "" {
		return
	}

	log := b.log.WithFields(logger.Fields{"chat_id": chatID, "command": cmd})
	log.Debug().Msg("Command received")

	switch cmd {
	case "start", "help":
		b.reply(ctx, chatID, HelpText)
	case "getchatid":
		b.reply(ctx, chatID, fmt.Sprintf("🆔 Your chat ID is: %s", chatID))
	case "stat", "stats", "scrape":
		if !b.opts.IsAuthorized(chatID) {
			log.Warn().Msg("Unauthorized access attempt")
			b.reply(ctx, chatID, UnauthorizedText)
			return
		}
		b.reply(ctx, chatID, StartingText)
		b.runs.Add(1)
		go func() {
			defer b.runs.Done()
			report := b.opts.Worker.Trigger(ctx)
			b.reply(ctx, chatID, report.Summary())
		}()
	}
}

func (b *Bot) reply(ctx context.Context, chatID, text string) {
	for _, o := range b.opts.Replier.Deliver(ctx, text, []string{chatID}) {
		if !o.OK() {
			b.log.Warn().Err(o.Err).Str("chat_id", chatID).Msg("Reply failed")
		}
	}
}

// command returns the bare command name of text, or "" if text is not one.
// "/stat@SomeBot extra" yields "stat".
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
