package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sjsage522/examwatcher/internal/crawler"
	"sjsage522/examwatcher/internal/notifier"
	"sjsage522/examwatcher/services/telegram"
	"sjsage522/examwatcher/services/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	to   string
	text string
}

type mockReplier struct {
	mu   sync.Mutex
	sent []sent
}

func (m *mockReplier) Deliver(ctx context.Context, message string, recipients []string) []notifier.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notifier.Outcome
	for _, r := range recipients {
		m.sent = append(m.sent, sent{to: r, text: message})
		out = append(out, notifier.Outcome{Recipient: r})
	}
	return out
}

func (m *mockReplier) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		out = append(out, s.text)
	}
	return out
}

type mockWorker struct {
	calls  int
	report worker.Report
}

func (m *mockWorker) Trigger(ctx context.Context) worker.Report {
	m.calls++
	return m.report
}

func message(chatID int64, text string) telegram.Update {
	return telegram.Update{UpdateID: 1, Message: &telegram.Message{Chat: telegram.Chat{ID: chatID}, Text: text}}
}

func newTestBot(replier *mockReplier, w *mockWorker, updates Updates) *Bot {
	return NewBot(Options{
		Updates:      updates,
		Replier:      replier,
		Worker:       w,
		IsAuthorized: func(chatID string) bool { return chatID == "42" },
		ErrorBackoff: time.Millisecond,
	})
}

func TestCommand(t *testing.T) {
	assert.Equal(t, "stat", command("/stat"))
	assert.Equal(t, "stat", command("  /stat@ExamBot now"))
	assert.Equal(t, "getchatid", command("/GetChatID"))
	assert.Equal(t, "", command("stat"))
	assert.Equal(t, "", command(""))
}

func TestGetChatIDIsOpen(t *testing.T) {
	replier := &mockReplier{}
	b := newTestBot(replier, &mockWorker{}, nil)

	b.Handle(context.Background(), message(-100123, "/getchatid"))

	require.Len(t, replier.sent, 1)
	assert.Equal(t, "-100123", replier.sent[0].to)
	assert.Equal(t, "🆔 Your chat ID is: -100123", replier.sent[0].text)
}

func TestStartReplyHelp(t *testing.T) {
	replier := &mockReplier{}
	b := newTestBot(replier, &mockWorker{}, nil)

	b.Handle(context.Background(), message(7, "/start"))
	assert.Equal(t, []string{HelpText}, replier.texts())
}

func TestStatUnauthorized(t *testing.T) {
	replier := &mockReplier{}
	w := &mockWorker{}
	b := newTestBot(replier, w, nil)

	b.Handle(context.Background(), message(7, "/stat"))

	assert.Equal(t, 0, w.calls)
	assert.Equal(t, []string{UnauthorizedText}, replier.texts())
}

func TestStatAuthorized(t *testing.T) {
	replier := &mockReplier{}
	w := &mockWorker{report: worker.Report{Result: crawler.CrawlResult{
		Incomplete: []crawler.Record{{Status: "ثبت نام", ExamName: "IELTS B", Date: "1404/04/12"}},
	}}}
	b := newTestBot(replier, w, nil)

	b.Handle(context.Background(), message(42, "/stat@ExamBot"))
	b.runs.Wait()

	assert.Equal(t, 1, w.calls)
	texts := replier.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, StartingText, texts[0])
	assert.Contains(t, texts[1], "📊 Incomplete count: 1")
	assert.Contains(t, texts[1], "IELTS B")
}

func TestIgnoresPlainText(t *testing.T) {
	replier := &mockReplier{}
	b := newTestBot(replier, &mockWorker{}, nil)

	b.Handle(context.Background(), message(42, "hello"))
	b.Handle(context.Background(), telegram.Update{UpdateID: 3})
	assert.Empty(t, replier.sent)
}

type scriptedUpdates struct {
	mu      sync.Mutex
	offsets []int64
	batches [][]telegram.Update
	cancel  context.CancelFunc
}

func (s *scriptedUpdates) GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets = append(s.offsets, offset)
	if len(s.offsets) == 1 {
		return nil, errors.New("connection reset")
	}
	if len(s.batches) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func TestRunAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := &scriptedUpdates{
		cancel: cancel,
		batches: [][]telegram.Update{{
			{UpdateID: 10, Message: &telegram.Message{Chat: telegram.Chat{ID: 1}, Text: "/getchatid"}},
			{UpdateID: 11, Message: &telegram.Message{Chat: telegram.Chat{ID: 2}, Text: "/getchatid"}},
		}},
	}
	replier := &mockReplier{}
	b := newTestBot(replier, &mockWorker{}, updates)

	require.NoError(t, b.Run(ctx))

	assert.Equal(t, []int64{0, 0, 12}, updates.offsets)
	assert.Len(t, replier.sent, 2)
}

type blockingWorker struct {
	started chan struct{}
	release chan struct{}
}

func (w *blockingWorker) Trigger(ctx context.Context) worker.Report {
	close(w.started)
	<-w.release
	return worker.Report{}
}

func TestStatDoesNotBlockOtherCommands(t *testing.T) {
	replier := &mockReplier{}
	w := &blockingWorker{started: make(chan struct{}), release: make(chan struct{})}
	b := NewBot(Options{
		Replier:      replier,
		Worker:       w,
		IsAuthorized: func(string) bool { return true },
	})

	b.Handle(context.Background(), message(42, "/stat"))
	<-w.started

	b.Handle(context.Background(), message(7, "/getchatid"))
	assert.Equal(t, []string{StartingText, "🆔 Your chat ID is: 7"}, replier.texts())

	close(w.release)
	b.runs.Wait()

	texts := replier.texts()
	require.Len(t, texts, 3)
	assert.Contains(t, texts[2], "📊 Incomplete count: 0")
}
