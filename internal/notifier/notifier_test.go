package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	recipient string
	text      string
}

// MockSender records deliveries and fails for the recipients in failFor
type MockSender struct {
	mu      sync.Mutex
	sent    []sent
	failFor map[string]bool
}

var _ Sender = (*MockSender)(nil)

func (m *MockSender) Send(ctx context.Context, recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[recipient] {
		return fmt.Errorf("chat %s not found", recipient)
	}
	m.sent = append(m.sent, sent{recipient: recipient, text: text})
	return nil
}

type mockSink struct {
	published []string
	err       error
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Publish(ctx context.Context, text string) error {
	m.published = append(m.published, text)
	return m.err
}

func TestSplitLengths(t *testing.T) {
	segments := Split(strings.Repeat("a", 9000), 4000)

	require.Len(t, segments, 3)
	assert.Len(t, segments[0], 4000)
	assert.Len(t, segments[1], 4000)
	assert.Len(t, segments[2], 1000)
	assert.Equal(t, strings.Repeat("a", 9000), strings.Join(segments, ""))
}

func TestSplitPersianText(t *testing.T) {
	message := strings.Repeat("تکمیل شد ", 1000) // 9000 runes, 2 bytes per letter

	segments := Split(message, 4000)

	require.Len(t, segments, 3)
	for _, s := range segments {
		assert.True(t, utf8.ValidString(s))
	}
	assert.Equal(t, 4000, utf8.RuneCountInString(segments[0]))
	assert.Equal(t, 4000, utf8.RuneCountInString(segments[1]))
	assert.Equal(t, 1000, utf8.RuneCountInString(segments[2]))
	assert.Equal(t, message, strings.Join(segments, ""))
}

func TestSplitKeepsSurrogatePairsTogether(t *testing.T) {
	// Each emoji counts as two units
	segments := Split("a🚨🚨", 4)

	require.Len(t, segments, 2)
	assert.Equal(t, "a🚨", segments[0])
	assert.Equal(t, "🚨", segments[1])
}

func TestSplitShortAndEmpty(t *testing.T) {
	assert.Equal(t, []string{"hi"}, Split("hi", 4000))
	assert.Nil(t, Split("", 4000))
}

func TestDeliverInOrder(t *testing.T) {
	sender := &MockSender{}
	n := NewNotifier(sender, 4000, nil)

	message := strings.Repeat("x", 4000) + strings.Repeat("y", 4000) + strings.Repeat("z", 1000)
	outcomes := n.Deliver(context.Background(), message, []string{"1"})

	require.Len(t, outcomes, 3)
	assert.Zero(t, Failed(outcomes))
	require.Len(t, sender.sent, 3)
	assert.Equal(t, strings.Repeat("x", 4000), sender.sent[0].text)
	assert.Equal(t, strings.Repeat("y", 4000), sender.sent[1].text)
	assert.Equal(t, strings.Repeat("z", 1000), sender.sent[2].text)
}

func TestDeliverFailureIsIsolated(t *testing.T) {
	sender := &MockSender{failFor: map[string]bool{"A": true}}
	n := NewNotifier(sender, 5, nil)

	outcomes := n.Deliver(context.Background(), "0123456789", []string{"A", "B", ""})

	// two segments for each of A and B, blank recipients are ignored
	require.Len(t, outcomes, 4)
	assert.Equal(t, 2, Failed(outcomes))
	assert.False(t, outcomes[0].OK())
	assert.False(t, outcomes[1].OK())
	assert.True(t, outcomes[2].OK())
	assert.True(t, outcomes[3].OK())

	require.Len(t, sender.sent, 2)
	assert.Equal(t, sent{"B", "01234"}, sender.sent[0])
	assert.Equal(t, sent{"B", "56789"}, sender.sent[1])
}

func TestDeliverPublishesToSinks(t *testing.T) {
	sender := &MockSender{}
	sink := &mockSink{err: fmt.Errorf("redis down")}
	n := NewNotifier(sender, 0, nil, sink)

	outcomes := n.Deliver(context.Background(), "hello", []string{"1"})

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].OK())
	assert.Equal(t, "sink:mock", outcomes[1].Recipient)
	assert.False(t, outcomes[1].OK())
	assert.Equal(t, []string{"hello"}, sink.published)
}
