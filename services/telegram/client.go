package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Update is the subset of a Bot API update the bot reacts to
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an incoming chat message
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User is the sender of a message
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Chat identifies where a message was posted
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// ChatID returns the chat identifier in the form used for recipients
func (c Chat) ChatID() string {
	return strconv.FormatInt(c.ID, 10)
}

// APIError is a Bot API response with ok=false
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram: %d %s (retry after %ds)", e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram: %d %s", e.Code, e.Description)
}

type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

func (r *apiResponse[T]) err(status int) error {
	if r.OK {
		return nil
	}
	e := &APIError{Code: r.ErrorCode, Description: r.Description}
	if e.Code == 0 {
		e.Code = status
	}
	if r.Parameters != nil {
		e.RetryAfter = r.Parameters.RetryAfter
	}
	return e
}

// Client talks to the Telegram Bot API over HTTPS
type Client struct {
	http        *resty.Client
	pollTimeout time.Duration
}

// pollGrace is how long the HTTP timeout outlasts the server-side long poll
const pollGrace = 10 * time.Second

// NewClient creates a client for the bot identified by token.
// sendRate caps outgoing requests per second across all chats.
func NewClient(apiURL, token string, sendRate float64) *Client {
	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimRight(apiURL, "/") + "/bot" + token)
	httpClient.SetHeader("Content-Type", "application/json")

	// burst of 1 keeps the spacing even when a long message is split
	limiter := rate.NewLimiter(rate.Limit(sendRate), 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if !strings.HasSuffix(req.URL, "/getUpdates") {
			return limiter.Wait(req.Context())
		}
		return nil
	})

	c := &Client{http: httpClient}
	c.SetPollTimeout(30 * time.Second)
	return c
}

// Send posts text to chatID; it implements notifier.Sender
func (c *Client) Send(ctx context.Context, chatID string, text string) error {
	var out apiResponse[Message]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":                  chatID,
			"text":                     text,
			"disable_web_page_preview": true,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram: sendMessage: %w", err)
	}
	return out.err(resp.StatusCode())
}

// GetUpdates long-polls for messages after offset
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	var out apiResponse[[]Update]
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"offset":          offset,
			"timeout":         int(c.pollTimeout / time.Second),
			"allowed_updates": []string{"message"},
		}).
		SetResult(&out).
		SetError(&out).
		Post("/getUpdates")
	if err != nil {
		return nil, fmt.Errorf("telegram: getUpdates: %w", err)
	}
	if err := out.err(resp.StatusCode()); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// SetPollTimeout changes the long-poll wait; the HTTP timeout follows it
func (c *Client) SetPollTimeout(d time.Duration) {
	c.pollTimeout = d
	c.http.SetTimeout(d + pollGrace)
}
