package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	telegramAPIBase = "https://api.telegram.org"

	// maxMessageLen is the Bot API limit for one message text.
	maxMessageLen = 4096
)

// APIError is a failed Bot API call.
type APIError struct {
	Status      int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error: status %d: %s", e.Status, e.Description)
}

// TelegramNotifier sends messages to one chat through the Telegram Bot API
// and answers commands coming from that chat.
type TelegramNotifier struct {
	BotToken   string
	ChatID     string
	APIBase    string
	MaxRetries int
	Client     *http.Client
	Log        *logrus.Logger

	// pollInterval is the pause after a failed poll.
	pollInterval time.Duration
}

// NewTelegramNotifier creates a notifier. proxyURL may be empty.
func NewTelegramNotifier(botToken, chatID, proxyURL string, log *logrus.Logger) *TelegramNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			log.WithError(err).Warn("ignoring invalid proxy url")
		}
	}
	return &TelegramNotifier{
		BotToken:     botToken,
		ChatID:       chatID,
		APIBase:      telegramAPIBase,
		MaxRetries:   3,
		Client:       &http.Client{Timeout: 30 * time.Second, Transport: transport},
		Log:          log,
		pollInterval: 5 * time.Second,
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Notify posts the message to the configured chat, subject first.
func (t *TelegramNotifier) Notify(ctx context.Context, msg Message) error {
	text := msg.HTML
	if msg.Subject != "" {
		text = fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(msg.Subject), msg.HTML)
	}
	return t.SendWithRetry(ctx, text, t.MaxRetries)
}

// SendWithRetry posts text to the configured chat. Each chunk of an
// oversized text is retried on its own with exponential backoff, or with
// the delay the API asks for.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if err := t.sendChunkWithRetry(ctx, t.ChatID, chunk, maxRetries); err != nil {
			return err
		}
	}
	return nil
}

func (t *TelegramNotifier) sendChunkWithRetry(ctx context.Context, chatID, text string, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := t.sendMessage(ctx, chatID, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests {
			return err
		}
		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		if apiErr != nil && apiErr.RetryAfter > 0 {
			backoff = apiErr.RetryAfter
		}
		t.Log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"of":      maxRetries + 1,
			"backoff": backoff.String(),
		}).Warn("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxRetries+1, lastErr)
}

func (t *TelegramNotifier) sendMessage(ctx context.Context, chatID, text string) error {
	return t.call(ctx, t.Client, "sendMessage", map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}, nil)
}

// call invokes a Bot API method and decodes the result field into out.
func (t *TelegramNotifier) call(ctx context.Context, client *http.Client, method string, params, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}
	apiURL := fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
		Parameters  struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	decodeErr := json.Unmarshal(raw, &envelope)
	if resp.StatusCode != http.StatusOK || decodeErr != nil || !envelope.OK {
		desc := envelope.Description
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
		}
		return &APIError{
			Status:      resp.StatusCode,
			Description: desc,
			RetryAfter:  time.Duration(envelope.Parameters.RetryAfter) * time.Second,
		}
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// splitMessage cuts text into pieces of at most limit bytes, preferring
// line breaks and never splitting a UTF-8 sequence.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
