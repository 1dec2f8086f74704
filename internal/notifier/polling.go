package notifier

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// pollTimeout is the server-side long-poll wait in seconds.
const pollTimeout = 30

// CommandHandler answers one chat command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

type chatUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From *struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// StartPolling long-polls for commands until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: (pollTimeout + 5) * time.Second, Transport: t.Client.Transport}
	offset := 0
	for ctx.Err() == nil {
		next, err := t.poll(ctx, client, offset, handler)
		if err == nil {
			offset = next
			continue
		}
		if ctx.Err() != nil {
			break
		}
		t.Log.WithError(err).Warn("telegram polling failed")
		select {
		case <-ctx.Done():
		case <-time.After(t.pollInterval):
		}
	}
	t.Log.Info("telegram polling stopped")
}

// poll fetches one batch of updates, answers the commands sent from the
// configured chat and returns the next offset. Other chats are ignored.
func (t *TelegramNotifier) poll(ctx context.Context, client *http.Client, offset int, handler CommandHandler) (int, error) {
	var updates []chatUpdate
	err := t.call(ctx, client, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         pollTimeout,
		"allowed_updates": []string{"message"},
	}, &updates)
	if err != nil {
		return offset, err
	}

	for _, u := range updates {
		offset = u.UpdateID + 1
		if u.Message == nil {
			continue
		}
		text := strings.TrimSpace(u.Message.Text)
		if text == "" {
			continue
		}
		chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
		fields := logrus.Fields{"command": text, "chat_id": chatID}
		if u.Message.From != nil {
			fields["from"] = u.Message.From.Username
		}
		if t.ChatID != "" && chatID != t.ChatID {
			t.Log.WithFields(fields).Warn("ignoring command from unknown chat")
			continue
		}

		t.Log.WithFields(fields).Info("received command")
		reply := handler(ctx, text)
		if reply == "" {
			continue
		}
		for _, chunk := range splitMessage(reply, maxMessageLen) {
			if err := t.sendMessage(ctx, chatID, chunk); err != nil {
				t.Log.WithError(err).WithFields(fields).Error("send reply")
				break
			}
		}
	}
	return offset, nil
}
