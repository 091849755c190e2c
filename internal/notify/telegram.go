package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Recipients supplies the chat IDs an alert goes to at send time, so a
// user registered five minutes ago is already on the list.
type Recipients func(ctx context.Context) []int64

// Telegram delivers alerts through the Bot API's sendMessage call. One
// message per recipient; a failed recipient is logged and skipped, never
// aborting delivery to the rest.
type Telegram struct {
	Token      string
	Recipients Recipients
	Client     *http.Client
	Log        *zap.Logger
	BaseURL    string // overridden in tests
}

func NewTelegram(token string, recipients Recipients, log *zap.Logger) *Telegram {
	if token == "" {
		return nil
	}
	return &Telegram{
		Token:      token,
		Recipients: recipients,
		Client:     &http.Client{Timeout: 10 * time.Second},
		Log:        log,
		BaseURL:    "https://api.telegram.org",
	}
}

type sendMessagePayload struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *Telegram) Send(ctx context.Context, title, text string) error {
	if t == nil || t.Token == "" {
		return errors.New("telegram disabled")
	}
	ids := t.Recipients(ctx)
	if len(ids) == 0 {
		return errors.New("telegram has no recipients")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.Token)
	var firstErr error
	for _, chatID := range ids {
		if err := t.sendOne(ctx, url, chatID, title, text); err != nil {
			t.Log.Error("telegram delivery failed",
				zap.Int64("chat_id", chatID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		t.Log.Info("telegram alert sent", zap.Int64("chat_id", chatID), zap.String("title", title))
	}
	return firstErr
}

func (t *Telegram) sendOne(ctx context.Context, url string, chatID int64, title, text string) error {
	body, _ := json.Marshal(sendMessagePayload{
		ChatID:    chatID,
		Text:      "*" + title + "*\n\n" + text,
		ParseMode: "Markdown",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram status %d", resp.StatusCode)
	}
	return nil
}
