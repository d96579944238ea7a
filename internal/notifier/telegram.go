package notifier

//go:generate mockgen -package=notifier_test -destination=mock_http_client_test.go -source=telegram.go HTTPClient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"StockPulse/internal/model"
)

const telegramBaseURL = "https://api.telegram.org"

// HTTPClient is the subset of *http.Client the notifier needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TelegramNotifier talks to the Telegram Bot API. It is the scheduler's sink
// and the transport for chat command replies.
type TelegramNotifier struct {
	BotToken string
	BaseURL  string
	Client   HTTPClient
	// PollClient serves getUpdates, whose long-poll outlives Client's timeout.
	PollClient HTTPClient
	Retries    int
	Backoff    time.Duration
	Logger     *slog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, proxyURL string, logger *slog.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TelegramNotifier{
		BotToken:   botToken,
		BaseURL:    telegramBaseURL,
		Client:     &http.Client{Timeout: 30 * time.Second, Transport: transport},
		PollClient: &http.Client{Timeout: 35 * time.Second, Transport: transport},
		Retries:    3,
		Backoff:    time.Second,
		Logger:     logger,
	}
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type telegramChat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

func (c telegramChat) displayName() string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Username != "":
		return "@" + c.Username
	case c.FirstName != "":
		return c.FirstName
	default:
		return strconv.FormatInt(c.ID, 10)
	}
}

func (t *TelegramNotifier) call(ctx context.Context, client HTTPClient, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	apiURL := fmt.Sprintf("%s/bot%s/%s", t.BaseURL, t.BotToken, method)
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

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s read body: %w", method, err)
	}
	var env apiResponse
	if err := json.Unmarshal(respBody, &env); err != nil || resp.StatusCode != http.StatusOK || !env.OK {
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s decode result: %w", method, err)
		}
	}
	return nil
}

// SendText posts an HTML message to chatID.
func (t *TelegramNotifier) SendText(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	return t.call(ctx, t.Client, "sendMessage", payload, nil)
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, chatID int64, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.SendText(ctx, chatID, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := t.Backoff * time.Duration(1<<uint(i))
		t.Logger.Warn("telegram send failed, retrying",
			"attempt", i+1, "max", maxRetries+1, "error", err, "backoff", backoff.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// ResolveChannel looks the chat up with getChat.
func (t *TelegramNotifier) ResolveChannel(ctx context.Context, id int64) (model.Channel, bool) {
	var chat telegramChat
	if err := t.call(ctx, t.Client, "getChat", map[string]any{"chat_id": id}, &chat); err != nil {
		t.Logger.Warn("resolve channel", "channel_id", id, "error", err)
		return model.Channel{}, false
	}
	return model.Channel{ID: chat.ID, Title: chat.displayName()}, true
}

// Send formats and delivers a scheduled update.
func (t *TelegramNotifier) Send(ctx context.Context, ch model.Channel, upd model.Update) error {
	return t.SendWithRetry(ctx, ch.ID, FormatUpdate(upd), t.Retries)
}
