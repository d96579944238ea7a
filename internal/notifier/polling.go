package notifier

import (
	"context"
	"strings"
	"time"
)

// Message is an incoming chat message.
type Message struct {
	ChatID    int64
	ChatTitle string
	Text      string
}

// CommandHandler is called for each incoming text message. reply posts back
// to the originating chat and may be called any number of times.
type CommandHandler func(ctx context.Context, msg Message, reply func(text string))

// telegramUpdate represents a Telegram update from long polling.
type telegramUpdate struct {
	UpdateID    int              `json:"update_id"`
	Message     *telegramMessage `json:"message"`
	ChannelPost *telegramMessage `json:"channel_post"`
}

type telegramMessage struct {
	Text string       `json:"text"`
	Chat telegramChat `json:"chat"`
}

const pollRetryDelay = 5 * time.Second

// StartPolling begins long-polling for chat messages. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	for {
		if ctx.Err() != nil {
			t.Logger.Info("telegram polling stopped")
			return
		}

		next, err := t.PollOnce(ctx, offset, handler)
		if err != nil {
			if ctx.Err() != nil {
				t.Logger.Info("telegram polling stopped")
				return
			}
			t.Logger.Warn("polling request failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		offset = next
	}
}

// PollOnce fetches one batch of updates starting at offset, dispatches them and
// returns the offset to use next.
func (t *TelegramNotifier) PollOnce(ctx context.Context, offset int, handler CommandHandler) (int, error) {
	var updates []telegramUpdate
	payload := map[string]any{
		"offset":          offset,
		"timeout":         30,
		"allowed_updates": []string{"message", "channel_post"},
	}
	if err := t.call(ctx, t.PollClient, "getUpdates", payload, &updates); err != nil {
		return offset, err
	}

	for _, update := range updates {
		offset = update.UpdateID + 1
		msg := update.Message
		if msg == nil {
			msg = update.ChannelPost
		}
		if msg == nil || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		in := Message{
			ChatID:    msg.Chat.ID,
			ChatTitle: msg.Chat.displayName(),
			Text:      strings.TrimSpace(msg.Text),
		}
		t.Logger.Debug("received message", "chat_id", in.ChatID, "text", in.Text)
		handler(ctx, in, func(text string) {
			if text == "" {
				return
			}
			if err := t.SendText(ctx, in.ChatID, text); err != nil {
				t.Logger.Error("send reply", "chat_id", in.ChatID, "error", err)
			}
		})
	}
	return offset, nil
}
