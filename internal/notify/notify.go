// Package notify surfaces campaign outcomes to site owners.
package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/itwrites/BlogViraliy-sub004/internal/model"
)

// Notifier receives campaign lifecycle events. Implementations must not
// block generation; failures are logged, never propagated.
type Notifier interface {
	PillarCompleted(p *model.Pillar)
	PillarFailed(p *model.Pillar, reason string)
	BatchFinished(b *model.KeywordBatch)
}

// Noop discards all notifications.
type Noop struct{}

// PillarCompleted implements Notifier.
func (Noop) PillarCompleted(*model.Pillar) {}

// PillarFailed implements Notifier.
func (Noop) PillarFailed(*model.Pillar, string) {}

// BatchFinished implements Notifier.
func (Noop) BatchFinished(*model.KeywordBatch) {}

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends owner notifications to a fixed chat.
type Telegram struct {
	api    telegramAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegram creates a Telegram notifier with the given bot token.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

// PillarCompleted implements Notifier.
func (t *Telegram) PillarCompleted(p *model.Pillar) {
	t.send(fmt.Sprintf("Pillar %q finished: %d articles generated, %d failed.",
		p.Name, p.GeneratedCount, p.FailedCount))
}

// PillarFailed implements Notifier.
func (t *Telegram) PillarFailed(p *model.Pillar, reason string) {
	t.send(fmt.Sprintf("Pillar %q failed during planning: %s", p.Name, reason))
}

// BatchFinished implements Notifier.
func (t *Telegram) BatchFinished(b *model.KeywordBatch) {
	t.send(fmt.Sprintf("Keyword batch %s done (%s): %d ok, %d failed of %d.",
		b.ID, b.Status, b.SuccessCount, b.FailedCount, b.TotalKeywords))
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send notification", "chat_id", t.chatID, "error", err)
	}
}
