// Package notify отправляет отчёты о закрытии эпох в Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/features/epochs"
	"funplay.vn/light-engine/internal/pplp"
)

// Sender — часть telego.Bot, которая нужна уведомителю.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Telegram рассылает отчёты в служебные чаты.
type Telegram struct {
	sender  Sender
	chatIDs []int64
	loc     *time.Location
}

// NewTelegram создаёт бота по токену.
func NewTelegram(token string, chatIDs []int64, loc *time.Location) (*Telegram, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать Telegram-бота: %w", err)
	}
	return NewTelegramWithSender(bot, chatIDs, loc), nil
}

// NewTelegramWithSender создаёт уведомитель поверх готового отправителя.
func NewTelegramWithSender(sender Sender, chatIDs []int64, loc *time.Location) *Telegram {
	if loc == nil {
		loc = time.UTC
	}
	return &Telegram{sender: sender, chatIDs: chatIDs, loc: loc}
}

// NotifyEpochClosed отправляет отчёт во все чаты.
// Ошибка одного чата не мешает отправке в остальные.
func (t *Telegram) NotifyEpochClosed(ctx context.Context, res *epochs.CloseResult) error {
	if res == nil {
		return nil
	}
	text := FormatEpochReport(res, t.loc)

	var errs []error
	for _, chatID := range t.chatIDs {
		msg := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)
		if _, err := t.sender.SendMessage(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("чат %d: %w", chatID, err))
			continue
		}
		log.WithFields(log.Fields{
			"chat_id":  chatID,
			"epoch_id": res.Epoch.ID,
		}).Debug("Отчёт об эпохе отправлен")
	}
	return errors.Join(errs...)
}

// FormatEpochReport собирает текст отчёта в HTML-разметке Telegram.
func FormatEpochReport(res *epochs.CloseResult, loc *time.Location) string {
	s := res.Settlement
	total := len(s.Allocations)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Эпоха %s закрыта</b>\n", html.EscapeString(res.Epoch.ID))
	fmt.Fprintf(&b, "Период: %s - %s\n",
		common.FormatDateTime(res.Epoch.StartsAt, loc), common.FormatDateTime(res.Epoch.EndsAt, loc))
	fmt.Fprintf(&b, "Правила: %s\n\n", html.EscapeString(s.RuleVersion))

	fmt.Fprintf(&b, "Участники: %d %s, получили минт: %d\n", total, common.PluralizeUsers(total), s.QualifiedUsers)
	fmt.Fprintf(&b, "Пул: %s\n", common.FormatFUN(s.PoolUnits, pplp.MintUnitsPerToken))
	fmt.Fprintf(&b, "Начислено: %s\n", common.FormatFUN(s.MintedUnits, pplp.MintUnitsPerToken))
	fmt.Fprintf(&b, "Не начислено: %s\n", common.FormatFUN(s.UnmintedUnits, pplp.MintUnitsPerToken))
	if s.CappedUsers > 0 {
		fmt.Fprintf(&b, "Ограничение anti-whale: %d %s, срезано %s\n",
			s.CappedUsers, common.PluralizeUsers(s.CappedUsers),
			common.FormatFUN(s.CappedExcessUnits, pplp.MintUnitsPerToken))
	}
	fmt.Fprintf(&b, "\n<code>run_id %s</code>", res.RunID.String())
	return b.String()
}
