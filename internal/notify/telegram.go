// Package notify delivers new-posting alerts to subscribers.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jsrothwell/job-monitor-sub000/internal/model"
)

// Telegram sends new-posting alerts to a chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram initializes the bot API client.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// NotifyNewPostings sends one HTML message listing the company's new
// postings.
func (t *Telegram) NotifyNewPostings(_ context.Context, company model.Company, postings []model.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💼 <b>%s</b> — %d new posting(s)\n\n", escape(company.Name), len(postings))
	for _, p := range postings {
		fmt.Fprintf(&sb, "• <a href=%q>%s</a>\n", p.URL, escape(p.Title))
	}

	msg := tgbotapi.NewMessage(t.chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
