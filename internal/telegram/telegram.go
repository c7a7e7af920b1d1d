// Package telegram connects bot.Handler to the Telegram Bot API, either by
// long polling or through a webhook.
package telegram

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"moneytracker/internal/bot"
	applog "moneytracker/internal/log"
)

const pollTimeout = 60

// SecretHeader carries the secret_token registered with setWebhook on every
// webhook delivery.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// API is the subset of *tgbotapi.BotAPI the transport uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

type Bot struct {
	api     API
	handler *bot.Handler
	allow   bot.AllowList
	logger  *applog.Logger
	secret  string
}

// New authenticates against Telegram with token.
func New(token string, debug bool, h *bot.Handler, allow bot.AllowList, logger *applog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot API client: %w", err)
	}
	api.Debug = debug
	b := NewWithAPI(api, h, allow, logger)
	b.logger.Info("Authorized on Telegram", "username", api.Self.UserName)
	return b, nil
}

func NewWithAPI(api API, h *bot.Handler, allow bot.AllowList, logger *applog.Logger) *Bot {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentTelegram)
	}
	return &Bot{api: api, handler: h, allow: allow, logger: logger}
}

// RunPolling removes any webhook and processes updates one at a time until
// ctx is cancelled.
func (b *Bot) RunPolling(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.WarnContext(ctx, "Failed to delete webhook", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)
	b.logger.InfoContext(ctx, "Polling for updates", "timeout", pollTimeout)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.Process(ctx, update)
		}
	}
}

// WithWebhookSecret sets the token registered by SetWebhook and required on
// every webhook request.
func (b *Bot) WithWebhookSecret(secret string) *Bot {
	b.secret = secret
	return b
}

// SetWebhook registers url with Telegram together with the webhook secret.
// tgbotapi's WebhookConfig has no secret_token field, so the call goes
// through MakeRequest.
func (b *Bot) SetWebhook(url string) error {
	if b.secret == "" {
		return fmt.Errorf("set webhook: secret token is required")
	}
	params := tgbotapi.Params{"url": url, "secret_token": b.secret}
	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.logger.Info("Webhook registered", "url", url)
	return nil
}

// WebhookHandler decodes Telegram's POST body and processes the update.
// Requests without the registered secret header are refused before the body
// is read, and every request is refused when no secret is set.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(SecretHeader)
		if b.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(b.secret)) != 1 {
			b.logger.WarnContext(r.Context(), "Webhook request with invalid secret token", "remote", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			b.logger.WarnContext(r.Context(), "Rejected webhook request", "error", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		b.Process(r.Context(), *update)
		w.WriteHeader(http.StatusOK)
	})
}

// Process answers one update. Updates without text or callback data are
// ignored.
func (b *Bot) Process(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.processCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		b.processMessage(ctx, update.Message)
	}
}

func (b *Bot) processMessage(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	ctx = applog.WithContext(ctx, b.logger.With(applog.FieldChatID, chatID))
	if !b.allow.Allowed(chatID) {
		b.logger.WarnContext(ctx, "Message from chat outside allow list", applog.FieldChatID, chatID)
		b.send(ctx, render(chatID, bot.NotAllowed()))
		return
	}

	reply := b.handler.Handle(ctx, m.Text)
	if reply.Keyboard && reply.Menu {
		// One message cannot carry both keyboards.
		first := reply
		first.Menu = false
		b.send(ctx, render(chatID, first))
		b.send(ctx, render(chatID, bot.Reply{Text: bot.MenuPrompt, Menu: true}))
		return
	}
	b.send(ctx, render(chatID, reply))
}

func (b *Bot) processCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.WarnContext(ctx, "Failed to answer callback", "error", err)
	}
	if q.Message == nil || q.Message.Chat == nil {
		return
	}
	chatID := q.Message.Chat.ID
	ctx = applog.WithContext(ctx, b.logger.With(applog.FieldChatID, chatID))
	if !b.allow.Allowed(chatID) {
		b.logger.WarnContext(ctx, "Callback from chat outside allow list", applog.FieldChatID, chatID)
		return
	}

	reply := b.handler.HandleCallback(ctx, q.Data)
	edit := tgbotapi.NewEditMessageText(chatID, q.Message.MessageID, reply.Text)
	if reply.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	b.send(ctx, edit)
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to send reply", "error", err)
	}
}

func render(chatID int64, r bot.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	switch {
	case r.Menu:
		msg.ReplyMarkup = InlineMenu()
	case r.Keyboard:
		msg.ReplyMarkup = ReplyKeyboard()
	}
	return msg
}

// InlineMenu builds the inline keyboard from bot.MenuButtons.
func InlineMenu() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(bot.MenuButtons))
	for _, btn := range bot.MenuButtons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ReplyKeyboard builds the persistent keyboard from bot.KeyboardLabels.
func ReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(bot.KeyboardLabels))
	for _, labels := range bot.KeyboardLabels {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, l := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(l))
		}
		rows = append(rows, row)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}
