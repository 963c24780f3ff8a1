package telegram

import (
	"context"

	"crypto-portfolio-bot/internal/commands"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const parseMode = tgbotapi.ModeMarkdownV2

// NewBot creates new telegram bot
func NewBot(c BotConfig) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:    bot,
		Config: c,
	}, nil
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// StopUpdates ends long polling; the updates channel is closed afterwards.
func (b *Bot) StopUpdates() {
	b.Bot.StopReceivingUpdates()
}

// SendMessage sends a telegram message, or a photo with the text as caption when one is attached.
func (b *Bot) SendMessage(m Message) error {
	if len(m.Photo) > 0 {
		photo := tgbotapi.NewPhoto(m.ChatID, tgbotapi.FileBytes{Name: "chart.png", Bytes: m.Photo})
		photo.Caption = m.Text
		photo.ParseMode = parseMode
		photo.ReplyToMessageID = m.MessageID
		_, err := b.Bot.Send(photo)
		return errors.Wrapf(err, "could not send photo to chat %d", m.ChatID)
	}

	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = parseMode
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message: %v", m.Text)
}

// Notify delivers a background message (alerts, reports) to a private chat, which shares the user's id.
func (b *Bot) Notify(_ context.Context, userID int64, text string) error {
	return b.SendMessage(Message{ChatID: userID, Text: text})
}

// ToRequest maps an update onto a dispatcher request. ok is false for updates without a text message.
func ToRequest(u tgbotapi.Update) (commands.Request, bool) {
	if u.Message == nil || u.Message.From == nil {
		return commands.Request{}, false
	}

	req := commands.Request{
		UserID: u.Message.From.ID,
		Text:   u.Message.Text,
	}
	if u.Message.IsCommand() {
		req.Command = u.Message.Command()
		req.Args = u.Message.CommandArguments()
	}
	return req, req.Command != "" || req.Text != ""
}

// HandleUpdate answers one update in the chat it came from.
func (b *Bot) HandleUpdate(ctx context.Context, d *commands.Dispatcher, u tgbotapi.Update) {
	req, ok := ToRequest(u)
	if !ok {
		log.Debug("ignoring update without text")
		return
	}

	resp := d.Handle(ctx, req)
	if resp.Text == "" && len(resp.Photo) == 0 {
		return
	}

	err := b.SendMessage(Message{
		ChatID:    u.Message.Chat.ID,
		MessageID: u.Message.MessageID,
		Text:      resp.Text,
		Photo:     resp.Photo,
	})
	if err != nil {
		log.Error(err)
	}
}
