package telegram

import (
	"fmt"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/zerocode/haybot/internal/config"
	"github.com/zerocode/haybot/internal/logger"
)

// pollTimeoutSeconds is the long-poll timeout passed to getUpdates.
const pollTimeoutSeconds = 60

// MessageHandler handles incoming text messages.
type MessageHandler interface {
	HandleMessage(update tgbotapi.Update) error
}

// CommandHandler handles bot commands.
type CommandHandler interface {
	HandleCommand(update tgbotapi.Update) error
}

// DocumentHandler handles document uploads.
type DocumentHandler interface {
	HandleDocument(update tgbotapi.Update) error
}

// Bot drives the long-polling loop against the Telegram API and routes
// each update to the command, document or message handler.
type Bot struct {
	api     *tgbotapi.BotAPI
	config  *config.TelegramConfig
	logger  zerolog.Logger
	running atomic.Bool
	updates tgbotapi.UpdatesChannel

	messages  MessageHandler
	commands  CommandHandler
	documents DocumentHandler
}

// New authenticates against the Telegram API. Handlers are attached
// afterwards, before Start.
func New(cfg *config.TelegramConfig, log *logger.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.Debug

	b := &Bot{
		api:    api,
		config: cfg,
		logger: log.GetZerolog().With().Str("component", "telegram").Logger(),
	}

	b.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return b, nil
}

// SetMessageHandler attaches the text message handler.
func (b *Bot) SetMessageHandler(h MessageHandler) { b.messages = h }

// SetCommandHandler attaches the command handler.
func (b *Bot) SetCommandHandler(h CommandHandler) { b.commands = h }

// SetDocumentHandler attaches the document upload handler.
func (b *Bot) SetDocumentHandler(h DocumentHandler) { b.documents = h }

// Start opens the update channel and begins routing.
func (b *Bot) Start() error {
	if !b.running.CompareAndSwap(false, true) {
		return fmt.Errorf("bot is already running")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	b.updates = b.api.GetUpdatesChan(u)

	go b.poll()

	b.logger.Info().Msg("Telegram bot started")
	return nil
}

// Stop ends the polling loop.
func (b *Bot) Stop() error {
	if !b.running.CompareAndSwap(true, false) {
		return fmt.Errorf("bot is not running")
	}

	b.api.StopReceivingUpdates()

	b.logger.Info().Msg("Telegram bot stopped")
	return nil
}

// IsRunning reports whether the polling loop is active.
func (b *Bot) IsRunning() bool {
	return b.running.Load()
}

func (b *Bot) poll() {
	for update := range b.updates {
		if !b.running.Load() {
			return
		}
		if err := b.route(update); err != nil {
			b.logger.Error().
				Err(err).
				Int("update_id", update.UpdateID).
				Msg("Failed to handle update")
		}
	}
}

// route hands an update to the first handler that claims it: commands,
// then document uploads, then plain messages. Media the bot cannot read
// is dropped.
func (b *Bot) route(update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	switch {
	case msg.IsCommand() && b.commands != nil:
		return b.commands.HandleCommand(update)
	case msg.Document != nil && b.documents != nil:
		return b.documents.HandleDocument(update)
	case hasUnreadableMedia(msg):
		b.logger.Debug().Int64("chat_id", msg.Chat.ID).Msg("Ignoring media message")
		return nil
	case b.messages != nil:
		return b.messages.HandleMessage(update)
	}
	return nil
}

// hasUnreadableMedia reports media types that carry no extractable text.
func hasUnreadableMedia(msg *tgbotapi.Message) bool {
	return msg.Photo != nil || msg.Video != nil || msg.Audio != nil || msg.Voice != nil
}

// SendMessage sends a plain text message to a chat.
func (b *Bot) SendMessage(chatID int64, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendMessageWithReply sends text quoting the message it answers.
func (b *Bot) SendMessageWithReply(chatID int64, text string, replyToMessageID int) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyToMessageID

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// SendTyping shows the typing indicator in a chat.
func (b *Bot) SendTyping(chatID int64) error {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("failed to send typing action: %w", err)
	}
	return nil
}
