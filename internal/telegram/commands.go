package telegram

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// startText greets new users and explains what the bot can do.
const startText = "Hi! I'm an assistant with access to your documents: upload a PDF or DOCX and I'll store the contents and be able to answer questions about them. I can also share a dog fact or show a random dog with a breed description. Send me a message or a file."

// CommandContext carries the parsed pieces of one /command message.
type CommandContext struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Command   string
	Args      []string
	RawArgs   string
}

// CommandFunc handles one command invocation.
type CommandFunc func(CommandContext) error

// Commands parses slash commands out of updates and dispatches them
// to registered handlers. Unknown commands get a short reply instead
// of silence.
type Commands struct {
	bot    *Bot
	logger zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]CommandFunc
}

// NewCommands builds a dispatcher with the built-in command set.
func NewCommands(bot *Bot) *Commands {
	c := &Commands{
		bot:      bot,
		logger:   bot.logger.With().Str("module", "commands").Logger(),
		handlers: make(map[string]CommandFunc),
	}
	c.Register("start", c.handleStart)
	return c
}

// Register binds a handler to a command name, replacing any previous
// binding.
func (c *Commands) Register(name string, fn CommandFunc) {
	c.mu.Lock()
	c.handlers[name] = fn
	c.mu.Unlock()
	c.logger.Info().Str("command", name).Msg("Command registered")
}

// Unregister removes a command binding.
func (c *Commands) Unregister(name string) {
	c.mu.Lock()
	delete(c.handlers, name)
	c.mu.Unlock()
}

// Registered lists the bound command names in sorted order.
func (c *Commands) Registered() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (c *Commands) lookup(name string) (CommandFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.handlers[name]
	return fn, ok
}

// HandleCommand parses one update and dispatches the command it carries.
func (c *Commands) HandleCommand(update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return nil
	}

	cctx := CommandContext{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
		Command:   msg.Command(),
		Args:      strings.Fields(msg.CommandArguments()),
		RawArgs:   msg.CommandArguments(),
	}

	c.logger.Debug().
		Int64("chat_id", cctx.ChatID).
		Str("command", cctx.Command).
		Msg("Command received")

	fn, ok := c.lookup(cctx.Command)
	if !ok {
		return c.reply(cctx, fmt.Sprintf("Unknown command: /%s", cctx.Command))
	}
	return fn(cctx)
}

func (c *Commands) handleStart(cctx CommandContext) error {
	return c.reply(cctx, startText)
}

// reply answers in-thread, quoting the command message.
func (c *Commands) reply(cctx CommandContext, text string) error {
	return c.bot.SendMessageWithReply(cctx.ChatID, text, cctx.MessageID)
}
