package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/zerocode/haybot/internal/metrics"
	"github.com/zerocode/haybot/pkg/commandqueue"
)

// replyTimeout bounds one full respond/deliver/record cycle.
const replyTimeout = 5 * time.Minute

// Sender delivers messages to a chat.
type Sender interface {
	SendMessage(chatID int64, text string) error
	SendTyping(chatID int64) error
}

// Responder produces a reply for a user message and records the exchange.
// Respond always returns deliverable text, degrading to an apology when a
// dependency fails.
type Responder interface {
	Respond(ctx context.Context, userID, userText string) (string, error)
	Remember(ctx context.Context, userID, userText, replyText string) error
}

// Handler processes incoming text messages. Messages from the same user are
// serialized on a per-user lane so replies land in conversation order, while
// different users proceed concurrently.
type Handler struct {
	sender    Sender
	queue     *commandqueue.CommandQueue
	responder Responder
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// HandlerConfig holds Handler dependencies
type HandlerConfig struct {
	Sender    Sender
	Queue     *commandqueue.CommandQueue
	Responder Responder
	Metrics   *metrics.Metrics // optional
	Logger    zerolog.Logger
}

// NewHandler creates a new message handler
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if cfg.Responder == nil {
		return nil, fmt.Errorf("responder is required")
	}

	return &Handler{
		sender:    cfg.Sender,
		queue:     cfg.Queue,
		responder: cfg.Responder,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With().Str("module", "handler").Logger(),
	}, nil
}

// HandleMessage processes an incoming text message. The update is dispatched
// to the user's lane and the call returns immediately so one slow user cannot
// stall the polling loop.
func (h *Handler) HandleMessage(update tgbotapi.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	chatID := msg.Chat.ID
	userID := strconv.FormatInt(msg.From.ID, 10)
	lane := "user:" + userID
	requestID := strconv.Itoa(update.UpdateID)

	h.logger.Debug().
		Int64("chat_id", chatID).
		Str("user_id", userID).
		Int("query_len", len(text)).
		Msg("Message received")

	if h.metrics != nil {
		h.metrics.TelegramMessagesReceivedTotal.Inc()
	}

	// Join the lane before returning so two rapid messages from the same
	// user are answered in arrival order; only the wait happens off the
	// polling goroutine.
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	pending := h.queue.SubmitDedup(ctx, lane, requestID, func(ctx context.Context) (interface{}, error) {
		return nil, h.respond(ctx, chatID, userID, text)
	})

	go func() {
		defer cancel()
		if _, err := pending.Wait(); err != nil {
			h.logger.Error().
				Err(err).
				Str("user_id", userID).
				Msg("Failed to handle message")
		}
	}()

	return nil
}

// respond runs one respond/deliver/record cycle on the user's lane.
func (h *Handler) respond(ctx context.Context, chatID int64, userID, text string) error {
	started := time.Now()

	if err := h.sender.SendTyping(chatID); err != nil {
		h.logger.Debug().Err(err).Msg("Failed to send typing action")
	}

	reply, respondErr := h.responder.Respond(ctx, userID, text)

	// Deliver the reply before recording anything; the user always hears
	// back, even when respondErr carries a dependency failure.
	if err := h.sender.SendMessage(chatID, reply); err != nil {
		if h.metrics != nil {
			h.metrics.TelegramErrorsTotal.Inc()
		}
		h.observeReply("send_error", started)
		return fmt.Errorf("failed to deliver reply: %w", err)
	}
	if h.metrics != nil {
		h.metrics.TelegramMessagesSentTotal.Inc()
	}

	if respondErr != nil {
		h.observeReply("degraded", started)
		return respondErr
	}

	if err := h.responder.Remember(ctx, userID, text, reply); err != nil {
		h.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("Failed to record exchange in memory")
	}

	h.observeReply("ok", started)

	h.logger.Info().
		Str("user_id", userID).
		Int("reply_len", len(reply)).
		Dur("elapsed", time.Since(started)).
		Msg("Reply delivered")

	return nil
}

func (h *Handler) observeReply(status string, started time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RepliesTotal.WithLabelValues(status).Inc()
	h.metrics.ReplyDuration.Observe(time.Since(started).Seconds())
}
