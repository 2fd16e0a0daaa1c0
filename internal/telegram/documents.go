package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/zerocode/haybot/internal/metrics"
	"github.com/zerocode/haybot/pkg/commandqueue"
	"github.com/zerocode/haybot/pkg/ingest"
)

const (
	// ingestTimeout bounds one full download/ingest/summarize cycle.
	ingestTimeout = 10 * time.Minute

	// maxErrorLen keeps error reports under the Telegram message limit.
	maxErrorLen = 4000

	processingText = "Got the file. Analyzing and saving it, this may take a little while…"
	ingestedText   = "Done. I've studied this file, we can discuss it now."

	// Failure replies are fixed strings. The underlying errors can carry
	// file paths, URLs or API detail and are only ever logged.
	downloadFailedText = "Sorry, I couldn't download that file from Telegram. Please try sending it again."
	ingestFailedText   = "Sorry, I couldn't read that file. Plain text and Markdown documents work best."
	summaryFailedText  = "I've saved the file, but couldn't come up with a summary for it right now."
)

// Ingestor turns an uploaded file into stored memory fragments.
type Ingestor interface {
	Ingest(ctx context.Context, path, userID, filename string) (*ingest.Result, error)
}

// Summarizer produces a one-sentence description of extracted document text.
type Summarizer interface {
	Summarize(ctx context.Context, chunks []string) (string, error)
}

// FileDownloader fetches a Telegram file to a local path.
type FileDownloader interface {
	DownloadFile(fileID, destPath string) (int64, error)
}

// Documents processes document uploads: the file is downloaded to a staging
// directory, ingested into the user's memory, and acknowledged with a
// one-sentence summary. Uploads share the user's lane with chat messages so
// a document is fully ingested before the next message is answered.
type Documents struct {
	sender     Sender
	files      FileDownloader
	queue      *commandqueue.CommandQueue
	ingestor   Ingestor
	summarizer Summarizer
	tempDir    string
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// DocumentsConfig holds Documents dependencies
type DocumentsConfig struct {
	Sender     Sender
	Files      FileDownloader
	Queue      *commandqueue.CommandQueue
	Ingestor   Ingestor
	Summarizer Summarizer
	TempDir    string
	Metrics    *metrics.Metrics // optional
	Logger     zerolog.Logger
}

// NewDocuments creates a new document handler
func NewDocuments(cfg DocumentsConfig) (*Documents, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if cfg.Files == nil {
		return nil, fmt.Errorf("file downloader is required")
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if cfg.Ingestor == nil {
		return nil, fmt.Errorf("ingestor is required")
	}
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	if cfg.TempDir == "" {
		return nil, fmt.Errorf("temp dir is required")
	}

	return &Documents{
		sender:     cfg.Sender,
		files:      cfg.Files,
		queue:      cfg.Queue,
		ingestor:   cfg.Ingestor,
		summarizer: cfg.Summarizer,
		tempDir:    cfg.TempDir,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With().Str("module", "documents").Logger(),
	}, nil
}

// HandleDocument processes a document upload. Like text messages, the work is
// dispatched to the user's lane and the call returns immediately.
func (d *Documents) HandleDocument(update tgbotapi.Update) error {
	if update.Message == nil || update.Message.From == nil || update.Message.Document == nil {
		return nil
	}

	msg := update.Message
	doc := msg.Document
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(msg.From.ID, 10)

	filename := doc.FileName
	if filename == "" {
		filename = "document"
	}

	d.logger.Info().
		Str("user_id", userID).
		Str("filename", filename).
		Str("file_id", doc.FileID).
		Msg("Document received")

	// Acknowledge before the heavy lifting starts
	if err := d.sender.SendMessage(chatID, processingText); err != nil {
		return fmt.Errorf("failed to acknowledge upload: %w", err)
	}

	fileID := doc.FileID
	lane := "user:" + userID
	requestID := strconv.Itoa(update.UpdateID)

	// Join the lane before returning so the upload keeps its place in the
	// user's conversation order.
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	pending := d.queue.SubmitDedup(ctx, lane, requestID, func(ctx context.Context) (interface{}, error) {
		return nil, d.process(ctx, chatID, userID, fileID, filename)
	})

	go func() {
		defer cancel()
		if _, err := pending.Wait(); err != nil {
			d.logger.Error().
				Err(err).
				Str("user_id", userID).
				Str("filename", filename).
				Msg("Failed to process document")
		}
	}()

	return nil
}

// process downloads, ingests and summarizes one document
func (d *Documents) process(ctx context.Context, chatID int64, userID, fileID, filename string) error {
	started := time.Now()

	path, err := d.stage(fileID, filename)
	if err != nil {
		d.observeIngest("download_error", started)
		d.reportFailure(chatID, downloadFailedText, err)
		return err
	}
	defer os.Remove(path)

	result, err := d.ingestor.Ingest(ctx, path, userID, filename)
	if err != nil {
		d.observeIngest("error", started)
		d.reportFailure(chatID, ingestFailedText, err)
		return err
	}

	summaryText, err := d.summarizer.Summarize(ctx, result.Texts)
	if err != nil {
		d.observeIngest("summary_error", started)
		d.reportFailure(chatID, summaryFailedText, err)
		return err
	}

	d.observeIngest("ok", started)

	if err := d.sender.SendMessage(chatID, ingestedText); err != nil {
		return fmt.Errorf("failed to send completion message: %w", err)
	}
	if err := d.sender.SendMessage(chatID, summaryText); err != nil {
		return fmt.Errorf("failed to send summary: %w", err)
	}

	d.logger.Info().
		Str("user_id", userID).
		Str("filename", filename).
		Int("fragments", result.Written).
		Int("summary_len", len(summaryText)).
		Dur("elapsed", time.Since(started)).
		Msg("Document ingested")

	return nil
}

func (d *Documents) observeIngest(status string, started time.Time) {
	if d.metrics == nil {
		return
	}
	d.metrics.DocumentsIngestedTotal.WithLabelValues(status).Inc()
	d.metrics.IngestDuration.Observe(time.Since(started).Seconds())
}

// stage downloads the file into the staging directory
func (d *Documents) stage(fileID, filename string) (string, error) {
	if err := os.MkdirAll(d.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	suffix := filepath.Ext(filename)
	if suffix == "" {
		suffix = ".bin"
	}

	tmp, err := os.CreateTemp(d.tempDir, "haybot_*"+suffix)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()

	if _, err := d.files.DownloadFile(fileID, path); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

// reportFailure logs the underlying error and tells the user the upload
// failed with a fixed reply. Raw error text never reaches the chat; the
// reply is still truncated defensively to stay under the Telegram limit.
func (d *Documents) reportFailure(chatID int64, reply string, err error) {
	d.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Document processing failed")

	if len(reply) > maxErrorLen {
		reply = reply[:maxErrorLen] + "\n... (message truncated)"
	}
	if sendErr := d.sender.SendMessage(chatID, reply); sendErr != nil {
		d.logger.Error().Err(sendErr).Int64("chat_id", chatID).Msg("Failed to report failure")
	}
}
