package telegram

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxDocumentSize matches the Telegram getFile download limit (20MB).
const MaxDocumentSize = 20 * 1024 * 1024

// DownloadFile downloads a file from Telegram to destPath and returns the
// number of bytes written.
func (b *Bot) DownloadFile(fileID, destPath string) (int64, error) {
	// Get file info
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}

	// Check file size
	if file.FileSize > MaxDocumentSize {
		return 0, fmt.Errorf("file size %d exceeds maximum %d", file.FileSize, MaxDocumentSize)
	}

	// Get download URL
	url := file.Link(b.api.Token)

	// Download file
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	// Create destination directory
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	// Create destination file
	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	// Copy data
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	b.logger.Info().
		Str("file_id", fileID).
		Str("path", destPath).
		Int64("size", written).
		Msg("File downloaded")

	return written, nil
}
