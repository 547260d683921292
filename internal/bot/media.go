package bot

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"theme_bot/internal/ingest"
	"theme_bot/internal/model"
)

// downloadMedia fetches the attachment of a message, if any, into the
// media directory and returns its metadata. The returned Media has kind
// MediaNone when the message carries nothing downloadable.
func (b *Bot) downloadMedia(msg *tgbotapi.Message) (ingest.Media, error) {
	var (
		kind     model.MediaKind
		fileID   string
		uniqueID string
		ext      string
		original string
	)

	switch {
	case len(msg.Photo) > 0:
		// The last size is the largest one.
		ps := msg.Photo[len(msg.Photo)-1]
		kind = model.MediaPhoto
		fileID = ps.FileID
		uniqueID = ps.FileUniqueID
		ext = ".jpg"
	case msg.Document != nil:
		kind = model.MediaDocument
		fileID = msg.Document.FileID
		uniqueID = msg.Document.FileUniqueID
		ext = filepath.Ext(msg.Document.FileName)
		original = strings.TrimSuffix(msg.Document.FileName, ext)
	default:
		return ingest.Media{}, nil
	}

	name := fmt.Sprintf("%s-%d-%d%s", uniqueID, msg.Chat.ID, msg.MessageID, ext)
	dir := filepath.Join(b.cfg.MediaDir, string(kind))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ingest.Media{}, fmt.Errorf("create media dir: %w", err)
	}
	path := filepath.Join(dir, name)

	if err := b.fetchFile(fileID, path); err != nil {
		return ingest.Media{}, err
	}

	return ingest.Media{
		Kind:             kind,
		DocumentID:       uniqueID,
		FileName:         name,
		FilePath:         path,
		OriginalFilename: original,
	}, nil
}

// fetchFile resolves the Telegram file path and streams the bytes to dst.
func (b *Bot) fetchFile(fileID, dst string) error {
	f, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, f.Link(b.token), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// messageText returns the message text, falling back to the media caption.
func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// groupedID parses the Telegram media group identifier, when present.
func groupedID(msg *tgbotapi.Message) *int64 {
	if msg.MediaGroupID == "" {
		return nil
	}
	id, err := strconv.ParseInt(msg.MediaGroupID, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// extractLinks collects the URLs of text_link entities.
func extractLinks(msg *tgbotapi.Message) []string {
	var links []string
	for _, e := range msg.Entities {
		if e.Type == "text_link" && e.URL != "" {
			links = append(links, e.URL)
		}
	}
	return links
}
