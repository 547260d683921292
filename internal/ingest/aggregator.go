// Package ingest handles inbound messages from listened chats.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"theme_bot/internal/metrics"
	"theme_bot/internal/model"
	"theme_bot/internal/storage"
)

// Store is the persistence surface the aggregator writes to.
type Store interface {
	GetListeningChat(ctx context.Context, chatID int64) (*model.ListeningChat, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
	CreateFile(ctx context.Context, f *model.File) error
}

// Matcher answers whether a text contains any known keyword.
type Matcher interface {
	Matches(ctx context.Context, text string) (bool, error)
}

// Forwarder forwards a single source message out-of-band.
type Forwarder interface {
	Forward(toChatID, fromChatID, messageID int64) error
}

// Media is the tagged attachment variant of an inbound message. The
// byte transfer is the transport's concern; only metadata arrives here.
type Media struct {
	Kind             model.MediaKind
	DocumentID       string
	FileName         string
	FilePath         string
	OriginalFilename string
}

// Inbound is one message event from the transport.
type Inbound struct {
	ChatID    int64
	MessageID int64
	Text      string
	GroupedID *int64
	Date      time.Time
	Links     []string
	Media     Media
}

// Aggregator persists inbound messages and escalates keyword hits
// immediately, independent of any theme's digest cadence.
type Aggregator struct {
	store   Store
	matcher Matcher
	fwd     Forwarder
	dest    int64
	log     *slog.Logger
}

// New creates an Aggregator escalating matches to dest.
func New(store Store, matcher Matcher, fwd Forwarder, dest int64, log *slog.Logger) *Aggregator {
	return &Aggregator{store: store, matcher: matcher, fwd: fwd, dest: dest, log: log}
}

// Handle processes one inbound message. Messages from chats outside the
// listened set are ignored. A persistence failure is surfaced so the
// transport can decide whether to retry delivery.
func (a *Aggregator) Handle(ctx context.Context, in Inbound) error {
	if _, err := a.store.GetListeningChat(ctx, in.ChatID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check listening chat: %w", err)
	}

	msg := &model.Message{
		ChatID:    in.ChatID,
		MessageID: in.MessageID,
		Text:      in.Text,
		GroupedID: in.GroupedID,
		Date:      in.Date,
		Links:     strings.Join(in.Links, ","),
	}
	if err := a.store.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}
	metrics.MessagesIngested.Inc()

	switch in.Media.Kind {
	case model.MediaPhoto, model.MediaDocument:
		f := &model.File{
			DocumentID:       in.Media.DocumentID,
			FileName:         in.Media.FileName,
			FilePath:         in.Media.FilePath,
			FileType:         in.Media.Kind,
			MessageID:        in.MessageID,
			ChatID:           in.ChatID,
			OriginalFilename: in.Media.OriginalFilename,
		}
		if err := a.store.CreateFile(ctx, f); err != nil {
			return fmt.Errorf("persist file: %w", err)
		}
		metrics.FilesStored.Inc()
	case model.MediaWebPage, model.MediaNone:
		// Web page previews carry no downloadable attachment.
	}

	matched, err := a.matcher.Matches(ctx, in.Text)
	if err != nil {
		return fmt.Errorf("match keywords: %w", err)
	}
	if matched {
		a.log.Info("escalating message", "chat_id", in.ChatID, "message_id", in.MessageID)
		if err := a.fwd.Forward(a.dest, in.ChatID, in.MessageID); err != nil {
			// Escalation is best-effort; the message is persisted and
			// will still appear in the next digest window.
			a.log.Error("forward message", "chat_id", in.ChatID,
				"message_id", in.MessageID, "error", err)
		} else {
			metrics.Escalations.Inc()
		}
	}
	return nil
}
