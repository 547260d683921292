// Package bot implements the Telegram command layer and outbound transport.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"theme_bot/internal/config"
	"theme_bot/internal/ingest"
	"theme_bot/internal/keyword"
	"theme_bot/internal/storage"
	"theme_bot/internal/theme"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Doer abstracts the HTTP client used for media downloads.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Bot handles user commands, feeds inbound messages to the aggregator,
// and sends outbound digests and escalations.
type Bot struct {
	api        telegramAPI
	httpClient Doer
	token      string
	store      storage.Storage
	engine     *keyword.Engine
	registry   *theme.Registry
	aggregator *ingest.Aggregator
	cfg        *config.Config
	log        *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, and keyword
// engine. The registry and aggregator are wired with setters after
// construction because they depend on the bot's transport.
func New(token string, store storage.Storage, engine *keyword.Engine, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:        api,
		httpClient: http.DefaultClient,
		token:      token,
		store:      store,
		engine:     engine,
		cfg:        cfg,
		log:        log,
	}, nil
}

// SetRegistry wires the theme registry.
func (b *Bot) SetRegistry(r *theme.Registry) {
	b.registry = r
}

// SetAggregator wires the ingestion aggregator.
func (b *Bot) SetAggregator(a *ingest.Aggregator) {
	b.aggregator = a
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			if update.Message.IsCommand() {
				if update.Message.From != nil && !b.cfg.IsUserAllowed(update.Message.From.ID) {
					b.reply(update.Message.Chat.ID, "Access denied.")
					continue
				}
				b.handleCommand(ctx, update.Message)
				continue
			}
			b.handleInbound(ctx, update.Message)
		}
	}
}

// handleInbound converts a transport message into an ingestion event.
func (b *Bot) handleInbound(ctx context.Context, msg *tgbotapi.Message) {
	in := ingest.Inbound{
		ChatID:    msg.Chat.ID,
		MessageID: int64(msg.MessageID),
		Text:      messageText(msg),
		GroupedID: groupedID(msg),
		Date:      msg.Time().UTC(),
		Links:     extractLinks(msg),
	}

	media, err := b.downloadMedia(msg)
	if err != nil {
		b.log.Error("download media", "chat_id", msg.Chat.ID, "message_id", msg.MessageID, "error", err)
	} else {
		in.Media = media
	}

	if err := b.aggregator.Handle(ctx, in); err != nil {
		b.log.Error("ingest message", "chat_id", msg.Chat.ID, "message_id", msg.MessageID, "error", err)
	}
}

// SendText sends a text message to the given chat.
func (b *Bot) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendMediaGroup sends the files as one album with the caption on the
// first item. A single file is sent as a plain photo or document: the
// Telegram media group endpoint only accepts 2-10 items.
func (b *Bot) SendMediaGroup(chatID int64, paths []string, caption string) error {
	if len(paths) == 1 {
		return b.sendSingleMedia(chatID, paths[0], caption)
	}

	media := make([]interface{}, 0, len(paths))
	for i, p := range paths {
		item := inputMedia(p)
		if i == 0 {
			switch m := item.(type) {
			case tgbotapi.InputMediaPhoto:
				m.Caption = caption
				item = m
			case tgbotapi.InputMediaDocument:
				m.Caption = caption
				item = m
			}
		}
		media = append(media, item)
	}

	group := tgbotapi.NewMediaGroup(chatID, media)
	if _, err := b.api.SendMediaGroup(group); err != nil {
		return fmt.Errorf("send media group: %w", err)
	}
	return nil
}

func (b *Bot) sendSingleMedia(chatID int64, path, caption string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		msg := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
		msg.Caption = caption
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
	default:
		msg := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
		msg.Caption = caption
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("send document: %w", err)
		}
	}
	return nil
}

// Forward forwards a single source message to the moderation chat.
func (b *Bot) Forward(toChatID, fromChatID, messageID int64) error {
	fwd := tgbotapi.NewForward(toChatID, fromChatID, int(messageID))
	if _, err := b.api.Send(fwd); err != nil {
		return fmt.Errorf("forward message: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendText(chatID, text); err != nil {
		b.log.Error("reply", "chat_id", chatID, "error", err)
	}
}

func inputMedia(path string) interface{} {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(path))
	default:
		return tgbotapi.NewInputMediaDocument(tgbotapi.FilePath(path))
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start", "help":
		b.handleStart(chatID)
	case "addChat":
		b.handleAddChat(ctx, chatID, args)
	case "removeChat":
		b.handleRemoveChat(ctx, chatID, args)
	case "listeningChats":
		b.handleListeningChats(ctx, chatID)
	case "addKeyword":
		b.handleAddKeyword(ctx, chatID, args)
	case "removeKeyword", "removeKeywords":
		b.handleRemoveKeywords(ctx, chatID, args)
	case "editKeyword":
		b.handleEditKeyword(ctx, chatID, args)
	case "keywords":
		b.handleKeywords(ctx, chatID)
	case "allThemes":
		b.handleAllThemes(ctx, chatID)
	case "addTheme":
		b.handleAddTheme(ctx, chatID, args)
	case "addKeyWordsToTheme":
		b.handleAddKeywordsToTheme(ctx, chatID, args)
	case "removeKeywordsFromTheme":
		b.handleRemoveKeywordsFromTheme(ctx, chatID, args)
	case "removeThemes":
		b.handleRemoveThemes(ctx, chatID, args)
	case "followThemes":
		b.handleFollowThemes(ctx, chatID, args)
	case "unfollowThemes":
		b.handleUnfollowThemes(ctx, chatID, args)
	case "changeIntervalTheme":
		b.handleChangeInterval(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /start for a list of commands.")
	}
}
