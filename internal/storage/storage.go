// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"theme_bot/internal/model"
)

// Sentinel errors shared by the storage layer and the scheduler.
var (
	// ErrNotFound is returned when the addressed entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on uniqueness violations.
	ErrConflict = errors.New("already exists")
)

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateKeywords(ctx context.Context, words []string) error
	ListKeywords(ctx context.Context) ([]model.Keyword, error)
	GetKeyword(ctx context.Context, word string) (*model.Keyword, error)
	DeleteKeywords(ctx context.Context, words []string) error
	RenameKeyword(ctx context.Context, from, to string) error

	CreateTheme(ctx context.Context, theme *model.Theme) error
	GetTheme(ctx context.Context, name string) (*model.Theme, error)
	ListThemes(ctx context.Context) ([]model.Theme, error)
	DeleteTheme(ctx context.Context, name string) error
	SetFollowing(ctx context.Context, names []string, following bool) error
	UpdateThemeInterval(ctx context.Context, name string, seconds int) error
	AddKeywordsToTheme(ctx context.Context, name string, words []string) error
	RemoveKeywordsFromTheme(ctx context.Context, name string, words []string) error

	CreateListeningChat(ctx context.Context, chatID int64) error
	GetListeningChat(ctx context.Context, chatID int64) (*model.ListeningChat, error)
	ListListeningChats(ctx context.Context) ([]model.ListeningChat, error)
	DeleteListeningChat(ctx context.Context, chatID int64) error

	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessagesSince(ctx context.Context, since time.Time) ([]model.Message, error)

	CreateFile(ctx context.Context, f *model.File) error
	ListFilesForMessages(ctx context.Context, chatID int64, messageIDs []int64) ([]model.File, error)

	Close() error
}
