// Package model defines the domain types used across the application.
package model

import "time"

// Keyword is a single vocabulary word. Words are stored normalized
// (lowercase, ё folded to е) and are unique.
type Keyword struct {
	ID   int64
	Word string
}

// Theme is a named group of keywords with its own digest cadence.
// The keyword membership is many-to-many: a keyword may belong to
// several themes and outlives any one of them.
type Theme struct {
	ID              int64
	Name            string
	IntervalSeconds int
	IsFollowing     bool
	Keywords        []Keyword
}

// ListeningChat identifies a source chat whose messages are ingested.
type ListeningChat struct {
	ID     int64
	ChatID int64
}

// Message is one ingested chat message. Identity is the (ChatID,
// MessageID) pair; re-ingesting the same pair is a no-op.
// GroupedID, when set, ties the transport-level messages of one
// multi-attachment post together.
type Message struct {
	ChatID    int64
	MessageID int64
	Text      string
	GroupedID *int64
	Date      time.Time
	Links     string
}

// MediaKind tags the attachment variant carried by an inbound message.
type MediaKind string

// Supported media kinds.
const (
	MediaNone     MediaKind = ""
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaWebPage  MediaKind = "webpage"
)

// File is the stored metadata of a downloaded attachment. DocumentID is
// the durable Telegram file identifier and the dedup key.
type File struct {
	ID               int64
	DocumentID       string
	FileName         string
	FilePath         string
	FileType         MediaKind
	MessageID        int64
	ChatID           int64
	OriginalFilename string
}
