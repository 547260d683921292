package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"theme_bot/internal/keyword"
	"theme_bot/internal/model"
	"theme_bot/internal/storage"
)

type forward struct {
	to, from, messageID int64
}

type fakeForwarder struct {
	forwards []forward
	err      error
}

func (f *fakeForwarder) Forward(to, from, messageID int64) error {
	if f.err != nil {
		return f.err
	}
	f.forwards = append(f.forwards, forward{to, from, messageID})
	return nil
}

func newTestAggregator(t *testing.T) (*Aggregator, *storage.SQLite, *fakeForwarder) {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	fwd := &fakeForwarder{}
	return New(s, keyword.New(s, log), fwd, 42, log), s, fwd
}

func TestHandleIgnoresUnlistenedChat(t *testing.T) {
	ctx := context.Background()
	a, s, _ := newTestAggregator(t)

	in := Inbound{ChatID: 999, MessageID: 1, Text: "hello", Date: time.Now().UTC()}
	if err := a.Handle(ctx, in); err != nil {
		t.Fatalf("handle: %v", err)
	}

	msgs, err := s.ListMessagesSince(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected nothing persisted, got %d messages", len(msgs))
	}
}

func TestHandleIdempotentReingest(t *testing.T) {
	ctx := context.Background()
	a, s, _ := newTestAggregator(t)

	if err := s.CreateListeningChat(ctx, 100); err != nil {
		t.Fatalf("create chat: %v", err)
	}

	in := Inbound{ChatID: 100, MessageID: 1, Text: "hello", Date: time.Now().UTC()}
	if err := a.Handle(ctx, in); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := a.Handle(ctx, in); err != nil {
		t.Fatalf("second handle: %v", err)
	}

	msgs, err := s.ListMessagesSince(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("expected 1 message, got %d", len(msgs))
	}
}

func TestHandleEscalatesKeywordHit(t *testing.T) {
	ctx := context.Background()
	a, s, fwd := newTestAggregator(t)

	if err := s.CreateListeningChat(ctx, 100); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if err := s.CreateKeywords(ctx, []string{"football"}); err != nil {
		t.Fatalf("create keyword: %v", err)
	}

	hit := Inbound{ChatID: 100, MessageID: 1, Text: "Football game tonight", Date: time.Now().UTC()}
	miss := Inbound{ChatID: 100, MessageID: 2, Text: "basketball game", Date: time.Now().UTC()}
	for _, in := range []Inbound{hit, miss} {
		if err := a.Handle(ctx, in); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	if len(fwd.forwards) != 1 {
		t.Fatalf("expected 1 escalation, got %d", len(fwd.forwards))
	}
	want := forward{to: 42, from: 100, messageID: 1}
	if fwd.forwards[0] != want {
		t.Errorf("forward = %+v, want %+v", fwd.forwards[0], want)
	}
}

func TestHandleForwardFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	a, s, fwd := newTestAggregator(t)
	fwd.err = errors.New("telegram down")

	if err := s.CreateListeningChat(ctx, 100); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if err := s.CreateKeywords(ctx, []string{"football"}); err != nil {
		t.Fatalf("create keyword: %v", err)
	}

	in := Inbound{ChatID: 100, MessageID: 1, Text: "football", Date: time.Now().UTC()}
	if err := a.Handle(ctx, in); err != nil {
		t.Fatalf("handle: %v", err)
	}

	// Message is persisted even though escalation failed.
	msgs, err := s.ListMessagesSince(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("expected 1 message, got %d", len(msgs))
	}
}

func TestHandlePersistsMediaMetadata(t *testing.T) {
	ctx := context.Background()
	a, s, _ := newTestAggregator(t)

	if err := s.CreateListeningChat(ctx, 100); err != nil {
		t.Fatalf("create chat: %v", err)
	}

	in := Inbound{
		ChatID:    100,
		MessageID: 1,
		Text:      "photo post",
		Date:      time.Now().UTC(),
		Media: Media{
			Kind:       model.MediaPhoto,
			DocumentID: "uniq-1",
			FileName:   "uniq-1-100-1.jpg",
			FilePath:   "/media/photo/uniq-1-100-1.jpg",
		},
	}
	if err := a.Handle(ctx, in); err != nil {
		t.Fatalf("handle: %v", err)
	}

	files, err := s.ListFilesForMessages(ctx, 100, []int64{1})
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].FileType != model.MediaPhoto || files[0].DocumentID != "uniq-1" {
		t.Errorf("unexpected file: %+v", files[0])
	}
}

func TestHandleWebPageStoresNoFile(t *testing.T) {
	ctx := context.Background()
	a, s, _ := newTestAggregator(t)

	if err := s.CreateListeningChat(ctx, 100); err != nil {
		t.Fatalf("create chat: %v", err)
	}

	in := Inbound{
		ChatID:    100,
		MessageID: 1,
		Text:      "link post",
		Date:      time.Now().UTC(),
		Links:     []string{"https://example.com/a", "https://example.com/b"},
		Media:     Media{Kind: model.MediaWebPage},
	}
	if err := a.Handle(ctx, in); err != nil {
		t.Fatalf("handle: %v", err)
	}

	files, err := s.ListFilesForMessages(ctx, 100, []int64{1})
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %d", len(files))
	}

	msgs, err := s.ListMessagesSince(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Links != "https://example.com/a,https://example.com/b" {
		t.Errorf("unexpected messages: %+v", msgs)
	}
}
