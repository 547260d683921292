package digest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"theme_bot/internal/model"
)

type fakeStore struct {
	msgs      []model.Message
	files     map[int64][]model.File // keyed by message id
	lastSince time.Time
}

func (s *fakeStore) ListMessagesSince(_ context.Context, since time.Time) ([]model.Message, error) {
	s.lastSince = since
	var out []model.Message
	for _, m := range s.msgs {
		if !m.Date.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) ListFilesForMessages(_ context.Context, chatID int64, ids []int64) ([]model.File, error) {
	var out []model.File
	for _, id := range ids {
		for _, f := range s.files[id] {
			if f.ChatID == chatID {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

type sentText struct {
	chatID int64
	text   string
}

type sentMedia struct {
	chatID  int64
	paths   []string
	caption string
}

type fakeSender struct {
	texts   []sentText
	media   []sentMedia
	textErr error
}

func (s *fakeSender) SendText(chatID int64, text string) error {
	if s.textErr != nil {
		return s.textErr
	}
	s.texts = append(s.texts, sentText{chatID, text})
	return nil
}

func (s *fakeSender) SendMediaGroup(chatID int64, paths []string, caption string) error {
	s.media = append(s.media, sentMedia{chatID, paths, caption})
	return nil
}

func newTestDispatcher(store *fakeStore, sender *fakeSender, at time.Time) *Dispatcher {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := New(store, sender, 42, 15*time.Second, time.Millisecond, log)
	d.now = func() time.Time { return at }
	return d
}

func TestDispatchWindow(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		msgs: []model.Message{
			{ChatID: 1, MessageID: 1, Text: "stale", Date: now.Add(-2 * time.Hour)},
			{ChatID: 1, MessageID: 2, Text: "fresh", Date: now.Add(-30 * time.Second)},
		},
	}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, now)

	if err := d.Dispatch(context.Background(), "sports", time.Minute); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	wantSince := now.Add(-(time.Minute + 15*time.Second))
	if !store.lastSince.Equal(wantSince) {
		t.Errorf("since = %s, want %s", store.lastSince, wantSince)
	}
	if diff := cmp.Diff([]sentText{{42, "fresh"}}, sender.texts, cmp.AllowUnexported(sentText{})); diff != "" {
		t.Errorf("sent texts mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchEmptyWindowSendsNothing(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, now)

	if err := d.Dispatch(context.Background(), "sports", time.Minute); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sender.texts) != 0 || len(sender.media) != 0 {
		t.Errorf("expected no sends, got %d texts %d media", len(sender.texts), len(sender.media))
	}
}

func TestGroupUnits(t *testing.T) {
	g1, g2 := int64(100), int64(200)
	msgs := []model.Message{
		{ChatID: 1, MessageID: 1, GroupedID: &g1},
		{ChatID: 1, MessageID: 2, GroupedID: &g1},
		{ChatID: 1, MessageID: 3},
		{ChatID: 2, MessageID: 4, GroupedID: &g1}, // same grouped id, other chat
		{ChatID: 1, MessageID: 5, GroupedID: &g2},
		{ChatID: 1, MessageID: 6, GroupedID: &g1},
	}

	units := groupUnits(msgs)
	got := make([][]int64, len(units))
	for i, u := range units {
		for _, m := range u {
			got[i] = append(got[i], m.MessageID)
		}
	}
	want := [][]int64{{1, 2, 6}, {3}, {4}, {5}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchGroupedMediaSentOnce(t *testing.T) {
	now := time.Now().UTC()
	g := int64(100)
	store := &fakeStore{
		msgs: []model.Message{
			{ChatID: 1, MessageID: 1, Text: "album caption", GroupedID: &g, Date: now},
			{ChatID: 1, MessageID: 2, GroupedID: &g, Date: now},
			{ChatID: 1, MessageID: 3, Text: "plain", Date: now},
		},
		files: map[int64][]model.File{
			1: {{ChatID: 1, MessageID: 1, FilePath: "/m/a.jpg"}},
			2: {{ChatID: 1, MessageID: 2, FilePath: "/m/b.jpg"}},
		},
	}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, now)

	if err := d.Dispatch(context.Background(), "sports", time.Minute); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	wantMedia := []sentMedia{{chatID: 42, paths: []string{"/m/a.jpg", "/m/b.jpg"}, caption: "album caption"}}
	if diff := cmp.Diff(wantMedia, sender.media, cmp.AllowUnexported(sentMedia{})); diff != "" {
		t.Errorf("media sends mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]sentText{{42, "plain"}}, sender.texts, cmp.AllowUnexported(sentText{})); diff != "" {
		t.Errorf("text sends mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchSkipsEmptyTextUnits(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{
		msgs: []model.Message{
			{ChatID: 1, MessageID: 1, Text: "", Date: now},
		},
	}
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, now)

	if err := d.Dispatch(context.Background(), "sports", time.Minute); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(sender.texts) != 0 {
		t.Errorf("expected no sends for empty text, got %v", sender.texts)
	}
}

func TestDispatchUnitErrorDoesNotAbort(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{
		msgs: []model.Message{
			{ChatID: 1, MessageID: 1, Text: "first", Date: now},
			{ChatID: 1, MessageID: 2, Text: "second", Date: now},
		},
		files: map[int64][]model.File{
			2: {{ChatID: 1, MessageID: 2, FilePath: "/m/b.jpg"}},
		},
	}
	sender := &fakeSender{textErr: errors.New("boom")}
	d := newTestDispatcher(store, sender, now)

	if err := d.Dispatch(context.Background(), "sports", time.Minute); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	// The text unit failed but the media unit still went out.
	if len(sender.media) != 1 {
		t.Errorf("expected 1 media send, got %d", len(sender.media))
	}
}
