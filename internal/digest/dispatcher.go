// Package digest implements the periodic dispatch of matched messages.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"theme_bot/internal/metrics"
	"theme_bot/internal/model"
)

// Store is the persistence surface the dispatcher reads from.
type Store interface {
	ListMessagesSince(ctx context.Context, since time.Time) ([]model.Message, error)
	ListFilesForMessages(ctx context.Context, chatID int64, messageIDs []int64) ([]model.File, error)
}

// Sender delivers digest units to the moderation chat.
type Sender interface {
	SendText(chatID int64, text string) error
	SendMediaGroup(chatID int64, paths []string, caption string) error
}

// Dispatcher queries the trailing message window on each theme firing,
// reassembles grouped posts into units, and sends one outbound unit per
// group.
type Dispatcher struct {
	store   Store
	sender  Sender
	dest    int64
	grace   time.Duration
	limiter *rate.Limiter
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Dispatcher sending to dest. grace widens the query
// window to compensate timer jitter; sendInterval paces unit sends.
func New(store Store, sender Sender, dest int64, grace, sendInterval time.Duration, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		sender:  sender,
		dest:    dest,
		grace:   grace,
		limiter: rate.NewLimiter(rate.Every(sendInterval), 1),
		log:     log,
		now:     time.Now,
	}
}

// Dispatch sends the digest for one theme firing. A failure on one unit
// is logged and does not abort the remaining units.
func (d *Dispatcher) Dispatch(ctx context.Context, theme string, interval time.Duration) error {
	since := d.now().UTC().Add(-(interval + d.grace))

	msgs, err := d.store.ListMessagesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("query window: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	units := groupUnits(msgs)
	d.log.Info("dispatching digest", "theme", theme, "messages", len(msgs), "units", len(units))

	for _, u := range units {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate wait: %w", err)
		}
		if err := d.sendUnit(ctx, u); err != nil {
			metrics.DispatchErrors.Inc()
			d.log.Error("send unit", "theme", theme,
				"chat_id", u[0].ChatID, "message_id", u[0].MessageID, "error", err)
			continue
		}
		metrics.DigestUnitsSent.Inc()
	}
	return nil
}

// A unit is one logical post: either a single message or all messages
// sharing a grouped id within one chat. The first member is primary.
type unit []model.Message

// groupUnits partitions messages into units, preserving the input order
// of first appearance.
func groupUnits(msgs []model.Message) []unit {
	type key struct {
		chatID  int64
		grouped int64
	}

	var units []unit
	index := make(map[key]int)

	for _, m := range msgs {
		if m.GroupedID == nil {
			units = append(units, unit{m})
			continue
		}
		k := key{chatID: m.ChatID, grouped: *m.GroupedID}
		if i, ok := index[k]; ok {
			units[i] = append(units[i], m)
			continue
		}
		index[k] = len(units)
		units = append(units, unit{m})
	}
	return units
}

// sendUnit sends one unit: a single media-plus-caption send when any
// member message carries files, a plain text send otherwise.
func (d *Dispatcher) sendUnit(ctx context.Context, u unit) error {
	ids := make([]int64, len(u))
	for i, m := range u {
		ids[i] = m.MessageID
	}

	files, err := d.store.ListFilesForMessages(ctx, u[0].ChatID, ids)
	if err != nil {
		return fmt.Errorf("fetch files: %w", err)
	}

	caption := u[0].Text

	if len(files) > 0 {
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.FilePath
		}
		if err := d.sender.SendMediaGroup(d.dest, paths, caption); err != nil {
			return fmt.Errorf("send media: %w", err)
		}
		return nil
	}

	if caption == "" {
		return nil
	}
	if err := d.sender.SendText(d.dest, caption); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}
