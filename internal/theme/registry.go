// Package theme implements the theme registry and its follow state machine.
package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"theme_bot/internal/keyword"
	"theme_bot/internal/model"
	"theme_bot/internal/storage"
)

// Jobs is the scheduler surface the registry drives. Replacing a job is
// deliberately a remove-then-add pair owned by the registry.
type Jobs interface {
	Add(name string, interval time.Duration) error
	Remove(name string) error
}

// BatchResult partitions a batch of theme names by outcome so that
// partial success is explicit.
type BatchResult struct {
	Done     []string
	Already  []string
	NotFound []string
}

// KeywordResult partitions keyword words by outcome for theme
// membership operations.
type KeywordResult struct {
	Done    []string
	Unknown []string
}

// Registry is the source of truth for theme scheduling decisions.
type Registry struct {
	store storage.Storage
	jobs  Jobs
	log   *slog.Logger
}

// New creates a Registry driving the given job scheduler.
func New(store storage.Storage, jobs Jobs, log *slog.Logger) *Registry {
	return &Registry{store: store, jobs: jobs, log: log}
}

// Create adds a theme in the Unfollowed state. Words not present in the
// vocabulary are reported back rather than silently dropped.
func (r *Registry) Create(ctx context.Context, name string, intervalSeconds int, words []string) (KeywordResult, error) {
	if intervalSeconds <= 0 {
		return KeywordResult{}, fmt.Errorf("interval must be positive, got %d", intervalSeconds)
	}

	res, kws, err := r.resolveWords(ctx, words)
	if err != nil {
		return KeywordResult{}, err
	}

	t := &model.Theme{
		Name:            name,
		IntervalSeconds: intervalSeconds,
		Keywords:        kws,
	}
	if err := r.store.CreateTheme(ctx, t); err != nil {
		return KeywordResult{}, err
	}

	r.log.Info("theme created", "name", name, "interval_seconds", intervalSeconds,
		"keywords", len(res.Done), "unknown", len(res.Unknown))
	return res, nil
}

// Follow transitions themes to Followed and registers their jobs. Names
// already followed and unknown names are reported in their own buckets.
// The flag is persisted and the job added one theme at a time so that a
// failed job registration never leaves a followed theme without a live
// job: on failure the flag is rolled back before the error is returned.
func (r *Registry) Follow(ctx context.Context, names []string) (BatchResult, error) {
	res, targets, err := r.partition(ctx, names, true)
	if err != nil {
		return BatchResult{}, err
	}

	for _, t := range targets {
		if err := r.store.SetFollowing(ctx, []string{t.Name}, true); err != nil {
			return BatchResult{}, err
		}
		if err := r.jobs.Add(t.Name, time.Duration(t.IntervalSeconds)*time.Second); err != nil {
			if rbErr := r.store.SetFollowing(ctx, []string{t.Name}, false); rbErr != nil {
				r.log.Error("roll back follow flag", "name", t.Name, "error", rbErr)
			}
			return BatchResult{}, fmt.Errorf("add job for %q: %w", t.Name, err)
		}
	}
	return res, nil
}

// Unfollow transitions themes to Unfollowed and removes their jobs.
func (r *Registry) Unfollow(ctx context.Context, names []string) (BatchResult, error) {
	res, targets, err := r.partition(ctx, names, false)
	if err != nil {
		return BatchResult{}, err
	}

	if len(res.Done) > 0 {
		if err := r.store.SetFollowing(ctx, res.Done, false); err != nil {
			return BatchResult{}, err
		}
	}
	for _, t := range targets {
		if err := r.jobs.Remove(t.Name); err != nil {
			return BatchResult{}, fmt.Errorf("remove job for %q: %w", t.Name, err)
		}
	}
	return res, nil
}

// ChangeInterval stores the new interval unconditionally. If the theme
// is currently followed its job is replaced so the new cadence takes
// effect on the next tick.
func (r *Registry) ChangeInterval(ctx context.Context, name string, intervalSeconds int) error {
	if intervalSeconds <= 0 {
		return fmt.Errorf("interval must be positive, got %d", intervalSeconds)
	}

	t, err := r.store.GetTheme(ctx, name)
	if err != nil {
		return err
	}

	if err := r.store.UpdateThemeInterval(ctx, name, intervalSeconds); err != nil {
		return err
	}

	if t.IsFollowing {
		if err := r.jobs.Remove(name); err != nil {
			return fmt.Errorf("remove job for %q: %w", name, err)
		}
		if err := r.jobs.Add(name, time.Duration(intervalSeconds)*time.Second); err != nil {
			return fmt.Errorf("add job for %q: %w", name, err)
		}
	}

	r.log.Info("interval changed", "name", name, "interval_seconds", intervalSeconds)
	return nil
}

// Remove deletes themes, stopping the job of any followed one. Keywords
// survive theme deletion.
func (r *Registry) Remove(ctx context.Context, names []string) (BatchResult, error) {
	var res BatchResult
	for _, name := range names {
		t, err := r.store.GetTheme(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			res.NotFound = append(res.NotFound, name)
			continue
		}
		if err != nil {
			return BatchResult{}, err
		}

		if t.IsFollowing {
			if err := r.jobs.Remove(name); err != nil {
				return BatchResult{}, fmt.Errorf("remove job for %q: %w", name, err)
			}
		}
		if err := r.store.DeleteTheme(ctx, name); err != nil {
			return BatchResult{}, err
		}
		res.Done = append(res.Done, name)
	}
	return res, nil
}

// AddKeywords attaches vocabulary words to a theme. Unknown words are
// reported, not added.
func (r *Registry) AddKeywords(ctx context.Context, name string, words []string) (KeywordResult, error) {
	res, _, err := r.resolveWords(ctx, words)
	if err != nil {
		return KeywordResult{}, err
	}
	if err := r.store.AddKeywordsToTheme(ctx, name, res.Done); err != nil {
		return KeywordResult{}, err
	}
	return res, nil
}

// RemoveKeywords detaches words from a theme.
func (r *Registry) RemoveKeywords(ctx context.Context, name string, words []string) (KeywordResult, error) {
	res, _, err := r.resolveWords(ctx, words)
	if err != nil {
		return KeywordResult{}, err
	}
	if err := r.store.RemoveKeywordsFromTheme(ctx, name, res.Done); err != nil {
		return KeywordResult{}, err
	}
	return res, nil
}

// List returns all themes.
func (r *Registry) List(ctx context.Context) ([]model.Theme, error) {
	return r.store.ListThemes(ctx)
}

// partition splits names into transitioned / already-in-state / unknown
// for the target follow state, returning the themes to transition.
func (r *Registry) partition(ctx context.Context, names []string, target bool) (BatchResult, []model.Theme, error) {
	var res BatchResult
	var targets []model.Theme

	for _, name := range names {
		t, err := r.store.GetTheme(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			res.NotFound = append(res.NotFound, name)
			continue
		}
		if err != nil {
			return BatchResult{}, nil, err
		}
		if t.IsFollowing == target {
			res.Already = append(res.Already, name)
			continue
		}
		res.Done = append(res.Done, name)
		targets = append(targets, *t)
	}
	return res, targets, nil
}

// resolveWords normalizes words and splits them into known vocabulary
// entries and unknown ones.
func (r *Registry) resolveWords(ctx context.Context, words []string) (KeywordResult, []model.Keyword, error) {
	var res KeywordResult
	var kws []model.Keyword

	for _, w := range words {
		norm := keyword.Normalize(w)
		kw, err := r.store.GetKeyword(ctx, norm)
		if errors.Is(err, storage.ErrNotFound) {
			res.Unknown = append(res.Unknown, norm)
			continue
		}
		if err != nil {
			return KeywordResult{}, nil, err
		}
		res.Done = append(res.Done, norm)
		kws = append(kws, *kw)
	}
	return res, kws, nil
}
