// Package keyword implements vocabulary expansion and text matching.
package keyword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"theme_bot/internal/storage"
)

// Engine expands seed words into their variant sets and answers whether
// a text contains any known keyword.
type Engine struct {
	store storage.Storage
	log   *slog.Logger
}

// New creates an Engine backed by the given store.
func New(store storage.Storage, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// AddKeyword expands seed into its variant set and persists all variants
// in one transaction. Fails with storage.ErrConflict if the seed is
// already in the vocabulary.
func (e *Engine) AddKeyword(ctx context.Context, seed string) ([]string, error) {
	norm := Normalize(seed)
	if norm == "" {
		return nil, fmt.Errorf("empty keyword")
	}

	if _, err := e.store.GetKeyword(ctx, norm); err == nil {
		return nil, fmt.Errorf("keyword %q: %w", norm, storage.ErrConflict)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	variants := Expand(norm)
	if err := e.store.CreateKeywords(ctx, variants); err != nil {
		return nil, fmt.Errorf("persist variants: %w", err)
	}

	e.log.Info("added keyword", "seed", norm, "variants", len(variants))
	return variants, nil
}

// Matches reports whether any whitespace token of text, after symbol
// stripping and normalization, is in the vocabulary. An empty vocabulary
// never matches.
func (e *Engine) Matches(ctx context.Context, text string) (bool, error) {
	kws, err := e.store.ListKeywords(ctx)
	if err != nil {
		return false, fmt.Errorf("load vocabulary: %w", err)
	}
	if len(kws) == 0 {
		return false, nil
	}

	vocab := make(map[string]bool, len(kws))
	for _, k := range kws {
		vocab[k.Word] = true
	}

	for _, token := range Tokenize(text) {
		if vocab[token] {
			return true, nil
		}
	}
	return false, nil
}

// Edit renames a keyword across all theme memberships. Fails with
// storage.ErrNotFound if from is absent and storage.ErrConflict if to
// already exists.
func (e *Engine) Edit(ctx context.Context, from, to string) error {
	fromNorm, toNorm := Normalize(from), Normalize(to)
	if fromNorm == "" || toNorm == "" {
		return fmt.Errorf("empty keyword")
	}
	if err := e.store.RenameKeyword(ctx, fromNorm, toNorm); err != nil {
		return err
	}
	e.log.Info("edited keyword", "from", fromNorm, "to", toNorm)
	return nil
}

// Remove deletes the given words, partitioning the input into removed
// and unknown words so that partial success is explicit.
func (e *Engine) Remove(ctx context.Context, words []string) (removed, missing []string, err error) {
	for _, w := range words {
		norm := Normalize(w)
		_, getErr := e.store.GetKeyword(ctx, norm)
		switch {
		case getErr == nil:
			removed = append(removed, norm)
		case errors.Is(getErr, storage.ErrNotFound):
			missing = append(missing, norm)
		default:
			return nil, nil, getErr
		}
	}

	if len(removed) > 0 {
		if err := e.store.DeleteKeywords(ctx, removed); err != nil {
			return nil, nil, err
		}
	}
	return removed, missing, nil
}
