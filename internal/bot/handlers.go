package bot

import (
	"context"
	"errors"
	"fmt"

	"theme_bot/internal/storage"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Keyword monitor commands:

Chats:
/addChat <id> — listen to a chat
/removeChat <id> — stop listening
/listeningChats — show listened chats

Keywords:
/addKeyword <word> — add a word and its inflections
/removeKeyword <word> — remove one word
/removeKeywords <word>-<word> — remove several words
/editKeyword <from>-<to> — rename a word
/keywords — show the vocabulary

Themes:
/allThemes — show all themes
/addTheme <name>-<word>-<word> — create a theme
/addKeyWordsToTheme <name>-<word>-<word> — attach words
/removeKeywordsFromTheme <name>-<word>-<word> — detach words
/removeThemes <name>-<name> — delete themes
/followThemes <name>-<name> — start periodic digests
/unfollowThemes <name>-<name> — stop periodic digests
/changeIntervalTheme <name> <seconds> — change digest cadence`)
}

func (b *Bot) handleAddChat(ctx context.Context, chatID int64, args string) {
	id, err := ParseChatID(args)
	if err != nil {
		b.reply(chatID, "Usage: /addChat <id>")
		return
	}

	if err := b.store.CreateListeningChat(ctx, id); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			b.reply(chatID, fmt.Sprintf("Chat %d is already listened to.", id))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Chat %d added.", id))
}

func (b *Bot) handleRemoveChat(ctx context.Context, chatID int64, args string) {
	id, err := ParseChatID(args)
	if err != nil {
		b.reply(chatID, "Usage: /removeChat <id>")
		return
	}

	if err := b.store.DeleteListeningChat(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("Chat %d is not listened to.", id))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Chat %d removed.", id))
}

func (b *Bot) handleListeningChats(ctx context.Context, chatID int64) {
	chats, err := b.store.ListListeningChats(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatChatList(chats))
}

func (b *Bot) handleAddKeyword(ctx context.Context, chatID int64, args string) {
	word, err := ParseWord(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Usage: /addKeyword <word>. %v", err))
		return
	}

	variants, err := b.engine.AddKeyword(ctx, word)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			b.reply(chatID, fmt.Sprintf("Keyword %q already exists.", word))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatVariants(variants))
}

func (b *Bot) handleRemoveKeywords(ctx context.Context, chatID int64, args string) {
	words, err := ParseDashList(args)
	if err != nil {
		b.reply(chatID, "Usage: /removeKeywords <word>-<word>")
		return
	}

	removed, missing, err := b.engine.Remove(ctx, words)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatRemovedKeywords(removed, missing))
}

func (b *Bot) handleEditKeyword(ctx context.Context, chatID int64, args string) {
	from, to, err := ParseEditArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if err := b.engine.Edit(ctx, from, to); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			b.reply(chatID, fmt.Sprintf("Keyword %q is not in the vocabulary.", from))
		case errors.Is(err, storage.ErrConflict):
			b.reply(chatID, fmt.Sprintf("Keyword %q already exists.", to))
		default:
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
		}
		return
	}
	b.reply(chatID, fmt.Sprintf("Keyword %q renamed to %q.", from, to))
}

func (b *Bot) handleKeywords(ctx context.Context, chatID int64) {
	kws, err := b.store.ListKeywords(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatKeywordList(kws))
}

func (b *Bot) handleAllThemes(ctx context.Context, chatID int64) {
	themes, err := b.registry.List(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatThemeList(themes))
}

func (b *Bot) handleAddTheme(ctx context.Context, chatID int64, args string) {
	name, words, err := ParseThemeWithWords(args)
	if err != nil {
		b.reply(chatID, "Usage: /addTheme <name>-<word>-<word>")
		return
	}

	const defaultInterval = 60
	res, err := b.registry.Create(ctx, name, defaultInterval, words)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			b.reply(chatID, fmt.Sprintf("Theme %q already exists.", name))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatKeywordResult(fmt.Sprintf("Theme %q created.", name), res))
}

func (b *Bot) handleAddKeywordsToTheme(ctx context.Context, chatID int64, args string) {
	name, words, err := ParseThemeWithWords(args)
	if err != nil || len(words) == 0 {
		b.reply(chatID, "Usage: /addKeyWordsToTheme <name>-<word>-<word>")
		return
	}

	res, err := b.registry.AddKeywords(ctx, name, words)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("Theme %q not found.", name))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatKeywordResult(fmt.Sprintf("Theme %q updated.", name), res))
}

func (b *Bot) handleRemoveKeywordsFromTheme(ctx context.Context, chatID int64, args string) {
	name, words, err := ParseThemeWithWords(args)
	if err != nil || len(words) == 0 {
		b.reply(chatID, "Usage: /removeKeywordsFromTheme <name>-<word>-<word>")
		return
	}

	res, err := b.registry.RemoveKeywords(ctx, name, words)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("Theme %q not found.", name))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatKeywordResult(fmt.Sprintf("Theme %q updated.", name), res))
}

func (b *Bot) handleRemoveThemes(ctx context.Context, chatID int64, args string) {
	names, err := ParseDashList(args)
	if err != nil {
		b.reply(chatID, "Usage: /removeThemes <name>-<name>")
		return
	}

	res, err := b.registry.Remove(ctx, names)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatBatchResult("removed", "", res))
}

func (b *Bot) handleFollowThemes(ctx context.Context, chatID int64, args string) {
	names, err := ParseDashList(args)
	if err != nil {
		b.reply(chatID, "Usage: /followThemes <name>-<name>")
		return
	}

	res, err := b.registry.Follow(ctx, names)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatBatchResult("followed", "already followed", res))
}

func (b *Bot) handleUnfollowThemes(ctx context.Context, chatID int64, args string) {
	names, err := ParseDashList(args)
	if err != nil {
		b.reply(chatID, "Usage: /unfollowThemes <name>-<name>")
		return
	}

	res, err := b.registry.Unfollow(ctx, names)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatBatchResult("unfollowed", "already unfollowed", res))
}

func (b *Bot) handleChangeInterval(ctx context.Context, chatID int64, args string) {
	name, seconds, err := ParseChangeInterval(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if err := b.registry.ChangeInterval(ctx, name, seconds); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("Theme %q not found.", name))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Theme %q interval set to %d seconds.", name, seconds))
}
