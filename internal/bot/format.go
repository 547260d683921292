package bot

import (
	"fmt"
	"strings"

	"theme_bot/internal/model"
	"theme_bot/internal/theme"
)

// FormatVariants formats the variant set created from one seed word.
func FormatVariants(variants []string) string {
	return fmt.Sprintf("Added %d word(s):\n%s", len(variants), strings.Join(variants, "-"))
}

// FormatRemovedKeywords reports which words were removed and which were
// unknown.
func FormatRemovedKeywords(removed, missing []string) string {
	var b strings.Builder
	if len(removed) > 0 {
		fmt.Fprintf(&b, "Removed: %s\n", strings.Join(removed, ", "))
	}
	if len(missing) > 0 {
		fmt.Fprintf(&b, "Not in the vocabulary: %s\n", strings.Join(missing, ", "))
	}
	if b.Len() == 0 {
		return "Nothing to remove."
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatKeywordList formats the full vocabulary.
func FormatKeywordList(kws []model.Keyword) string {
	if len(kws) == 0 {
		return "The vocabulary is empty. Use /addKeyword <word> to add one."
	}
	words := make([]string, len(kws))
	for i, k := range kws {
		words[i] = k.Word
	}
	return fmt.Sprintf("%d keyword(s):\n%s", len(kws), strings.Join(words, "-"))
}

// FormatChatList formats the listened chats.
func FormatChatList(chats []model.ListeningChat) string {
	if len(chats) == 0 {
		return "No chats are listened to. Use /addChat <id> to add one."
	}
	var b strings.Builder
	b.WriteString("Listening chats:\n")
	for _, c := range chats {
		fmt.Fprintf(&b, "%d\n", c.ChatID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatThemeList formats all themes with follow status and keywords.
func FormatThemeList(themes []model.Theme) string {
	if len(themes) == 0 {
		return "No themes yet. Use /addTheme <name>-<word>-<word> to create one."
	}
	var b strings.Builder
	for _, t := range themes {
		status := "❌"
		if t.IsFollowing {
			status = "✅"
		}
		words := make([]string, len(t.Keywords))
		for i, k := range t.Keywords {
			words[i] = k.Word
		}
		fmt.Fprintf(&b, "%s %s (every %d s) |%s|\n", status, t.Name, t.IntervalSeconds, strings.Join(words, "-"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatBatchResult reports the three outcome buckets of a batch theme
// operation.
func FormatBatchResult(done, already string, res theme.BatchResult) string {
	var b strings.Builder
	if len(res.Done) > 0 {
		fmt.Fprintf(&b, "%s: %s\n", capitalize(done), strings.Join(res.Done, ", "))
	}
	if len(res.Already) > 0 && already != "" {
		fmt.Fprintf(&b, "%s: %s\n", capitalize(already), strings.Join(res.Already, ", "))
	}
	if len(res.NotFound) > 0 {
		fmt.Fprintf(&b, "Not found: %s\n", strings.Join(res.NotFound, ", "))
	}
	if b.Len() == 0 {
		return "Nothing to do."
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatKeywordResult reports attached words and unknown words of a
// theme keyword operation.
func FormatKeywordResult(header string, res theme.KeywordResult) string {
	var b strings.Builder
	b.WriteString(header)
	if len(res.Done) > 0 {
		fmt.Fprintf(&b, "\nKeywords: %s", strings.Join(res.Done, ", "))
	}
	if len(res.Unknown) > 0 {
		fmt.Fprintf(&b, "\nNot in the vocabulary (skipped): %s", strings.Join(res.Unknown, ", "))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
