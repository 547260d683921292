package keyword

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ignoreSymbols are stripped from text before tokenizing, matching the
// ASCII punctuation set.
const ignoreSymbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize lowercases a word and folds ё to its homoglyph е so both
// spellings match identically.
func Normalize(word string) string {
	return strings.ReplaceAll(strings.ToLower(word), "ё", "е")
}

// paradigm is a set of interchangeable endings: a word recognized by one
// of them inflects into all of them.
type paradigm struct {
	match   []string
	endings []string
}

// Ending tables for the common Russian declension and conjugation
// classes. Longer endings are listed first so they win recognition.
var paradigms = []paradigm{
	{
		match:   []string{"ие", "ия", "ий", "ию", "ии"},
		endings: []string{"ие", "ия", "ий", "ию", "ии", "ием", "иям", "иями", "иях"},
	},
	{
		match:   []string{"ость", "ости"},
		endings: []string{"ость", "ости", "остью", "остей", "остям", "остями", "остях"},
	},
	{
		match:   []string{"ый", "ого", "ому", "ыми"},
		endings: []string{"ый", "ого", "ому", "ым", "ом", "ая", "ой", "ую", "ое", "ые", "ых", "ыми"},
	},
	{
		match:   []string{"ать", "ять", "еть", "ить"},
		endings: []string{"ть", "ю", "ет", "ем", "ете", "ют", "л", "ла", "ло", "ли"},
	},
	{
		match:   []string{"а", "ы", "е", "у", "ой"},
		endings: []string{"а", "ы", "е", "у", "ой", "ам", "ами", "ах", ""},
	},
	{
		match:   []string{"я", "ю", "ей"},
		endings: []string{"я", "и", "е", "ю", "ей", "ям", "ями", "ях"},
	},
	{
		match:   []string{"о", "ом"},
		endings: []string{"о", "а", "у", "ом", "е"},
	},
	{
		match:   []string{"ь"},
		endings: []string{"ь", "и", "ью", "ей", "ям", "ями", "ях"},
	},
	{
		// Bare consonant stem: masculine nouns like "футбол".
		match:   []string{""},
		endings: []string{"", "а", "у", "ом", "е", "ы", "ов", "ам", "ами", "ах"},
	},
}

// Expand returns the normalized seed together with its inflected forms.
// Non-Cyrillic words get no inflections beyond the normalized seed.
func Expand(seed string) []string {
	norm := Normalize(strings.TrimSpace(seed))
	if norm == "" {
		return nil
	}

	seen := map[string]bool{norm: true}
	out := []string{norm}

	if !isCyrillic(norm) {
		return out
	}

	stem, p := splitStem(norm)
	if p == nil || utf8.RuneCountInString(stem) < 2 {
		return out
	}
	for _, end := range p.endings {
		v := stem + end
		if len([]rune(v)) < 3 || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// splitStem finds the longest recognized ending and returns the stem
// with the paradigm it belongs to. The verb paradigm keeps the vowel of
// the infinitive suffix in the stem.
func splitStem(word string) (string, *paradigm) {
	for i := range paradigms {
		p := &paradigms[i]
		for _, m := range p.match {
			if m == "" {
				return word, p
			}
			if strings.HasSuffix(word, m) {
				stem := strings.TrimSuffix(word, m)
				if isVerbParadigm(p) {
					// ать/ять/еть/ить: the conjugation endings attach
					// after the suffix vowel.
					stem = strings.TrimSuffix(word, "ть")
				}
				return stem, p
			}
		}
	}
	return word, nil
}

func isVerbParadigm(p *paradigm) bool {
	return len(p.match) > 0 && strings.HasSuffix(p.match[0], "ть")
}

func isCyrillic(word string) bool {
	for _, r := range word {
		if !unicode.Is(unicode.Cyrillic, r) {
			return false
		}
	}
	return word != ""
}

// Tokenize strips the ignore symbols from text and splits it into
// normalized whitespace-separated tokens.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(ignoreSymbols, r) {
			return -1
		}
		return r
	}, text)

	fields := strings.Fields(cleaned)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, Normalize(f))
	}
	return out
}
