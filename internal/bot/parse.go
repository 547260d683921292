package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDashList splits a dash-separated argument list, trimming blanks.
// This is the multi-value format of the theme and keyword commands.
func ParseDashList(args string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(strings.TrimSpace(args), "-") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one value is required")
	}
	return out, nil
}

// ParseThemeWithWords parses "<name>-<word>-<word>" into the theme name
// and its word list.
func ParseThemeWithWords(args string) (string, []string, error) {
	parts, err := ParseDashList(args)
	if err != nil {
		return "", nil, err
	}
	return parts[0], parts[1:], nil
}

// ParseEditArgs parses "<from>-<to>" for the keyword rename command.
func ParseEditArgs(args string) (string, string, error) {
	parts, err := ParseDashList(args)
	if err != nil || len(parts) != 2 {
		return "", "", fmt.Errorf("usage: /editKeyword <from>-<to>")
	}
	return parts[0], parts[1], nil
}

// ParseWord extracts a single non-numeric keyword argument.
func ParseWord(args string) (string, error) {
	w := strings.TrimSpace(args)
	if w == "" || len(strings.Fields(w)) != 1 {
		return "", fmt.Errorf("exactly one word is required")
	}
	if _, err := strconv.Atoi(w); err == nil {
		return "", fmt.Errorf("a keyword cannot be a number")
	}
	return w, nil
}

// ParseChatID extracts a numeric chat identifier.
func ParseChatID(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("chat ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID %q", s)
	}
	return id, nil
}

// ParseChangeInterval parses "<name> <seconds>" for the interval command.
func ParseChangeInterval(args string) (string, int, error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("usage: /changeIntervalTheme <name> <seconds>")
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil || seconds < 1 {
		return "", 0, fmt.Errorf("interval must be a positive number of seconds")
	}
	return parts[0], seconds, nil
}
