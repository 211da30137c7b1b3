package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/dedent"
)

// telegramMaxText is the maximum length of a Telegram text message.
const telegramMaxText = 4096

// telegramMaxCaption is the maximum length of a photo caption.
const telegramMaxCaption = 1024

func formatReplyText(text string, a ...any) string {
	text = strings.TrimSpace(dedent.Dedent(text))
	if len(a) == 0 {
		return text
	}
	return fmt.Sprintf(text, a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	// Commands in groups arrive as /cmd@botname
	command, _, _ := strings.Cut(parts[0], "@")
	return command, parts[1:]
}

// commandArgs returns everything after the command, preserving inner spacing.
func commandArgs(s string) string {
	s = strings.TrimSpace(s)
	_, rest, found := strings.Cut(s, " ")
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

// escapeMarkdown escapes special characters for Telegram Markdown V1
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "*", "\\*")
	text = strings.ReplaceAll(text, "_", "\\_")
	text = strings.ReplaceAll(text, "`", "\\`")
	text = strings.ReplaceAll(text, "[", "\\[")
	return text
}

// truncate shortens s to at most max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

// formatBytes renders a byte count the way a file picker would.
func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.0f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
