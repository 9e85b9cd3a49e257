package tui

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/reportview/reportview/pkg/client"
)

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// formatSize renders a byte count the way file managers do.
func formatSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

// errorText renders err prefixed with its kind, e.g. "network: dial tcp ...".
func errorText(err error) string {
	if err == nil {
		return ""
	}
	if kind := client.Kind(err); kind != "" {
		return kind + ": " + rootMessage(err)
	}
	return err.Error()
}

// rootMessage drops the wrapping context and keeps the innermost message,
// which is what a user can act on.
func rootMessage(err error) string {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	return err.Error()
}
