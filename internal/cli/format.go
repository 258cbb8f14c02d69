package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return text.FgGreen.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return text.FgYellow.Sprintf("⚠ %s", msg)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// FormatExpiry renders expiresAt relative to now as "in X" or
// "expired X ago".
func FormatExpiry(expiresAt, now time.Time) string {
	remaining := expiresAt.Sub(now)
	if remaining > 0 {
		return "in " + FormatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", FormatDuration(-remaining))
}
