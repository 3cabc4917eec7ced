// Package output provides terminal output utilities for perchup.
//
// This package includes:
//   - Table rendering for backups and history events
//   - Progress bars for multi-step operations
//   - Spinners for indeterminate operations (builds, network calls)
//   - Human-readable formatting for sizes and timestamps
//
// All table rendering uses ASCII plus ANSI color codes. Progress
// indicators are thread-safe.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/perchlabs/perchup/internal/store"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// BackupInfo is the display form of one on-disk backup.
type BackupInfo struct {
	Name      string
	CreatedAt time.Time
	SizeBytes int64
	Verified  bool
}

// RenderBackupTable renders the backup listing, newest first.
func RenderBackupTable(backups []BackupInfo) string {
	if len(backups) == 0 {
		return "No backups found.\n"
	}

	sorted := make([]BackupInfo, len(backups))
	copy(sorted, backups)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-32s %-15s %-9s %s\n",
		"Backup", "Created", "Size", "Integrity"))
	sb.WriteString(strings.Repeat("─", 70))
	sb.WriteString("\n")

	for _, b := range sorted {
		integrity := colorize(colorGreen, "✓ complete")
		if !b.Verified {
			integrity = colorize(colorYellow, "⚠ incomplete")
		}
		sb.WriteString(fmt.Sprintf("%-32s %-15s %-9s %s\n",
			truncate(b.Name, 32),
			formatRelativeTime(b.CreatedAt),
			formatSize(b.SizeBytes),
			integrity))
	}

	return sb.String()
}

// RenderEventTable renders the install/update/restore history, newest
// first.
func RenderEventTable(events []*store.Event) string {
	if len(events) == 0 {
		return "No history recorded.\n"
	}

	sorted := make([]*store.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-15s %-9s %-10s %-8s %s\n",
		"When", "Action", "Version", "Result", "Detail"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, e := range sorted {
		result := colorize(colorGreen, "✓ ok")
		if e.Outcome != store.OutcomeOK {
			result = colorize(colorRed, "✗ failed")
		}
		version := e.Version
		if version == "" {
			version = "-"
		}
		sb.WriteString(fmt.Sprintf("%-15s %-9s %-10s %-8s %s\n",
			formatRelativeTime(e.CreatedAt),
			e.Kind,
			truncate(version, 10),
			result,
			truncate(e.Detail, 30)))
	}

	return sb.String()
}

// formatSize converts bytes to human-readable size (GB, MB, KB).
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.0f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatSize is the exported form used by commands when printing sizes
// outside a table.
func FormatSize(bytes int64) string {
	return formatSize(bytes)
}

// FormatRelativeTime is the exported form used by commands when
// printing ages outside a table.
func FormatRelativeTime(t time.Time) string {
	return formatRelativeTime(t)
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case diff < 365*24*time.Hour:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := int(diff.Hours() / 24 / 365)
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
