package report

import (
	"fmt"
	"time"
)

// FormatDuration renders an elapsed duration compactly: "2h 14m",
// "45m", or "12s".
func FormatDuration(d time.Duration) string {
	seconds := int64(d.Seconds())
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatBytes renders a byte count with one decimal place in the
// largest unit under 1024, up to PB.
func FormatBytes(n int64) string {
	v := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if v < 1024.0 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", v)
}

// FormatDate renders a date as YYYY-MM-DD in the given timezone.
func FormatDate(t time.Time, tz *time.Location) string {
	return t.In(tz).Format("2006-01-02")
}

// FormatDateTime renders a full timestamp with its zone abbreviation.
func FormatDateTime(t time.Time, tz *time.Location) string {
	return t.In(tz).Format("2006-01-02 15:04:05 MST")
}

// FormatDateTimeFriendly renders a timestamp relative to now:
// "Just now", "3 hours ago", "Yesterday", then a full date once the
// value is a week old. The zero time renders as "Never".
func FormatDateTimeFriendly(t time.Time, tz *time.Location, now time.Time) string {
	if t.IsZero() {
		return "Never"
	}

	local := t.In(tz)
	delta := now.In(tz).Sub(local)
	if delta < 0 {
		delta = 0
	}
	days := int(delta.Hours()) / 24

	if days == 0 {
		hours := int(delta.Hours())
		minutes := int(delta.Minutes()) % 60
		switch {
		case hours == 0 && minutes == 0:
			return "Just now"
		case hours == 0 && minutes == 1:
			return "1 minute ago"
		case hours == 0:
			return fmt.Sprintf("%d minutes ago", minutes)
		case hours == 1:
			return "1 hour ago"
		default:
			return fmt.Sprintf("%d hours ago", hours)
		}
	}
	if days == 1 {
		return "Yesterday"
	}
	if days < 7 {
		return fmt.Sprintf("%d days ago", days)
	}
	return local.Format("January 02, 2006 at 03:04 PM")
}

// FormatDateTimeAbsolute renders a timestamp as "1:24PM Oct 4th 2025
// EDT". The zero time renders as "N/A".
func FormatDateTimeAbsolute(t time.Time, tz *time.Location) string {
	if t.IsZero() {
		return "N/A"
	}
	local := t.In(tz)
	day := local.Day()
	return fmt.Sprintf("%s %s %d%s %d %s",
		local.Format("3:04PM"),
		local.Format("Jan"),
		day, ordinalSuffix(day),
		local.Year(),
		local.Format("MST"))
}

func ordinalSuffix(day int) string {
	if day%100 >= 10 && day%100 <= 20 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
