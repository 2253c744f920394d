package policy

import (
	"fmt"
	"strings"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// FormatLeadTime renders a lead time in minutes for display.
//
//	45   -> "45 minutos"
//	60   -> "1 hora"
//	90   -> "1h 30m"
//	1440 -> "1 día"
//	1530 -> "1 día 1h 30m"
//
// Sub-day remainders are kept so two different configurations never render
// the same text.
func FormatLeadTime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < minutesPerHour {
		return plural(minutes, "minuto", "minutos")
	}
	if minutes < minutesPerDay {
		return formatHours(minutes)
	}

	days := minutes / minutesPerDay
	out := plural(days, "día", "días")
	if rem := minutes % minutesPerDay; rem > 0 {
		out += " " + compact(rem)
	}
	return out
}

func formatHours(minutes int) string {
	if minutes%minutesPerHour == 0 {
		return plural(minutes/minutesPerHour, "hora", "horas")
	}
	return compact(minutes)
}

// compact renders minutes below one day as "Xh Ym", omitting zero parts.
func compact(minutes int) string {
	h, m := minutes/minutesPerHour, minutes%minutesPerHour
	parts := make([]string, 0, 2)
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	return strings.Join(parts, " ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
