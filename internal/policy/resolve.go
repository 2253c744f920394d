package policy

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// FallbackReason explains why a resolved window used its default.
type FallbackReason string

const (
	FallbackNone         FallbackReason = ""
	FallbackUnavailable  FallbackReason = "config_unavailable"
	FallbackInvalidValue FallbackReason = "invalid_value"
)

// ParseLeadMinutes converts a stored lead time to whole minutes.
// Numbers and numeric text are accepted; fractional values are truncated.
func ParseLeadMinutes(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, v >= 0
	case int64:
		return int(v), v >= 0
	case float64:
		if math.IsNaN(v) || v < 0 || v > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case json.Number:
		return ParseLeadMinutes(v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, n >= 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return ParseLeadMinutes(f)
	}
	return 0, false
}

// Resolve turns an optional configuration row into a window. It never fails:
// a fetch error or missing row enforces the default, and an unreadable value
// keeps the row's active flag with the default minutes.
func Resolve(entry *domain.ConfigEntry, fetchErr error, defaultMinutes int) (domain.TimeWindowConfig, FallbackReason) {
	if fetchErr != nil || entry == nil {
		return domain.TimeWindowConfig{
			Minutes:  defaultMinutes,
			Active:   true,
			Degraded: true,
			Source:   domain.SourceDefault,
		}, FallbackUnavailable
	}

	minutes, ok := ParseLeadMinutes(entry.Value)
	if !ok {
		return domain.TimeWindowConfig{
			Minutes:  defaultMinutes,
			Active:   entry.Active,
			Degraded: true,
			Source:   domain.SourceDefault,
		}, FallbackInvalidValue
	}

	return domain.TimeWindowConfig{
		Minutes: minutes,
		Active:  entry.Active,
		Source:  domain.SourceConfig,
	}, FallbackNone
}

// ResolveCancellation resolves the cancellation window (default 60 minutes).
func ResolveCancellation(entry *domain.ConfigEntry, fetchErr error) (domain.TimeWindowConfig, FallbackReason) {
	return Resolve(entry, fetchErr, DefaultCancellationMinutes)
}

// ResolveReservation resolves the minimum reservation notice (default 120 minutes).
func ResolveReservation(entry *domain.ConfigEntry, fetchErr error) (domain.TimeWindowConfig, FallbackReason) {
	return Resolve(entry, fetchErr, DefaultReservationMinutes)
}
