package models

import (
	"strings"
	"time"
)

// Granularity is the sampling interval of a bar series.
type Granularity string

const (
	OneMinute      Granularity = "1m"
	FiveMinutes    Granularity = "5m"
	FifteenMinutes Granularity = "15m"
	ThirtyMinutes  Granularity = "30m"
	OneHour        Granularity = "1h"
	OneDay         Granularity = "1d"
	OneWeek        Granularity = "1wk"
	OneMonth       Granularity = "1mo"
)

var granularityNames = map[Granularity]string{
	OneMinute:      "ONE_MINUTE",
	FiveMinutes:    "FIVE_MINUTES",
	FifteenMinutes: "FIFTEEN_MINUTES",
	ThirtyMinutes:  "THIRTY_MINUTES",
	OneHour:        "ONE_HOUR",
	OneDay:         "ONE_DAY",
	OneWeek:        "ONE_WEEK",
	OneMonth:       "ONE_MONTH",
}

// Granularities lists every supported interval, finest first.
func Granularities() []Granularity {
	return []Granularity{OneMinute, FiveMinutes, FifteenMinutes, ThirtyMinutes, OneHour, OneDay, OneWeek, OneMonth}
}

// DefaultGranularity returns the default sampling interval.
func DefaultGranularity() Granularity { return OneDay }

// ParseGranularity accepts the enum name (ONE_DAY) or the short code (1d), case-insensitively.
// An empty string yields the default.
func ParseGranularity(s string) (Granularity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultGranularity(), nil
	}
	for g, name := range granularityNames {
		if strings.EqualFold(s, name) || strings.EqualFold(s, string(g)) {
			return g, nil
		}
	}
	return "", Errorf(ErrInvalidGranularity, "unsupported granularity %q", s)
}

// Name returns the enum-style name, e.g. ONE_DAY.
func (g Granularity) Name() string { return granularityNames[g] }

func (g Granularity) String() string { return string(g) }

// MarshalText serializes the enum name so JSON responses read ONE_DAY rather than 1d.
func (g Granularity) MarshalText() ([]byte, error) { return []byte(g.Name()), nil }

func (g *Granularity) UnmarshalText(b []byte) error {
	parsed, err := ParseGranularity(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Duration is the nominal bar length. Months are approximated as 30 days.
func (g Granularity) Duration() time.Duration {
	switch g {
	case OneMinute:
		return time.Minute
	case FiveMinutes:
		return 5 * time.Minute
	case FifteenMinutes:
		return 15 * time.Minute
	case ThirtyMinutes:
		return 30 * time.Minute
	case OneHour:
		return time.Hour
	case OneDay:
		return 24 * time.Hour
	case OneWeek:
		return 7 * 24 * time.Hour
	case OneMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Intraday reports whether bars are finer than one day.
func (g Granularity) Intraday() bool {
	return g.Duration() > 0 && g.Duration() < 24*time.Hour
}

// BarsPerYear returns the approximate number of US equity bars per year, used to annualize volatility.
func (g Granularity) BarsPerYear() float64 {
	const tradingDays = 252
	const sessionMinutes = 390
	switch g {
	case OneMinute:
		return tradingDays * sessionMinutes
	case FiveMinutes:
		return tradingDays * sessionMinutes / 5
	case FifteenMinutes:
		return tradingDays * sessionMinutes / 15
	case ThirtyMinutes:
		return tradingDays * sessionMinutes / 30
	case OneHour:
		return tradingDays * 6.5
	case OneWeek:
		return 52
	case OneMonth:
		return 12
	default:
		return tradingDays
	}
}
