package model

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultIntervalMinutes is used when no valid interval is configured.
const DefaultIntervalMinutes = 60

// ErrInvalidInterval is returned for intervals outside the preset list.
var ErrInvalidInterval = errors.New("invalid interval")

// IntervalPreset is a user-facing interval name and its length in minutes.
type IntervalPreset struct {
	Name    string
	Minutes int
}

// IntervalPresets lists the only legal update intervals, shortest first.
var IntervalPresets = []IntervalPreset{
	{"15m", 15},
	{"30m", 30},
	{"1h", 60},
	{"2h", 120},
	{"4h", 240},
}

// ParseInterval maps a preset name such as "1h" to minutes.
func ParseInterval(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range IntervalPresets {
		if p.Name == name {
			return p.Minutes, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, name)
}

// ValidInterval reports whether minutes is one of the presets.
func ValidInterval(minutes int) bool {
	for _, p := range IntervalPresets {
		if p.Minutes == minutes {
			return true
		}
	}
	return false
}

// IntervalName returns the preset name for minutes, or "" if none matches.
func IntervalName(minutes int) string {
	for _, p := range IntervalPresets {
		if p.Minutes == minutes {
			return p.Name
		}
	}
	return ""
}

// ScheduleConfig is the persisted scheduler state.
type ScheduleConfig struct {
	ChannelID       *int64   `json:"channel_id"`
	Stocks          []string `json:"stocks"`
	IntervalMinutes int      `json:"interval_minutes"`
}

// DefaultScheduleConfig is what a missing or unreadable store yields.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{Stocks: []string{}, IntervalMinutes: DefaultIntervalMinutes}
}

// HasChannel reports whether a target channel is set.
func (c ScheduleConfig) HasChannel() bool {
	return c.ChannelID != nil && *c.ChannelID != 0
}

// Watching reports whether symbol (already uppercased) is in the watch-list.
func (c ScheduleConfig) Watching(symbol string) bool {
	for _, s := range c.Stocks {
		if s == symbol {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can edit without aliasing.
func (c ScheduleConfig) Clone() ScheduleConfig {
	out := c
	if c.ChannelID != nil {
		id := *c.ChannelID
		out.ChannelID = &id
	}
	out.Stocks = append([]string{}, c.Stocks...)
	return out
}

// NormalizeSymbol is the canonical form of a ticker.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
