package engine

import (
	"testing"
	"time"

	"heylon/internal/config"

	"github.com/stretchr/testify/assert"
)

func clockUTC(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestSessionActiveNormalWindow(t *testing.T) {
	cfg := config.TradingConfig{
		SessionFilter: true,
		SessionStart:  "09:00",
		SessionEnd:    "17:00",
		Timezone:      "UTC",
	}
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{8, 59, false},
		{9, 0, true},
		{12, 30, true},
		{16, 59, true},
		{17, 0, false}, // end is exclusive
		{23, 0, false},
	}
	for _, tc := range cases {
		got := sessionActive(clockUTC(tc.hour, tc.minute), cfg)
		assert.Equal(t, tc.want, got.active, "%02d:%02d", tc.hour, tc.minute)
	}
}

func TestSessionActiveOvernightWindow(t *testing.T) {
	cfg := config.TradingConfig{
		SessionFilter: true,
		SessionStart:  "22:00",
		SessionEnd:    "02:00",
		Timezone:      "UTC",
	}
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{21, 59, false},
		{22, 0, true},
		{23, 30, true},
		{0, 0, true},
		{1, 59, true},
		{2, 0, false},
		{12, 0, false},
	}
	for _, tc := range cases {
		got := sessionActive(clockUTC(tc.hour, tc.minute), cfg)
		assert.Equal(t, tc.want, got.active, "%02d:%02d", tc.hour, tc.minute)
	}
}

func TestSessionFilterDisabledAlwaysActive(t *testing.T) {
	cfg := config.TradingConfig{
		SessionFilter: false,
		SessionStart:  "09:00",
		SessionEnd:    "09:01",
		Timezone:      "UTC",
	}
	got := sessionActive(clockUTC(3, 0), cfg)
	assert.True(t, got.active)
}

func TestSessionTimezoneConversion(t *testing.T) {
	// 13:30 UTC is 14:30 in Africa/Lagos (UTC+1, no DST).
	cfg := config.TradingConfig{
		SessionFilter: true,
		SessionStart:  "14:30",
		SessionEnd:    "22:00",
		Timezone:      "Africa/Lagos",
	}
	assert.True(t, sessionActive(clockUTC(13, 30), cfg).active)
	assert.False(t, sessionActive(clockUTC(13, 29), cfg).active)
}

func TestSessionBadTimezoneFailsClosed(t *testing.T) {
	cfg := config.TradingConfig{
		SessionFilter: true,
		SessionStart:  "00:00",
		SessionEnd:    "23:59",
		Timezone:      "Mars/Olympus",
	}
	got := sessionActive(clockUTC(12, 0), cfg)
	assert.False(t, got.active)
	assert.Equal(t, "Timezone Error", got.reason)
}
