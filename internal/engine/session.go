package engine

import (
	"fmt"
	"time"

	"heylon/internal/config"
)

type sessionStatus struct {
	active bool
	reason string
}

// sessionActive reports whether now falls inside the configured trading
// window. The window is evaluated in the configured timezone and [start,end)
// half-open; start > end means the window wraps past midnight. Timezone or
// clock parse failures fail closed.
func sessionActive(now time.Time, cfg config.TradingConfig) sessionStatus {
	if !cfg.SessionFilter {
		return sessionStatus{active: true}
	}
	start := cfg.SessionStart
	if start == "" {
		start = "14:30"
	}
	end := cfg.SessionEnd
	if end == "" {
		end = "22:00"
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "Africa/Lagos"
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return sessionStatus{active: false, reason: "Timezone Error"}
	}
	startMins, err := config.ParseClock(start)
	if err != nil {
		return sessionStatus{active: false, reason: "Session Clock Error"}
	}
	endMins, err := config.ParseClock(end)
	if err != nil {
		return sessionStatus{active: false, reason: "Session Clock Error"}
	}

	local := now.In(loc)
	currentMins := local.Hour()*60 + local.Minute()

	if startMins <= endMins {
		if currentMins >= startMins && currentMins < endMins {
			return sessionStatus{active: true}
		}
	} else {
		// Overnight window, e.g. 22:00 to 02:00.
		if currentMins >= startMins || currentMins < endMins {
			return sessionStatus{active: true}
		}
	}
	return sessionStatus{
		active: false,
		reason: fmt.Sprintf("Time %02d:%02d outside %s-%s (%s)", local.Hour(), local.Minute(), start, end, tz),
	}
}
