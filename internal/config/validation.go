package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Zoning.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Jury.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if _, err := ParseClock(t.SessionStart); err != nil {
		return fmt.Errorf("trading.session_start: %w", err)
	}
	if _, err := ParseClock(t.SessionEnd); err != nil {
		return fmt.Errorf("trading.session_end: %w", err)
	}
	if strings.TrimSpace(t.Timezone) == "" {
		return fmt.Errorf("trading.timezone cannot be empty")
	}
	if _, err := time.LoadLocation(t.Timezone); err != nil {
		return fmt.Errorf("trading.timezone invalid: %w", err)
	}
	return nil
}

func (e *EngineConfig) validate() error {
	switch strings.ToUpper(e.MSSMode) {
	case "MICRO", "STRUCTURAL":
	default:
		return fmt.Errorf("engine.mss_mode must be MICRO or STRUCTURAL, got %q", e.MSSMode)
	}
	switch strings.ToUpper(e.TapActionPolicy) {
	case "ADVISORY", "ACTIONABLE":
	default:
		return fmt.Errorf("engine.tap_action_policy must be ADVISORY or ACTIONABLE, got %q", e.TapActionPolicy)
	}
	return nil
}

func (z *ZoningConfig) validate() error {
	switch strings.ToUpper(z.ViabilityThreshold) {
	case "CONSERVATIVE", "BALANCED", "AGGRESSIVE":
	default:
		return fmt.Errorf("zoning.viability_threshold must be CONSERVATIVE, BALANCED or AGGRESSIVE, got %q", z.ViabilityThreshold)
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.MaxConfirmSignals < 0 {
		return fmt.Errorf("risk.max_confirm_signals must be >= 0")
	}
	if r.CooldownMinutes < 0 {
		return fmt.Errorf("risk.cooldown_minutes must be >= 0")
	}
	if r.ConsecutiveWaitLock < 0 {
		return fmt.Errorf("risk.consecutive_wait_lock must be >= 0")
	}
	return nil
}

func (j *JuryConfig) validate() error {
	if j.TimeoutSeconds <= 0 {
		return fmt.Errorf("jury.timeout_seconds must be > 0")
	}
	if j.QueueSize <= 0 {
		return fmt.Errorf("jury.queue_size must be > 0")
	}
	seen := make(map[string]bool, len(j.Jurors))
	for _, entry := range j.Jurors {
		id := strings.ToLower(strings.TrimSpace(entry.ID))
		if id == "" {
			return fmt.Errorf("jury.jurors contains entry without id")
		}
		if seen[id] {
			return fmt.Errorf("jury.jurors contains duplicate id: %s", id)
		}
		seen[id] = true
	}
	return nil
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
