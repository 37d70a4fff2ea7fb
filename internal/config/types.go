package config

import "strings"

// Config is the full Heylon configuration. It is a read-only input to the
// engine; nothing in the pipeline ever writes it back.
type Config struct {
	App       AppConfig       `toml:"app"`
	Trading   TradingConfig   `toml:"trading"`
	Engine    EngineConfig    `toml:"engine"`
	Zoning    ZoningConfig    `toml:"zoning"`
	Risk      RiskConfig      `toml:"risk"`
	Symbol    SymbolConfig    `toml:"symbol"`
	Data      DataConfig      `toml:"data"`
	Safety    SafetyConfig    `toml:"safety"`
	Context   ContextConfig   `toml:"context"`
	Jury      JuryConfig      `toml:"jury"`
	Notify    NotifyConfig    `toml:"notify"`
	Feeds     FeedsConfig     `toml:"feeds"`
	Watchlist WatchlistConfig `toml:"watchlist"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	DBPath   string `toml:"db_path"`
	LogPath  string `toml:"log_path"`
}

// TradingConfig carries the session window and the MSS toggles.
type TradingConfig struct {
	SessionPreset string `toml:"session_preset"` // "LONDON" | "NY_AM" | "NY_PM" | "CUSTOM"
	SessionStart  string `toml:"session_start"`  // "HH:MM"
	SessionEnd    string `toml:"session_end"`    // "HH:MM", may wrap past midnight
	Timezone      string `toml:"timezone"`       // IANA name, e.g. "Africa/Lagos"
	SessionFilter bool   `toml:"session_filter"`
	MicroMSS      bool   `toml:"micro_mss"`
	StructuralMSS bool   `toml:"structural_mss"`
	ForceWait     bool   `toml:"force_wait"`
}

type EngineConfig struct {
	MSSMode         string `toml:"mss_mode"`          // "MICRO" | "STRUCTURAL"
	TapActionPolicy string `toml:"tap_action_policy"` // "ADVISORY" | "ACTIONABLE"
}

// ZoningConfig is accepted and validated but has no engine behavior yet; the
// viability threshold presets and untapped-zone policy are reserved knobs.
type ZoningConfig struct {
	ViabilityThreshold string `toml:"viability_threshold"` // "CONSERVATIVE" | "BALANCED" | "AGGRESSIVE"
	UntappedZonePolicy string `toml:"untapped_zone_policy"`
}

// RiskConfig discipline settings. max_confirm_signals=0 means unlimited.
// consecutive_wait_lock is defined but not yet consumed by the engine.
type RiskConfig struct {
	MaxConfirmSignals   int `toml:"max_confirm_signals"`
	CooldownMinutes     int `toml:"cooldown_minutes"`
	ConsecutiveWaitLock int `toml:"consecutive_wait_lock"`
}

type SymbolConfig struct {
	AutoSwitch    bool `toml:"auto_switch"`
	LockActive    bool `toml:"lock_active"`
	ResetOnSwitch bool `toml:"reset_on_switch"`
}

type DataConfig struct {
	ContextRefresh  string `toml:"context_refresh"`  // "REALTIME" | "HYBRID" | "TIMED"
	NewsSensitivity string `toml:"news_sensitivity"` // "STRICT" | "BALANCED" | "LENIENT"
}

type SafetyConfig struct {
	ForceWaitKillswitch bool `toml:"force_wait_killswitch"`
	AutoRecover         bool `toml:"auto_recover"`
}

type ContextConfig struct {
	AppTickEnabled        bool     `toml:"apptick_enabled"`
	PoliticalRiskKeywords []string `toml:"political_risk_keywords"`
}

type JuryConfig struct {
	TimeoutSeconds int           `toml:"timeout_seconds"`
	QueueSize      int           `toml:"queue_size"`
	Jurors         []JurorConfig `toml:"jurors"`
}

type JurorConfig struct {
	ID      string `toml:"id"` // "openai" | "gemini" | "perplexity"
	Enabled bool   `toml:"enabled"`
	APIURL  string `toml:"api_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
	Push     PushConfig     `toml:"push"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type PushConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

type FeedsConfig struct {
	NewsAPIKey string `toml:"news_api_key"`
	NewsQuery  string `toml:"news_query"`
	MacroURL   string `toml:"macro_url"`
	SocialURL  string `toml:"social_url"`
	QuoteURL   string `toml:"quote_url"`
}

type WatchlistConfig struct {
	Symbols      []string `toml:"symbols"`
	ActiveSymbol string   `toml:"active_symbol"`
}

// ForceWaitActive reports whether any force-wait switch is on. The safety
// killswitch dominates the trading toggle.
func (c *Config) ForceWaitActive() bool {
	if c == nil {
		return false
	}
	return c.Trading.ForceWait || c.Safety.ForceWaitKillswitch
}

// JurorByID returns the juror entry with the given id, matching case-insensitively.
func (j JuryConfig) JurorByID(id string) (JurorConfig, bool) {
	for _, entry := range j.Jurors {
		if strings.EqualFold(strings.TrimSpace(entry.ID), strings.TrimSpace(id)) {
			return entry, true
		}
	}
	return JurorConfig{}, false
}
