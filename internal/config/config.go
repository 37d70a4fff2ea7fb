package config

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the YAML config at path, fills defaults for unset keys and
// validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	v := newViper()
	v.SetConfigFile(abs)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", abs, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	applyDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_addr", ":9980")
	v.SetDefault("app.db_path", "data/heylon.db")

	v.SetDefault("trading.session_preset", "NY_AM")
	v.SetDefault("trading.session_start", "14:30")
	v.SetDefault("trading.session_end", "22:00")
	v.SetDefault("trading.timezone", "Africa/Lagos")
	v.SetDefault("trading.session_filter", false)
	v.SetDefault("trading.micro_mss", true)
	v.SetDefault("trading.structural_mss", false)
	v.SetDefault("trading.force_wait", false)

	v.SetDefault("engine.mss_mode", "MICRO")
	v.SetDefault("engine.tap_action_policy", "ADVISORY")

	v.SetDefault("zoning.viability_threshold", "BALANCED")
	v.SetDefault("zoning.untapped_zone_policy", "IGNORE_AFTER_1")

	v.SetDefault("risk.max_confirm_signals", 0)
	v.SetDefault("risk.cooldown_minutes", 0)
	v.SetDefault("risk.consecutive_wait_lock", 0)

	v.SetDefault("data.context_refresh", "TIMED")
	v.SetDefault("data.news_sensitivity", "BALANCED")

	v.SetDefault("safety.force_wait_killswitch", false)
	v.SetDefault("safety.auto_recover", true)

	v.SetDefault("context.apptick_enabled", true)
	v.SetDefault("context.political_risk_keywords", []string{"TRUMP", "TARIFF", "CHINA", "TRADE"})

	v.SetDefault("jury.timeout_seconds", 45)
	v.SetDefault("jury.queue_size", 16)

	v.SetDefault("watchlist.symbols", []string{"NQ", "ES"})
	v.SetDefault("watchlist.active_symbol", "NQ")
}
