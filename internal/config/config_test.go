package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  env: prod\n"))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, ":9980", cfg.App.HTTPAddr)
	assert.Equal(t, "data/heylon.db", cfg.App.DBPath)

	assert.Equal(t, "14:30", cfg.Trading.SessionStart)
	assert.Equal(t, "22:00", cfg.Trading.SessionEnd)
	assert.Equal(t, "Africa/Lagos", cfg.Trading.Timezone)
	assert.False(t, cfg.Trading.SessionFilter)
	assert.True(t, cfg.Trading.MicroMSS)
	assert.False(t, cfg.Trading.StructuralMSS)

	assert.Equal(t, "MICRO", cfg.Engine.MSSMode)
	assert.Equal(t, "ADVISORY", cfg.Engine.TapActionPolicy)
	assert.True(t, cfg.Context.AppTickEnabled)
	assert.Equal(t, []string{"TRUMP", "TARIFF", "CHINA", "TRADE"}, cfg.Context.PoliticalRiskKeywords)
	assert.Equal(t, 45, cfg.Jury.TimeoutSeconds)
	assert.Equal(t, 16, cfg.Jury.QueueSize)
	assert.Equal(t, "NQ", cfg.Watchlist.ActiveSymbol)
}

func TestLoadOverridesDefaults(t *testing.T) {
	body := `
trading:
  session_start: "08:00"
  session_end: "16:30"
  timezone: "Europe/London"
  session_filter: true
  structural_mss: true
jury:
  timeout_seconds: 20
  jurors:
    - id: openai
      enabled: true
      api_key: sk-test
    - id: gemini
      enabled: false
watchlist:
  symbols: [NQ, ES, GC]
  active_symbol: GC
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "08:00", cfg.Trading.SessionStart)
	assert.Equal(t, "Europe/London", cfg.Trading.Timezone)
	assert.True(t, cfg.Trading.SessionFilter)
	assert.True(t, cfg.Trading.StructuralMSS)
	assert.Equal(t, 20, cfg.Jury.TimeoutSeconds)
	require.Len(t, cfg.Jury.Jurors, 2)
	assert.Equal(t, "GC", cfg.Watchlist.ActiveSymbol)

	openai, ok := cfg.Jury.JurorByID("OpenAI")
	require.True(t, ok)
	assert.Equal(t, "sk-test", openai.APIKey)
	_, ok = cfg.Jury.JurorByID("perplexity")
	assert.False(t, ok)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad session clock": "trading:\n  session_start: \"25:00\"\n",
		"bad timezone":      "trading:\n  timezone: \"Mars/Olympus\"\n",
		"bad mss mode":      "engine:\n  mss_mode: \"YOLO\"\n",
		"bad threshold":     "zoning:\n  viability_threshold: \"EXTREME\"\n",
		"negative cooldown": "risk:\n  cooldown_minutes: -5\n",
		"zero jury timeout": "jury:\n  timeout_seconds: 0\n",
		"duplicate juror":   "jury:\n  jurors:\n    - id: openai\n    - id: OPENAI\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("14:30")
	require.NoError(t, err)
	assert.Equal(t, 14*60+30, got)

	got, err = ParseClock(" 00:00 ")
	require.NoError(t, err)
	assert.Zero(t, got)

	for _, bad := range []string{"", "1430", "24:00", "12:60", "ab:cd", "12:3:4"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestForceWaitActive(t *testing.T) {
	assert.False(t, (&Config{}).ForceWaitActive())
	assert.True(t, (&Config{Trading: TradingConfig{ForceWait: true}}).ForceWaitActive())
	assert.True(t, (&Config{Safety: SafetyConfig{ForceWaitKillswitch: true}}).ForceWaitActive())

	var nilCfg *Config
	assert.False(t, nilCfg.ForceWaitActive())
}

func TestManagerReplace(t *testing.T) {
	m := NewStaticManager(&Config{App: AppConfig{Env: "dev"}})
	assert.Equal(t, "dev", m.Current().App.Env)

	m.Replace(&Config{App: AppConfig{Env: "prod"}})
	assert.Equal(t, "prod", m.Current().App.Env)
}
