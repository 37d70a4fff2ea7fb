package jury

import (
	"strings"
	"time"

	"heylon/internal/config"
)

// BuildPanel constructs the juror roster from config, preserving config
// order. The gemini seat speaks the generateContent dialect; every other seat
// is chat-completions compatible.
func BuildPanel(cfg config.JuryConfig) []Juror {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	panel := make([]Juror, 0, len(cfg.Jurors))
	for _, jc := range cfg.Jurors {
		id := strings.ToLower(strings.TrimSpace(jc.ID))
		if id == "" {
			continue
		}
		if id == "gemini" {
			panel = append(panel, NewGeminiJuror(id, jc, timeout))
			continue
		}
		panel = append(panel, NewChatJuror(id, jc, timeout))
	}
	return panel
}
