package jury

import (
	"context"
	"fmt"
	"strings"
	"time"

	"heylon/internal/config"
	"heylon/internal/logger"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// GeminiJuror talks to the Google generativelanguage generateContent API,
// whose request and response shapes differ from the chat completions form.
type GeminiJuror struct {
	id     string
	cfg    config.JurorConfig
	client *resty.Client
}

func NewGeminiJuror(id string, cfg config.JurorConfig, timeout time.Duration) *GeminiJuror {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &GeminiJuror{
		id:     id,
		cfg:    cfg,
		client: resty.New().SetTimeout(timeout),
	}
}

func (j *GeminiJuror) ID() string { return j.id }

func (j *GeminiJuror) Enabled() bool {
	return j.cfg.Enabled && strings.TrimSpace(j.cfg.APIKey) != ""
}

func (j *GeminiJuror) Vote(ctx context.Context, b Ballot) (Vote, error) {
	url := j.generateContentURL()
	body := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]string{
					{"text": systemPreamble + "\n\n" + b.Prompt()},
				},
			},
		},
		"generationConfig": map[string]any{
			"responseMimeType": "application/json",
		},
	}
	logger.Debugf("[jury:%s] POST %s model=%s key=%s", j.id, strings.Split(url, "?")[0], j.cfg.Model, maskKey(j.cfg.APIKey))
	resp, err := j.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		return VoteWait, err
	}
	if resp.StatusCode()/100 != 2 {
		msg := gjson.GetBytes(resp.Body(), "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return VoteWait, fmt.Errorf("status=%d: %s", resp.StatusCode(), msg)
	}
	content := gjson.GetBytes(resp.Body(), "candidates.0.content.parts.0.text").String()
	return parseVerdict(content)
}

func (j *GeminiJuror) generateContentURL() string {
	base := strings.TrimRight(strings.TrimSpace(j.cfg.APIURL), "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := j.cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, model, j.cfg.APIKey)
}
