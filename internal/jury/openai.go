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

// ChatJuror talks to an OpenAI-compatible chat completions endpoint
// (/v1/chat/completions). Both the openai and perplexity seats use it.
type ChatJuror struct {
	id     string
	cfg    config.JurorConfig
	client *resty.Client
}

func NewChatJuror(id string, cfg config.JurorConfig, timeout time.Duration) *ChatJuror {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &ChatJuror{
		id:     id,
		cfg:    cfg,
		client: resty.New().SetTimeout(timeout),
	}
}

func (j *ChatJuror) ID() string { return j.id }

func (j *ChatJuror) Enabled() bool {
	return j.cfg.Enabled && strings.TrimSpace(j.cfg.APIKey) != ""
}

func (j *ChatJuror) Vote(ctx context.Context, b Ballot) (Vote, error) {
	url := chatCompletionsURL(j.cfg.APIURL)
	body := map[string]any{
		"model": j.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPreamble},
			{"role": "user", "content": b.Prompt()},
		},
		"response_format": map[string]string{"type": "json_object"},
	}
	logger.Debugf("[jury:%s] POST %s model=%s key=%s", j.id, url, j.cfg.Model, maskKey(j.cfg.APIKey))
	resp, err := j.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(j.cfg.APIKey).
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
	content := gjson.GetBytes(resp.Body(), "choices.0.message.content").String()
	return parseVerdict(content)
}

// chatCompletionsURL normalizes a configured base URL so a full
// /chat/completions path in the config does not double up.
func chatCompletionsURL(base string) string {
	url := strings.TrimSpace(base)
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}
