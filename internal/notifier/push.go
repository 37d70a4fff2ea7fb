package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"heylon/internal/config"
	"heylon/internal/logger"
	"heylon/internal/store/model"

	"github.com/go-resty/resty/v2"
)

// Dispatcher fans a notification out to the configured delivery channels:
// a push endpoint and Telegram. Delivery failures are logged, never returned;
// nothing downstream of the decision pipeline may fail it.
type Dispatcher struct {
	cfg        *config.Manager
	client     *resty.Client
	httpClient *http.Client
}

func NewDispatcher(cfg *config.Manager) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		client:     resty.New().SetTimeout(10 * time.Second),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Notify implements the jury's notification sink.
func (d *Dispatcher) Notify(ctx context.Context, n model.Notification) {
	cfg := d.cfg.Current()

	if cfg.Notify.Push.Enabled {
		endpoint := strings.TrimSpace(cfg.Notify.Push.Endpoint)
		if endpoint != "" {
			if err := d.sendPush(ctx, endpoint, n); err != nil {
				logger.Warnf("[notify] push delivery failed: %v", err)
			}
		}
	}

	if cfg.Notify.Telegram.Enabled {
		tg := &Telegram{
			BotToken: cfg.Notify.Telegram.BotToken,
			ChatID:   cfg.Notify.Telegram.ChatID,
			Client:   d.httpClient,
		}
		text := fmt.Sprintf("*%s*\n%s", n.Title, n.Body)
		if err := tg.SendText(text); err != nil {
			logger.Warnf("[notify] telegram delivery failed: %v", err)
		}
	}
}

func (d *Dispatcher) sendPush(ctx context.Context, endpoint string, n model.Notification) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"title": n.Title,
			"body":  n.Body,
			"tag":   n.Tag,
			"url":   "/",
		}).
		Post(endpoint)
	if err != nil {
		return err
	}
	if resp.StatusCode()/100 != 2 {
		return fmt.Errorf("push endpoint status=%d", resp.StatusCode())
	}
	return nil
}
