package feeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"heylon/internal/config"
	"heylon/internal/logger"
	"heylon/internal/store"
	"heylon/internal/store/model"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const newsBatchLimit = 10

// Lexicon for the fallback sentiment scoring. Negative words weigh heavier;
// fear moves markets faster than optimism.
var (
	positiveWords = []string{"surge", "jump", "rally", "beat", "record", "optimism", "growth", "cut rates"}
	negativeWords = []string{"crash", "slump", "miss", "recession", "tumble", "fear", "inflation", "hike", "war"}
)

// NewsFetcher pulls business headlines from a NewsAPI-style endpoint, scores
// them with the lexicon and deposits them for the context heartbeat to read.
type NewsFetcher struct {
	cfg    *config.Manager
	store  store.FeedStore
	client *resty.Client

	nowFn func() time.Time
}

func NewNewsFetcher(cfg *config.Manager, feedStore store.FeedStore) *NewsFetcher {
	return &NewsFetcher{
		cfg:    cfg,
		store:  feedStore,
		client: resty.New().SetTimeout(20 * time.Second),
		nowFn:  time.Now,
	}
}

// Run executes one fetch. Without an API key it is a silent no-op; upstream
// failures are logged and swallowed.
func (f *NewsFetcher) Run(ctx context.Context) error {
	cfg := f.cfg.Current()
	apiKey := strings.TrimSpace(cfg.Feeds.NewsAPIKey)
	if apiKey == "" {
		logger.Debugf("[feeds] news fetch skipped (no api key)")
		return nil
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"category": "business",
			"country":  "us",
			"apiKey":   apiKey,
		}).
		Get("https://newsapi.org/v2/top-headlines")
	if err != nil {
		logger.Warnf("[feeds] news fetch failed: %v", err)
		return nil
	}
	body := resp.Body()
	if gjson.GetBytes(body, "status").String() != "ok" {
		logger.Warnf("[feeds] news api error: %s", gjson.GetBytes(body, "message").String())
		return nil
	}

	now := f.nowFn().UnixMilli()
	var events []model.NewsEvent
	for _, article := range gjson.GetBytes(body, "articles").Array() {
		if len(events) >= newsBatchLimit {
			break
		}
		title := article.Get("title").String()
		description := article.Get("description").String()
		if description == "" {
			description = "No description."
		}
		score := scoreSentiment(title + " " + description)
		impact := model.ImpactMedium
		if score > 0.5 || score < -0.5 {
			impact = model.ImpactHigh
		}
		events = append(events, model.NewsEvent{
			Title:          title,
			Description:    description,
			URL:            article.Get("url").String(),
			Source:         article.Get("source.name").String(),
			PublishedAt:    article.Get("publishedAt").String(),
			SentimentScore: score,
			ImpactRating:   impact,
			TimestampUnix:  now,
		})
	}
	if len(events) == 0 {
		return nil
	}
	if err := f.store.InsertNewsEvents(ctx, events); err != nil {
		return fmt.Errorf("storing news batch: %w", err)
	}
	logger.Infof("[feeds] stored %d news articles", len(events))
	return nil
}

func scoreSentiment(text string) float64 {
	lower := strings.ToLower(text)
	var score float64
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score += 0.2
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score -= 0.25
		}
	}
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
