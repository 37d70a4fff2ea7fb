package feeds

import (
	"context"
	"strings"
	"time"

	"heylon/internal/config"
	"heylon/internal/logger"
	"heylon/internal/store"
	"heylon/internal/store/model"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// socialRiskKeywords flag a post as market-moving political risk.
var socialRiskKeywords = []string{"TARIFF", "CHINA", "TRADE", "WAR", "SANCTIONS", "FED", "RATE", "DOLLAR", "BITCOIN", "CRYPTO"}

const socialRiskScore = -0.8

// SentimentApplier pushes a social read into the live context snapshots.
// *contextagg.Aggregator satisfies it.
type SentimentApplier interface {
	ApplySocialSentiment(ctx context.Context, score float64, keywords []string, useFallback bool) error
}

// SocialFetcher scrapes a political social feed for risk keywords. When the
// feed is unconfigured or down it falls back to scanning the snapshots' own
// news headlines.
type SocialFetcher struct {
	cfg     *config.Manager
	store   store.FeedStore
	applier SentimentApplier
	client  *resty.Client

	nowFn func() time.Time
}

func NewSocialFetcher(cfg *config.Manager, feedStore store.FeedStore, applier SentimentApplier) *SocialFetcher {
	return &SocialFetcher{
		cfg:     cfg,
		store:   feedStore,
		applier: applier,
		client:  resty.New().SetTimeout(20 * time.Second),
		nowFn:   time.Now,
	}
}

func (f *SocialFetcher) Run(ctx context.Context) error {
	url := strings.TrimSpace(f.cfg.Current().Feeds.SocialURL)
	if url == "" {
		logger.Debugf("[feeds] social scrape skipped (no endpoint), using headline fallback")
		return f.record(ctx, 0, nil, true)
	}

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		logger.Warnf("[feeds] social scrape failed (%v), using headline fallback", err)
		return f.record(ctx, 0, nil, true)
	}
	if resp.StatusCode()/100 != 2 {
		logger.Warnf("[feeds] social scrape returned %d, using headline fallback", resp.StatusCode())
		return f.record(ctx, 0, nil, true)
	}

	posts := gjson.GetBytes(resp.Body(), "response")
	if !posts.Exists() {
		posts = gjson.ParseBytes(resp.Body())
	}

	seen := map[string]bool{}
	var hits []string
	for _, post := range posts.Array() {
		content := post.Get("content").String()
		if content == "" {
			content = post.Get("text").String()
		}
		upper := strings.ToUpper(content)
		for _, kw := range socialRiskKeywords {
			if !seen[kw] && strings.Contains(upper, kw) {
				seen[kw] = true
				hits = append(hits, kw)
			}
		}
	}

	score := 0.0
	if len(hits) > 0 {
		score = socialRiskScore
	}
	logger.Infof("[feeds] social scrape: %d risk keywords, score %.1f", len(hits), score)
	return f.record(ctx, score, hits, false)
}

func (f *SocialFetcher) record(ctx context.Context, score float64, keywords []string, fallback bool) error {
	rec := model.SocialSentiment{
		Score:         score,
		Fallback:      fallback,
		CreatedAtUnix: f.nowFn().UnixMilli(),
	}
	rec.SetKeywords(keywords)
	if err := f.store.InsertSocialSentiment(ctx, &rec); err != nil {
		logger.Warnf("[feeds] social sentiment insert failed: %v", err)
	}
	if f.applier == nil {
		return nil
	}
	return f.applier.ApplySocialSentiment(ctx, score, keywords, fallback)
}
