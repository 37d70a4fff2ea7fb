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

	"github.com/mmcdole/gofeed"
)

const defaultMacroURL = "https://www.myfxbook.com/rss/forex-economic-calendar-events"

var majorCurrencies = map[string]bool{"USD": true, "EUR": true, "JPY": true, "GBP": true}

// MacroFetcher pulls the economic calendar RSS and deposits major-currency
// events with a keyword impact heuristic; the feed itself carries no impact
// metadata.
type MacroFetcher struct {
	cfg    *config.Manager
	store  store.FeedStore
	parser *gofeed.Parser

	nowFn func() time.Time
}

func NewMacroFetcher(cfg *config.Manager, feedStore store.FeedStore) *MacroFetcher {
	return &MacroFetcher{
		cfg:    cfg,
		store:  feedStore,
		parser: gofeed.NewParser(),
		nowFn:  time.Now,
	}
}

func (f *MacroFetcher) Run(ctx context.Context) error {
	url := strings.TrimSpace(f.cfg.Current().Feeds.MacroURL)
	if url == "" {
		url = defaultMacroURL
	}

	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		logger.Warnf("[feeds] macro fetch failed: %v", err)
		return nil
	}

	var events []model.MacroEvent
	for _, item := range feed.Items {
		title := item.Title
		if title == "" {
			continue
		}
		// Title format: "USD: Fed Interest Rate Decision".
		currency := "ALL"
		if idx := strings.Index(title, ":"); idx > 0 {
			currency = strings.TrimSpace(title[:idx])
		}
		if !majorCurrencies[currency] {
			continue
		}

		ts := f.nowFn().UnixMilli()
		if item.PublishedParsed != nil {
			ts = item.PublishedParsed.UnixMilli()
		}
		events = append(events, model.MacroEvent{
			Title:         title,
			Currency:      currency,
			Impact:        classifyMacroImpact(title),
			TimestampUnix: ts,
			Previous:      "-",
			Forecast:      "-",
			Actual:        "-",
		})
	}
	if len(events) == 0 {
		return nil
	}
	if err := f.store.InsertMacroEvents(ctx, events); err != nil {
		return fmt.Errorf("storing macro batch: %w", err)
	}
	logger.Infof("[feeds] stored %d macro events", len(events))
	return nil
}

func classifyMacroImpact(title string) string {
	lower := strings.ToLower(title)
	for _, kw := range []string{"rate", "cpi", "nfp", "gdp"} {
		if strings.Contains(lower, kw) {
			return model.ImpactHigh
		}
	}
	for _, kw := range []string{"pmi", "sales"} {
		if strings.Contains(lower, kw) {
			return model.ImpactMedium
		}
	}
	return model.ImpactLow
}
