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
	"golang.org/x/sync/errgroup"
)

const defaultQuoteURL = "https://query2.finance.yahoo.com/v8/finance/chart"

// futuresTickers maps watchlist symbols to their Yahoo futures tickers.
var futuresTickers = map[string]string{
	"ES":  "ES=F",
	"NQ":  "NQ=F",
	"YM":  "YM=F",
	"RTY": "RTY=F",
	"GC":  "GC=F",
	"CL":  "CL=F",
	"MNQ": "MNQ=F",
	"MES": "MES=F",
}

// MarketFetcher refreshes the per-symbol quote rows that feed the volatility
// regime heuristic.
type MarketFetcher struct {
	cfg    *config.Manager
	store  store.FeedStore
	client *resty.Client

	nowFn func() time.Time
}

func NewMarketFetcher(cfg *config.Manager, feedStore store.FeedStore) *MarketFetcher {
	return &MarketFetcher{
		cfg:    cfg,
		store:  feedStore,
		client: resty.New().SetTimeout(15 * time.Second),
		nowFn:  time.Now,
	}
}

// Run fetches all watchlist symbols in parallel. Per-symbol failures are
// logged and skipped; the rest of the batch still lands.
func (f *MarketFetcher) Run(ctx context.Context) error {
	cfg := f.cfg.Current()
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Feeds.QuoteURL), "/")
	if baseURL == "" {
		baseURL = defaultQuoteURL
	}

	var g errgroup.Group
	for _, symbol := range cfg.Watchlist.Symbols {
		symbol := strings.ToUpper(strings.TrimSpace(symbol))
		ticker, ok := futuresTickers[symbol]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := f.fetchOne(ctx, baseURL, symbol, ticker); err != nil {
				logger.Warnf("[feeds] quote fetch failed for %s: %v", symbol, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (f *MarketFetcher) fetchOne(ctx context.Context, baseURL, symbol, ticker string) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"interval": "1m", "range": "1d"}).
		Get(fmt.Sprintf("%s/%s", baseURL, ticker))
	if err != nil {
		return err
	}
	meta := gjson.GetBytes(resp.Body(), "chart.result.0.meta")
	if !meta.Exists() {
		return fmt.Errorf("no chart meta in response")
	}
	price := meta.Get("regularMarketPrice")
	prevClose := meta.Get("chartPreviousClose")
	if !price.Exists() || !prevClose.Exists() {
		return fmt.Errorf("incomplete quote")
	}

	change := price.Float() - prevClose.Float()
	changePercent := 0.0
	if prevClose.Float() != 0 {
		changePercent = change / prevClose.Float() * 100
	}
	return f.store.UpsertMarketTick(ctx, &model.MarketTick{
		Symbol:          symbol,
		Price:           price.Float(),
		Change:          change,
		ChangePercent:   changePercent,
		LastUpdatedUnix: f.nowFn().UnixMilli(),
	})
}
