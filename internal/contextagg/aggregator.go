package contextagg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"heylon/internal/config"
	"heylon/internal/logger"
	"heylon/internal/store"
	"heylon/internal/store/model"
)

const (
	macroLookahead  = 2 * time.Hour
	macroHotWindow  = 30 * time.Minute
	newsLookback    = 6 * time.Hour
	snapshotTTL     = 5 * time.Minute
	headlineSamples = 3
)

var errNoChange = errors.New("no change")

// fallbackKeywords is used when the config carries no political risk keyword
// list of its own.
var fallbackKeywords = []string{"TRUMP", "TARIFF", "CHINA", "TRADE"}

// Aggregator is the context heartbeat. Each cycle it recomputes macro risk,
// news sentiment and the volatility regime, toggles the MACRO_RISK blocker on
// every live decision state and refreshes the per-symbol snapshots.
type Aggregator struct {
	cfg       *config.Manager
	decisions store.DecisionStore
	contexts  store.ContextStore
	feeds     store.FeedStore

	nowFn func() time.Time
}

func New(cfg *config.Manager, decisions store.DecisionStore, contexts store.ContextStore, feeds store.FeedStore) *Aggregator {
	return &Aggregator{
		cfg:       cfg,
		decisions: decisions,
		contexts:  contexts,
		feeds:     feeds,
		nowFn:     time.Now,
	}
}

// SetNow overrides the clock. Tests use this.
func (a *Aggregator) SetNow(fn func() time.Time) { a.nowFn = fn }

// RunRiskCycle executes one heartbeat. Missing feed data degrades to the
// neutral values; only store failures surface as errors.
func (a *Aggregator) RunRiskCycle(ctx context.Context) error {
	cfg := a.cfg.Current()
	if !cfg.Context.AppTickEnabled {
		logger.Debugf("[context] heartbeat skipped (apptick disabled)")
		return nil
	}
	now := a.nowFn()

	macroImpact, activeEvent := a.macroRisk(ctx, now)
	newsScore, newsLabel, headlines := a.newsSentiment(ctx, now)

	states, err := a.decisions.ListDecisions(ctx)
	if err != nil {
		return fmt.Errorf("listing decision states: %w", err)
	}
	for _, state := range states {
		a.syncBlocker(ctx, state.Symbol, macroImpact)

		snap := model.ContextSnapshot{
			Symbol:        state.Symbol,
			MacroRisk:     macroImpact,
			NewsScore:     newsScore,
			NewsLabel:     newsLabel,
			Volatility:    a.volatilityRegime(ctx, state.Symbol),
			CreatedAtUnix: now.UnixMilli(),
			ExpiresAtUnix: now.Add(snapshotTTL).UnixMilli(),
		}
		snap.SetHeadlines(headlines)
		if activeEvent != "" {
			snap.SetMacroFlags([]model.MacroFlag{{Event: activeEvent, Impact: macroImpact, Timestamp: now.UnixMilli()}})
		} else {
			snap.SetMacroFlags([]model.MacroFlag{})
		}

		// Carry the social read across refreshes; it arrives on its own cadence.
		prev, err := a.contexts.ActiveSnapshot(ctx, state.Symbol)
		if err != nil {
			logger.Warnf("[context] %s snapshot lookup failed: %v", state.Symbol, err)
		}
		if prev != nil {
			snap.SocialScore = prev.SocialScore
			snap.SocialKeywords = prev.SocialKeywords
		}

		if err := a.contexts.UpsertSnapshot(ctx, &snap); err != nil {
			return fmt.Errorf("upserting snapshot for %s: %w", state.Symbol, err)
		}
	}
	return nil
}

// macroRisk scans the calendar around now. Only a HIGH-impact event inside
// the hot window raises the flag.
func (a *Aggregator) macroRisk(ctx context.Context, now time.Time) (impact, activeEvent string) {
	impact = model.ImpactLow
	events, err := a.feeds.MacroEventsBetween(ctx, now.Add(-macroLookahead), now.Add(macroLookahead))
	if err != nil {
		logger.Warnf("[context] macro scan failed: %v", err)
		return impact, ""
	}
	for _, event := range events {
		if event.Impact != model.ImpactHigh {
			continue
		}
		diff := time.Duration(event.TimestampUnix-now.UnixMilli()) * time.Millisecond
		if diff < 0 {
			diff = -diff
		}
		if diff < macroHotWindow {
			return model.ImpactHigh, event.Title
		}
	}
	return impact, ""
}

// newsSentiment averages the lookback window. No news means a neutral zero.
func (a *Aggregator) newsSentiment(ctx context.Context, now time.Time) (score float64, label string, headlines []string) {
	label = "NEUTRAL"
	news, err := a.feeds.NewsEventsSince(ctx, now.Add(-newsLookback))
	if err != nil {
		logger.Warnf("[context] news scan failed: %v", err)
		return 0, label, nil
	}
	if len(news) == 0 {
		return 0, label, nil
	}
	var total float64
	for _, item := range news {
		total += item.SentimentScore
	}
	score = total / float64(len(news))
	label = classifyNews(score)
	for i := 0; i < len(news) && i < headlineSamples; i++ {
		headlines = append(headlines, news[i].Title)
	}
	return score, label, headlines
}

func classifyNews(score float64) string {
	switch {
	case score > 0.2:
		return "POSITIVE"
	case score < -0.2:
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}

// syncBlocker toggles MACRO_RISK symmetrically. The version bump only happens
// when the blocker set actually changes.
func (a *Aggregator) syncBlocker(ctx context.Context, symbol, macroImpact string) {
	_, err := a.decisions.Mutate(ctx, symbol, func(rec *model.DecisionState) error {
		var changed bool
		if macroImpact == model.ImpactHigh {
			changed = rec.AddBlocker(model.BlockerMacroRisk)
		} else {
			changed = rec.RemoveBlocker(model.BlockerMacroRisk)
		}
		if !changed {
			return errNoChange
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		logger.Warnf("[context] blocker sync failed for %s: %v", symbol, err)
	}
}

func (a *Aggregator) volatilityRegime(ctx context.Context, symbol string) string {
	tick, err := a.feeds.LatestMarketTick(ctx, symbol)
	if err != nil {
		logger.Warnf("[context] tick lookup failed for %s: %v", symbol, err)
		return model.RegimeNormal
	}
	if tick == nil {
		return model.RegimeNormal
	}
	absChange := math.Abs(tick.ChangePercent)
	switch {
	case absChange > 1.5:
		return model.RegimeHigh
	case absChange < 0.2:
		return model.RegimeLow
	default:
		return model.RegimeNormal
	}
}

// ApplySocialSentiment writes the latest social read into every live
// snapshot. With useFallback set (the scrape failed) it scans the snapshot's
// own headlines for the configured political risk keywords; any hit pins the
// score to a fixed moderate negative.
func (a *Aggregator) ApplySocialSentiment(ctx context.Context, score float64, keywords []string, useFallback bool) error {
	cfg := a.cfg.Current()
	riskKeywords := cfg.Context.PoliticalRiskKeywords
	if len(riskKeywords) == 0 {
		riskKeywords = fallbackKeywords
	}

	states, err := a.decisions.ListDecisions(ctx)
	if err != nil {
		return fmt.Errorf("listing decision states: %w", err)
	}
	for _, state := range states {
		snap, err := a.contexts.ActiveSnapshot(ctx, state.Symbol)
		if err != nil {
			logger.Warnf("[context] %s snapshot lookup failed: %v", state.Symbol, err)
			continue
		}
		if snap == nil {
			continue
		}

		finalScore, finalKeywords := score, keywords
		if useFallback {
			if hits := matchKeywords(snap.HeadlineList(), riskKeywords); len(hits) > 0 {
				finalScore = -0.5
				finalKeywords = hits
				logger.Infof("[context] social fallback hit for %s: %v", state.Symbol, hits)
			}
		}

		snap.SocialScore = finalScore
		snap.SetSocialKeywords(finalKeywords)
		if err := a.contexts.UpsertSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("updating social sentiment for %s: %w", state.Symbol, err)
		}
	}
	return nil
}

func matchKeywords(headlines, keywords []string) []string {
	seen := map[string]bool{}
	var hits []string
	for _, headline := range headlines {
		upper := strings.ToUpper(headline)
		for _, kw := range keywords {
			if seen[kw] {
				continue
			}
			if strings.Contains(upper, strings.ToUpper(kw)) {
				seen[kw] = true
				hits = append(hits, kw)
			}
		}
	}
	return hits
}
