package signal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"heylon/internal/logger"
	"heylon/internal/store"
	"heylon/internal/store/model"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DedupWindow suppresses intrabar webhook noise: a second event for the same
// (symbol, type) inside this window is discarded. A duplicate just outside the
// window is accepted as a genuinely separate signal.
const DedupWindow = 5 * time.Second

// stopBufferPoints pads the stop beyond the origin wick. Fixed, not
// ATR-derived; the resulting levels are advisory display fields only.
var stopBufferPoints = decimal.NewFromFloat(2.0)

// Sink receives each accepted signal after insertion. The decision engine
// implements this.
type Sink interface {
	ProcessSignal(ctx context.Context, sig model.Signal, p Payload) error
}

// Normalizer turns raw webhook rows into deduplicated signal rows and hands
// them to the engine.
type Normalizer struct {
	Raw     store.RawEventStore
	Signals store.SignalStore
	Sink    Sink

	nowFn func() time.Time
}

func NewNormalizer(raw store.RawEventStore, signals store.SignalStore, sink Sink) *Normalizer {
	return &Normalizer{Raw: raw, Signals: signals, Sink: sink, nowFn: time.Now}
}

// SetNow overrides the clock. Tests use this.
func (n *Normalizer) SetNow(fn func() time.Time) { n.nowFn = fn }

// Process loads the raw event, applies the dedup window, derives advisory
// execution parameters, inserts the normalized signal and forwards it to the
// engine. The raw row is marked processed in every path, including discard.
func (n *Normalizer) Process(ctx context.Context, rawID string) error {
	raw, err := n.Raw.GetRawEvent(ctx, rawID)
	if err != nil {
		return fmt.Errorf("loading raw event %s: %w", rawID, err)
	}
	if raw == nil {
		return nil
	}
	p := ParsePayload(raw.Payload)
	typ := NormalizeType(p.Type)
	symbol := strings.ToUpper(strings.TrimSpace(raw.Ticker))
	now := n.nowFn()

	dup, err := n.Signals.LatestSignalSince(ctx, symbol, typ, now.Add(-DedupWindow))
	if err != nil {
		return fmt.Errorf("dedup lookup for %s/%s: %w", symbol, typ, err)
	}
	if dup != nil {
		logger.Debugf("discarding duplicate %s for %s within %s window", typ, symbol, DedupWindow)
		return n.Raw.MarkProcessed(ctx, rawID)
	}

	sig := model.Signal{
		Symbol:        symbol,
		Type:          typ,
		Timeframe:     p.Timeframe,
		ZoneID:        p.ZoneID,
		Price:         p.Price,
		Metadata:      datatypes.JSON(raw.Payload),
		Summary:       p.Summary,
		CreatedAtUnix: p.ResolveTimestamp(time.UnixMilli(raw.ReceivedAt)).UnixMilli(),
	}
	if sig.Summary == "" {
		sig.Summary = fmt.Sprintf("Received %s", typ)
	}
	switch typ {
	case model.SignalTap, model.SignalMSS, model.SignalSetup:
		dir, stop, target := DeriveExecution(p)
		sig.Direction = dir
		sig.StopLoss = stop
		sig.TakeProfit = target
	}

	if err := n.Signals.InsertSignal(ctx, &sig); err != nil {
		return fmt.Errorf("inserting signal for %s: %w", symbol, err)
	}
	if err := n.Raw.MarkProcessed(ctx, rawID); err != nil {
		logger.Warnf("marking raw event %s processed: %v", rawID, err)
	}
	if n.Sink != nil {
		if err := n.Sink.ProcessSignal(ctx, sig, p); err != nil {
			// Engine failures never propagate back to the webhook caller;
			// the signal row is already durable.
			logger.Errorf("engine rejected signal %s/%s: %v", symbol, typ, err)
		}
	}
	return nil
}

// DeriveExecution computes the advisory direction, stop-loss and take-profit
// for a tap or break. Direction comes from the zone type (Demand is a long
// reaction area, Supply a short one) falling back to the payload's own bias.
// The stop sits beyond the origin wick padded by a fixed buffer, with the
// zone edge as fallback; the target is two times the risk distance.
func DeriveExecution(p Payload) (direction string, stopLoss, takeProfit *float64) {
	zone := strings.ToLower(strings.TrimSpace(p.ZoneType))
	switch {
	case strings.Contains(zone, "demand"):
		direction = model.DirectionBullish
	case strings.Contains(zone, "supply"):
		direction = model.DirectionBearish
	case p.BullishBias():
		direction = model.DirectionBullish
	default:
		direction = model.DirectionBearish
	}
	if p.Price <= 0 {
		return direction, nil, nil
	}
	entry := decimal.NewFromFloat(p.Price)

	var anchor *float64
	if direction == model.DirectionBullish {
		anchor = p.OriginLow
		if anchor == nil {
			anchor = p.ZoneBottom
		}
	} else {
		anchor = p.OriginHigh
		if anchor == nil {
			anchor = p.ZoneTop
		}
	}
	if anchor == nil {
		return direction, nil, nil
	}

	var stop, risk, target decimal.Decimal
	if direction == model.DirectionBullish {
		stop = decimal.NewFromFloat(*anchor).Sub(stopBufferPoints)
		risk = entry.Sub(stop)
		target = entry.Add(risk.Mul(decimal.NewFromInt(2)))
	} else {
		stop = decimal.NewFromFloat(*anchor).Add(stopBufferPoints)
		risk = stop.Sub(entry)
		target = entry.Sub(risk.Mul(decimal.NewFromInt(2)))
	}
	if risk.LessThanOrEqual(decimal.Zero) {
		return direction, nil, nil
	}
	sl, _ := stop.Float64()
	tp, _ := target.Float64()
	return direction, &sl, &tp
}
