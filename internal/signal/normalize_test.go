package signal

import (
	"context"
	"testing"
	"time"

	"heylon/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeRawStore struct {
	rows map[string]*model.RawEvent
}

func newFakeRawStore() *fakeRawStore {
	return &fakeRawStore{rows: map[string]*model.RawEvent{}}
}

func (f *fakeRawStore) InsertRawEvent(_ context.Context, rec *model.RawEvent) error {
	cp := *rec
	f.rows[rec.ID] = &cp
	return nil
}

func (f *fakeRawStore) GetRawEvent(_ context.Context, id string) (*model.RawEvent, error) {
	rec, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRawStore) MarkProcessed(_ context.Context, id string) error {
	if rec, ok := f.rows[id]; ok {
		rec.Processed = true
	}
	return nil
}

type fakeSignalStore struct {
	rows []model.Signal
}

func (f *fakeSignalStore) InsertSignal(_ context.Context, rec *model.Signal) error {
	rec.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *rec)
	return nil
}

func (f *fakeSignalStore) LatestSignalSince(_ context.Context, symbol, typ string, since time.Time) (*model.Signal, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		row := f.rows[i]
		if row.Symbol == symbol && row.Type == typ && row.CreatedAtUnix >= since.UnixMilli() {
			cp := row
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSignalStore) RecentSignals(_ context.Context, symbol string, limit int) ([]model.Signal, error) {
	var out []model.Signal
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if f.rows[i].Symbol == symbol {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

type recordingSink struct {
	signals  []model.Signal
	payloads []Payload
}

func (s *recordingSink) ProcessSignal(_ context.Context, sig model.Signal, p Payload) error {
	s.signals = append(s.signals, sig)
	s.payloads = append(s.payloads, p)
	return nil
}

func newTestNormalizer(now time.Time) (*Normalizer, *fakeRawStore, *fakeSignalStore, *recordingSink) {
	raw := newFakeRawStore()
	signals := &fakeSignalStore{}
	sink := &recordingSink{}
	n := NewNormalizer(raw, signals, sink)
	n.SetNow(func() time.Time { return now })
	return n, raw, signals, sink
}

func seedRaw(t *testing.T, raw *fakeRawStore, id, ticker, body string, receivedAt time.Time) {
	t.Helper()
	require.NoError(t, raw.InsertRawEvent(context.Background(), &model.RawEvent{
		ID:         id,
		Source:     "tradingview_pinescript",
		Ticker:     ticker,
		Payload:    datatypes.JSON(body),
		ReceivedAt: receivedAt.UnixMilli(),
	}))
}

func TestProcessDiscardsDuplicateWithinWindow(t *testing.T) {
	now := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	n, raw, signals, sink := newTestNormalizer(now)
	ctx := context.Background()

	body := `{"type":"TAP","close":15050.0,"data":{"zoneType":"demand","originLow":15000.0}}`
	seedRaw(t, raw, "evt-1", "NQ", body, now)
	seedRaw(t, raw, "evt-2", "NQ", body, now.Add(2*time.Second))

	require.NoError(t, n.Process(ctx, "evt-1"))
	require.Len(t, signals.rows, 1)

	n.SetNow(func() time.Time { return now.Add(2 * time.Second) })
	require.NoError(t, n.Process(ctx, "evt-2"))

	assert.Len(t, signals.rows, 1, "second event inside the window must be dropped")
	assert.Len(t, sink.signals, 1)
	assert.True(t, raw.rows["evt-2"].Processed, "discarded raw rows still get marked processed")
}

func TestProcessAcceptsDuplicateOutsideWindow(t *testing.T) {
	now := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	n, raw, signals, sink := newTestNormalizer(now)
	ctx := context.Background()

	body := `{"type":"TAP","close":15050.0,"data":{"zoneType":"demand","originLow":15000.0}}`
	seedRaw(t, raw, "evt-1", "NQ", body, now)
	seedRaw(t, raw, "evt-2", "NQ", body, now.Add(DedupWindow+time.Second))

	require.NoError(t, n.Process(ctx, "evt-1"))
	n.SetNow(func() time.Time { return now.Add(DedupWindow + time.Second) })
	require.NoError(t, n.Process(ctx, "evt-2"))

	assert.Len(t, signals.rows, 2, "same payload past the window is a fresh signal")
	assert.Len(t, sink.signals, 2)
}

func TestProcessDifferentTypesNeverCollide(t *testing.T) {
	now := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	n, raw, signals, _ := newTestNormalizer(now)
	ctx := context.Background()

	seedRaw(t, raw, "evt-1", "NQ", `{"type":"TAP","close":15050.0}`, now)
	seedRaw(t, raw, "evt-2", "NQ", `{"type":"MSS","close":15055.0}`, now.Add(time.Second))

	require.NoError(t, n.Process(ctx, "evt-1"))
	n.SetNow(func() time.Time { return now.Add(time.Second) })
	require.NoError(t, n.Process(ctx, "evt-2"))

	assert.Len(t, signals.rows, 2)
}

func TestProcessNormalizesWireFields(t *testing.T) {
	now := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	n, raw, signals, _ := newTestNormalizer(now)
	ctx := context.Background()

	body := `{"type":"Zone Broken","zoneId":"z-9"}`
	seedRaw(t, raw, "evt-1", "nq", body, now)
	require.NoError(t, n.Process(ctx, "evt-1"))

	require.Len(t, signals.rows, 1)
	sig := signals.rows[0]
	assert.Equal(t, "NQ", sig.Symbol)
	assert.Equal(t, model.SignalZoneBroken, sig.Type)
	assert.Equal(t, "1H", sig.Timeframe, "missing timeframe defaults")
	assert.Equal(t, "z-9", sig.ZoneID)
	assert.Equal(t, "Received ZONE_BROKEN", sig.Summary)
	assert.Nil(t, sig.StopLoss, "levels only attach to tap/break events")
	assert.True(t, raw.rows["evt-1"].Processed)
}

func TestProcessMissingRawIsNoop(t *testing.T) {
	n, _, signals, sink := newTestNormalizer(time.Now())
	require.NoError(t, n.Process(context.Background(), "ghost"))
	assert.Empty(t, signals.rows)
	assert.Empty(t, sink.signals)
}

func TestDeriveExecutionLong(t *testing.T) {
	origin := 15000.0
	dir, sl, tp := DeriveExecution(Payload{
		ZoneType:  "demand",
		Price:     15050.0,
		OriginLow: &origin,
	})
	assert.Equal(t, model.DirectionBullish, dir)
	require.NotNil(t, sl)
	require.NotNil(t, tp)
	assert.InDelta(t, 14998.0, *sl, 1e-9, "stop is origin minus the 2pt buffer")
	assert.InDelta(t, 15154.0, *tp, 1e-9, "target is entry plus twice the risk")
}

func TestDeriveExecutionShort(t *testing.T) {
	origin := 15100.0
	dir, sl, tp := DeriveExecution(Payload{
		ZoneType:   "supply",
		Price:      15050.0,
		OriginHigh: &origin,
	})
	assert.Equal(t, model.DirectionBearish, dir)
	require.NotNil(t, sl)
	require.NotNil(t, tp)
	assert.InDelta(t, 15102.0, *sl, 1e-9)
	assert.InDelta(t, 14946.0, *tp, 1e-9)
}

func TestDeriveExecutionZoneEdgeFallback(t *testing.T) {
	bottom := 15010.0
	dir, sl, tp := DeriveExecution(Payload{
		ZoneType:   "demand",
		Price:      15050.0,
		ZoneBottom: &bottom,
	})
	assert.Equal(t, model.DirectionBullish, dir)
	require.NotNil(t, sl)
	assert.InDelta(t, 15008.0, *sl, 1e-9, "zone bottom substitutes for a missing origin wick")
	require.NotNil(t, tp)
}

func TestDeriveExecutionDirectionFallsBackToBias(t *testing.T) {
	dir, _, _ := DeriveExecution(Payload{Title: "Bullish MSS", Direction: "BULL"})
	assert.Equal(t, model.DirectionBullish, dir)

	dir, _, _ = DeriveExecution(Payload{Message: "no keywords here"})
	assert.Equal(t, model.DirectionBearish, dir)
}

func TestDeriveExecutionDegradesToNilLevels(t *testing.T) {
	origin := 15000.0

	// No price: direction only.
	dir, sl, tp := DeriveExecution(Payload{ZoneType: "demand", OriginLow: &origin})
	assert.Equal(t, model.DirectionBullish, dir)
	assert.Nil(t, sl)
	assert.Nil(t, tp)

	// No anchor at all.
	_, sl, tp = DeriveExecution(Payload{ZoneType: "demand", Price: 15050.0})
	assert.Nil(t, sl)
	assert.Nil(t, tp)

	// Inverted geometry: entry already below the long stop.
	_, sl, tp = DeriveExecution(Payload{ZoneType: "demand", Price: 14990.0, OriginLow: &origin})
	assert.Nil(t, sl)
	assert.Nil(t, tp)
}
