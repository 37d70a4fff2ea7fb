package signal

import (
	"testing"
	"time"

	"heylon/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadNestedZoneData(t *testing.T) {
	body := `{
		"type": "TAP",
		"timeframe": "4H",
		"zoneId": "z-12",
		"close": 15050.5,
		"volume_score": 2.2,
		"data": {"zoneType": "demand", "originLow": 15000.0, "zoneTop": 15080.0}
	}`
	p := ParsePayload([]byte(body))

	assert.Equal(t, "TAP", p.Type)
	assert.Equal(t, "4H", p.Timeframe)
	assert.Equal(t, "z-12", p.ZoneID)
	assert.InDelta(t, 15050.5, p.Price, 1e-9)
	assert.InDelta(t, 2.2, p.VolumeScore, 1e-9)
	assert.Equal(t, "demand", p.ZoneType)
	require.NotNil(t, p.OriginLow)
	assert.InDelta(t, 15000.0, *p.OriginLow, 1e-9)
	assert.Nil(t, p.OriginHigh)
	require.NotNil(t, p.ZoneTop)
	assert.Nil(t, p.ZoneBottom)
}

func TestParsePayloadPriceAndZoneTypeAliases(t *testing.T) {
	p := ParsePayload([]byte(`{"type":"TAP","price":101.5,"data":{"zone_type":"supply"}}`))
	assert.InDelta(t, 101.5, p.Price, 1e-9)
	assert.Equal(t, "supply", p.ZoneType)
}

func TestNormalizeType(t *testing.T) {
	cases := map[string]string{
		"TAP":            model.SignalTap,
		"tap":            model.SignalTap,
		"Zone Broken":    model.SignalZoneBroken,
		"ZONE_BROKEN":    model.SignalZoneBroken,
		"ZONE_CREATED":   model.SignalZoneCreated,
		"MSS":            model.SignalMSS,
		"STRUCTURAL_MSS": model.SignalMSS,
		"SETUP":          model.SignalSetup,
		" custom ":       "CUSTOM",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeType(raw), "raw %q", raw)
	}
}

func TestIsStructural(t *testing.T) {
	assert.True(t, Payload{Structural: true}.IsStructural())
	assert.True(t, Payload{Type: "STRUCTURAL_MSS"}.IsStructural())
	assert.True(t, Payload{Timeframe: "4H"}.IsStructural())
	assert.True(t, Payload{Timeframe: "1d"}.IsStructural())
	assert.False(t, Payload{Type: "MSS", Timeframe: "15M"}.IsStructural())
}

func TestBullishBias(t *testing.T) {
	assert.True(t, Payload{Direction: "UP"}.BullishBias())
	assert.True(t, Payload{Direction: "bullish"}.BullishBias())
	assert.False(t, Payload{Direction: "DOWN", Title: "Bull trap"}.BullishBias(), "explicit direction wins over keywords")
	assert.True(t, Payload{Title: "Bullish break"}.BullishBias())
	assert.True(t, Payload{Message: "Bull MSS confirmed"}.BullishBias())
	assert.False(t, Payload{Title: "Bearish break"}.BullishBias())
}

func TestResolveTimestamp(t *testing.T) {
	received := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)

	got := Payload{Timestamp: "2025-06-02T14:58:30Z"}.ResolveTimestamp(received)
	assert.Equal(t, time.Date(2025, 6, 2, 14, 58, 30, 0, time.UTC), got.UTC())

	got = Payload{Timestamp: "2025-06-02T14:58:30"}.ResolveTimestamp(received)
	assert.Equal(t, time.Date(2025, 6, 2, 14, 58, 30, 0, time.UTC), got)

	assert.Equal(t, received, Payload{}.ResolveTimestamp(received))
	assert.Equal(t, received, Payload{Timestamp: "yesterday"}.ResolveTimestamp(received))
}
