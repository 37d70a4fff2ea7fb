package signal

import (
	"strings"
	"time"

	"heylon/internal/store/model"

	"github.com/tidwall/gjson"
)

// Payload is the parsed PineScript webhook body. Every field is optional on
// the wire except ticker/type, which the HTTP boundary enforces; parsing here
// never fails, it just leaves zero values.
type Payload struct {
	Type        string
	Timeframe   string
	ZoneID      string
	Price       float64
	Summary     string
	Title       string
	Message     string
	Direction   string
	ZoneType    string
	VolumeScore float64
	Structural  bool
	Timestamp   string

	OriginHigh *float64
	OriginLow  *float64
	ZoneTop    *float64
	ZoneBottom *float64

	Raw []byte
}

// ParsePayload extracts the fields the pipeline cares about from the raw
// webhook JSON.
func ParsePayload(raw []byte) Payload {
	body := string(raw)
	p := Payload{
		Type:      gjson.Get(body, "type").String(),
		Timeframe: gjson.Get(body, "timeframe").String(),
		ZoneID:    gjson.Get(body, "zoneId").String(),
		Summary:   gjson.Get(body, "summary").String(),
		Title:     gjson.Get(body, "title").String(),
		Message:   gjson.Get(body, "message").String(),
		Direction: gjson.Get(body, "direction").String(),
		Timestamp: gjson.Get(body, "timestamp").String(),
		Raw:       raw,
	}
	if p.Timeframe == "" {
		p.Timeframe = "1H"
	}
	if v := gjson.Get(body, "close"); v.Exists() {
		p.Price = v.Float()
	} else if v := gjson.Get(body, "price"); v.Exists() {
		p.Price = v.Float()
	}
	p.VolumeScore = gjson.Get(body, "volume_score").Float()
	p.ZoneType = gjson.Get(body, "data.zoneType").String()
	if p.ZoneType == "" {
		p.ZoneType = gjson.Get(body, "data.zone_type").String()
	}
	p.Structural = gjson.Get(body, "is_structural").Bool()
	p.OriginHigh = floatPtr(gjson.Get(body, "data.originHigh"))
	p.OriginLow = floatPtr(gjson.Get(body, "data.originLow"))
	p.ZoneTop = floatPtr(gjson.Get(body, "data.zoneTop"))
	p.ZoneBottom = floatPtr(gjson.Get(body, "data.zoneBottom"))
	return p
}

func floatPtr(res gjson.Result) *float64 {
	if !res.Exists() || res.Type == gjson.Null {
		return nil
	}
	v := res.Float()
	return &v
}

// NormalizeType maps wire labels onto the signal enum. Pine sends
// "Zone Broken" with that exact casing.
func NormalizeType(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ZONE BROKEN", "ZONE_BROKEN":
		return model.SignalZoneBroken
	case "ZONE_CREATED":
		return model.SignalZoneCreated
	case "TAP":
		return model.SignalTap
	case "MSS", "STRUCTURAL_MSS":
		return model.SignalMSS
	case "SETUP":
		return model.SignalSetup
	default:
		return strings.ToUpper(strings.TrimSpace(raw))
	}
}

// IsStructural reports whether the event counts as a higher-timeframe break:
// an explicit flag, the STRUCTURAL_MSS wire type, or a 4H/1D timeframe.
func (p Payload) IsStructural() bool {
	if p.Structural {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(p.Type), "STRUCTURAL_MSS") {
		return true
	}
	tf := strings.ToUpper(strings.TrimSpace(p.Timeframe))
	return tf == "4H" || tf == "1D"
}

// BullishBias reports the directional read of the payload: an explicit
// direction field wins, otherwise a Bull keyword in title or message.
func (p Payload) BullishBias() bool {
	switch strings.ToUpper(strings.TrimSpace(p.Direction)) {
	case "UP", "BULL", "BULLISH":
		return true
	case "DOWN", "BEAR", "BEARISH":
		return false
	}
	return strings.Contains(p.Title, "Bull") || strings.Contains(p.Message, "Bull")
}

// ResolveTimestamp parses the sender's ISO timestamp, falling back to the
// server receipt time when missing or malformed.
func (p Payload) ResolveTimestamp(receivedAt time.Time) time.Time {
	ts := strings.TrimSpace(p.Timestamp)
	if ts == "" {
		return receivedAt
	}
	if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
		return parsed
	}
	if parsed, err := time.Parse("2006-01-02T15:04:05", ts); err == nil {
		return parsed.UTC()
	}
	return receivedAt
}
