package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Decision values. BIAS is a soft directional lean the UI can render without
// an executable call behind it.
const (
	DecisionIdle = "IDLE"
	DecisionWait = "WAIT"
	DecisionBias = "BIAS"
	DecisionBuy  = "BUY"
	DecisionSell = "SELL"
)

const (
	StageIdle        = "IDLE"
	StagePreliminary = "PRELIMINARY"
	StageFinal       = "FINAL"
)

const (
	TriggerNone = "NONE"
	TriggerTap  = "TAP"
	TriggerMSS  = "MSS"
)

// Signal types as sent by the PineScript indicator. "Zone Broken" arrives
// with that exact label and is normalized to ZONE_BROKEN at ingestion.
const (
	SignalZoneCreated = "ZONE_CREATED"
	SignalTap         = "TAP"
	SignalMSS         = "MSS"
	SignalSetup       = "SETUP"
	SignalZoneBroken  = "ZONE_BROKEN"
)

const (
	DirectionBullish = "BULLISH"
	DirectionBearish = "BEARISH"
)

const (
	OutcomeWin     = "WIN"
	OutcomeLoss    = "LOSS"
	OutcomeNeutral = "NEUTRAL"
)

const (
	ImpactLow    = "LOW"
	ImpactMedium = "MEDIUM"
	ImpactHigh   = "HIGH"
)

const (
	RegimeLow    = "LOW"
	RegimeNormal = "NORMAL"
	RegimeHigh   = "HIGH"
)

// BlockerMacroRisk is the blocking factor toggled by the context heartbeat.
const BlockerMacroRisk = "MACRO_RISK"

// RawEvent is the immutable webhook log. Only the processed flag is ever
// updated after insert.
type RawEvent struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Source        string         `gorm:"column:source"`
	Ticker        string         `gorm:"column:ticker"`
	Payload       datatypes.JSON `gorm:"column:payload;type:TEXT"`
	Timestamp     string         `gorm:"column:timestamp"` // ISO string from sender
	ReceivedAt    int64          `gorm:"column:received_at"`
	Processed     bool           `gorm:"column:processed;index"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (RawEvent) TableName() string { return "events_raw" }

// Signal is one accepted (non-duplicate) structural event. Append-only.
// StopLoss/TakeProfit are advisory display fields, never routed anywhere.
type Signal struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Symbol        string         `gorm:"column:symbol;index:idx_signals_symbol_created,priority:1"`
	Type          string         `gorm:"column:type"`
	Timeframe     string         `gorm:"column:timeframe"`
	ZoneID        string         `gorm:"column:zone_id"`
	Price         float64        `gorm:"column:price"`
	Direction     string         `gorm:"column:direction"`
	StopLoss      *float64       `gorm:"column:stop_loss"`
	TakeProfit    *float64       `gorm:"column:take_profit"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:TEXT"`
	Summary       string         `gorm:"column:summary"`
	CreatedAtUnix int64          `gorm:"column:created_at;index:idx_signals_symbol_created,priority:2"`
}

func (Signal) TableName() string { return "signals" }

// DecisionState is the single live row per symbol; the UI's source of truth.
// Version increases on every mutation and guards against stale jury commits.
type DecisionState struct {
	ID              int64          `gorm:"column:id;primaryKey"`
	Symbol          string         `gorm:"column:symbol;uniqueIndex"`
	Stage           string         `gorm:"column:stage"`
	Decision        string         `gorm:"column:decision"`
	Confidence      float64        `gorm:"column:confidence"`
	Analysis        string         `gorm:"column:analysis"`
	ViabilityScore  *float64       `gorm:"column:viability_score"`
	TriggerType     string         `gorm:"column:trigger_type"`
	TriggerEventID  string         `gorm:"column:trigger_event_id"`
	Supporting      datatypes.JSON `gorm:"column:supporting_factors;type:TEXT"`
	Blocking        datatypes.JSON `gorm:"column:blocking_factors;type:TEXT"`
	JuryVotes       datatypes.JSON `gorm:"column:jury_votes;type:TEXT"`
	JuryConsensus   string         `gorm:"column:jury_consensus"`
	JuryExplanation string         `gorm:"column:jury_explanation"`
	JuryLastVote    int64          `gorm:"column:jury_last_vote"`
	Version         int64          `gorm:"column:version"`
	ExpiryUnix      int64          `gorm:"column:expiry"`
	UpdatedAtUnix   int64          `gorm:"column:updated_at"`
}

func (DecisionState) TableName() string { return "decision_state" }

func (d *DecisionState) SupportingFactors() []string { return decodeStrings(d.Supporting) }

func (d *DecisionState) SetSupportingFactors(factors []string) {
	d.Supporting = encodeStrings(factors)
}

func (d *DecisionState) AppendSupportingFactors(factors ...string) {
	d.SetSupportingFactors(append(d.SupportingFactors(), factors...))
}

func (d *DecisionState) BlockingFactors() []string { return decodeStrings(d.Blocking) }

func (d *DecisionState) SetBlockingFactors(factors []string) {
	d.Blocking = encodeStrings(factors)
}

// AddBlocker adds a blocking factor with set semantics. Returns true when the
// set changed.
func (d *DecisionState) AddBlocker(name string) bool {
	factors := d.BlockingFactors()
	for _, f := range factors {
		if f == name {
			return false
		}
	}
	d.SetBlockingFactors(append(factors, name))
	return true
}

// RemoveBlocker removes a blocking factor. Returns true when the set changed.
func (d *DecisionState) RemoveBlocker(name string) bool {
	factors := d.BlockingFactors()
	out := factors[:0]
	removed := false
	for _, f := range factors {
		if f == name {
			removed = true
			continue
		}
		out = append(out, f)
	}
	if removed {
		d.SetBlockingFactors(out)
	}
	return removed
}

func (d *DecisionState) VoteMap() map[string]string {
	out := map[string]string{}
	if len(d.JuryVotes) > 0 {
		_ = json.Unmarshal(d.JuryVotes, &out)
	}
	return out
}

func (d *DecisionState) SetVoteMap(votes map[string]string) {
	raw, err := json.Marshal(votes)
	if err != nil {
		return
	}
	d.JuryVotes = datatypes.JSON(raw)
}

// MacroFlag is one macro-calendar entry embedded in a context snapshot.
type MacroFlag struct {
	Event     string `json:"event"`
	Impact    string `json:"impact"`
	Timestamp int64  `json:"timestamp"`
}

// ContextSnapshot is the time-boxed per-symbol world state. Expired rows are
// filtered at query time, not purged.
type ContextSnapshot struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	Symbol         string         `gorm:"column:symbol;index:idx_ctx_symbol_expires,priority:1"`
	Macro          datatypes.JSON `gorm:"column:macro;type:TEXT"`
	MacroRisk      string         `gorm:"column:macro_risk"`
	NewsScore      float64        `gorm:"column:news_score"`
	NewsLabel      string         `gorm:"column:news_label"`
	Headlines      datatypes.JSON `gorm:"column:headlines;type:TEXT"`
	SocialScore    float64        `gorm:"column:social_score"`
	SocialKeywords datatypes.JSON `gorm:"column:social_keywords;type:TEXT"`
	Volatility     string         `gorm:"column:volatility"`
	ExpiresAtUnix  int64          `gorm:"column:expires_at;index:idx_ctx_symbol_expires,priority:2"`
	CreatedAtUnix  int64          `gorm:"column:created_at"`
}

func (ContextSnapshot) TableName() string { return "context_snapshots" }

func (c *ContextSnapshot) MacroFlags() []MacroFlag {
	var out []MacroFlag
	if len(c.Macro) > 0 {
		_ = json.Unmarshal(c.Macro, &out)
	}
	return out
}

func (c *ContextSnapshot) SetMacroFlags(flags []MacroFlag) {
	raw, err := json.Marshal(flags)
	if err != nil {
		return
	}
	c.Macro = datatypes.JSON(raw)
}

func (c *ContextSnapshot) HeadlineList() []string { return decodeStrings(c.Headlines) }

func (c *ContextSnapshot) SetHeadlines(headlines []string) {
	c.Headlines = encodeStrings(headlines)
}

func (c *ContextSnapshot) SocialKeywordList() []string { return decodeStrings(c.SocialKeywords) }

func (c *ContextSnapshot) SetSocialKeywords(keywords []string) {
	c.SocialKeywords = encodeStrings(keywords)
}

// LearningLog is the forensic record appended on every FINAL verdict. The
// engine never touches outcome/notes after insert; a human annotator does.
type LearningLog struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	Symbol        string `gorm:"column:symbol;index"`
	Decision      string `gorm:"column:decision"`
	Outcome       string `gorm:"column:outcome"`
	Notes         string `gorm:"column:notes"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
}

func (LearningLog) TableName() string { return "learning_logs" }

// Notification is the in-app notification row; push delivery is separate.
type Notification struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	Symbol        string `gorm:"column:symbol"`
	Category      string `gorm:"column:category"` // "SIGNAL" | "SYSTEM"
	Severity      string `gorm:"column:severity"` // "INFO" | "WARNING" | "CRITICAL"
	Title         string `gorm:"column:title"`
	Body          string `gorm:"column:body"`
	Tag           string `gorm:"column:tag"`
	Read          bool   `gorm:"column:read"`
	CreatedAtUnix int64  `gorm:"column:created_at;index"`
}

func (Notification) TableName() string { return "notifications" }

// MacroEvent is an upstream macro-calendar row deposited by the feed job.
type MacroEvent struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	Title         string `gorm:"column:title"`
	Currency      string `gorm:"column:currency"`
	Impact        string `gorm:"column:impact"`
	TimestampUnix int64  `gorm:"column:timestamp;index"`
	Previous      string `gorm:"column:previous"`
	Forecast      string `gorm:"column:forecast"`
	Actual        string `gorm:"column:actual"`
}

func (MacroEvent) TableName() string { return "macro_events" }

// NewsEvent is an upstream news row with a pre-computed sentiment score.
type NewsEvent struct {
	ID             int64   `gorm:"column:id;primaryKey"`
	Title          string  `gorm:"column:title"`
	Description    string  `gorm:"column:description"`
	URL            string  `gorm:"column:url"`
	Source         string  `gorm:"column:source"`
	PublishedAt    string  `gorm:"column:published_at"`
	SentimentScore float64 `gorm:"column:sentiment_score"`
	ImpactRating   string  `gorm:"column:impact_rating"`
	TimestampUnix  int64   `gorm:"column:timestamp;index"`
}

func (NewsEvent) TableName() string { return "news_events" }

// SocialSentiment is the most recent political/social sentiment scrape.
type SocialSentiment struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Score         float64        `gorm:"column:score"`
	Keywords      datatypes.JSON `gorm:"column:keywords;type:TEXT"`
	Fallback      bool           `gorm:"column:fallback"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (SocialSentiment) TableName() string { return "social_sentiment" }

func (s *SocialSentiment) KeywordList() []string { return decodeStrings(s.Keywords) }

func (s *SocialSentiment) SetKeywords(keywords []string) { s.Keywords = encodeStrings(keywords) }

// MarketTick holds the latest quote per symbol, used only for the volatility
// regime heuristic.
type MarketTick struct {
	ID              int64   `gorm:"column:id;primaryKey"`
	Symbol          string  `gorm:"column:symbol;uniqueIndex"`
	Price           float64 `gorm:"column:price"`
	Change          float64 `gorm:"column:change"`
	ChangePercent   float64 `gorm:"column:change_percent"`
	LastUpdatedUnix int64   `gorm:"column:last_updated"`
}

func (MarketTick) TableName() string { return "market_data" }

func decodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func encodeStrings(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}
