package store

import (
	"context"
	"time"

	"heylon/internal/store/model"
)

// RawEventStore is the immutable webhook log.
type RawEventStore interface {
	InsertRawEvent(ctx context.Context, rec *model.RawEvent) error
	GetRawEvent(ctx context.Context, id string) (*model.RawEvent, error)
	MarkProcessed(ctx context.Context, id string) error
}

// SignalStore is the append-only normalized event stream.
type SignalStore interface {
	InsertSignal(ctx context.Context, rec *model.Signal) error
	// LatestSignalSince returns the newest signal for (symbol, type) created
	// at or after since, or nil. Used by the dedup window check.
	LatestSignalSince(ctx context.Context, symbol, signalType string, since time.Time) (*model.Signal, error)
	RecentSignals(ctx context.Context, symbol string, limit int) ([]model.Signal, error)
}

// DecisionStore owns the one-live-row-per-symbol decision state. Mutate runs
// fn inside a transaction; the store bumps Version and UpdatedAtUnix after fn
// returns, so concurrent writers on the same symbol serialize.
type DecisionStore interface {
	GetDecision(ctx context.Context, symbol string) (*model.DecisionState, error)
	// EnsureDecision returns the live row for symbol, creating an IDLE one if
	// none exists yet.
	EnsureDecision(ctx context.Context, symbol string) (*model.DecisionState, error)
	Mutate(ctx context.Context, symbol string, fn func(*model.DecisionState) error) (*model.DecisionState, error)
	ListDecisions(ctx context.Context) ([]model.DecisionState, error)
}

// ContextStore holds the time-boxed per-symbol snapshots.
type ContextStore interface {
	// ActiveSnapshot returns the snapshot for symbol with expires_at > now,
	// or nil when none is live.
	ActiveSnapshot(ctx context.Context, symbol string) (*model.ContextSnapshot, error)
	UpsertSnapshot(ctx context.Context, snap *model.ContextSnapshot) error
}

// LearningStore is the forensic log.
type LearningStore interface {
	AppendLearningLog(ctx context.Context, rec *model.LearningLog) error
	ListLearningLogs(ctx context.Context, symbol, outcome string, limit int) ([]model.LearningLog, error)
	UpdateLearningOutcome(ctx context.Context, id int64, outcome, notes string) error
}

// FeedStore receives upstream context rows and serves the aggregator's reads.
type FeedStore interface {
	InsertMacroEvents(ctx context.Context, events []model.MacroEvent) error
	MacroEventsBetween(ctx context.Context, from, to time.Time) ([]model.MacroEvent, error)
	InsertNewsEvents(ctx context.Context, events []model.NewsEvent) error
	NewsEventsSince(ctx context.Context, since time.Time) ([]model.NewsEvent, error)
	InsertSocialSentiment(ctx context.Context, rec *model.SocialSentiment) error
	LatestSocialSentiment(ctx context.Context) (*model.SocialSentiment, error)
	UpsertMarketTick(ctx context.Context, tick *model.MarketTick) error
	LatestMarketTick(ctx context.Context, symbol string) (*model.MarketTick, error)
}

// NotificationStore holds the in-app notification feed.
type NotificationStore interface {
	InsertNotification(ctx context.Context, rec *model.Notification) error
	RecentNotifications(ctx context.Context, limit int) ([]model.Notification, error)
}
