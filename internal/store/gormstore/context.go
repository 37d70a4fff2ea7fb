package gormstore

import (
	"context"
	"errors"
	"time"

	"heylon/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --------------------- Context snapshots -------------------------

func (s *Store) ActiveSnapshot(ctx context.Context, symbol string) (*model.ContextSnapshot, error) {
	var rec model.ContextSnapshot
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND expires_at > ?", symbol, nowMillis()).
		Order("expires_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertSnapshot refreshes the live snapshot for the symbol in place when one
// exists, otherwise inserts. Expired rows stay behind; reads filter on
// expires_at.
func (s *Store) UpsertSnapshot(ctx context.Context, snap *model.ContextSnapshot) error {
	if snap == nil {
		return nil
	}
	if snap.CreatedAtUnix == 0 {
		snap.CreatedAtUnix = nowMillis()
	}
	existing, err := s.ActiveSnapshot(ctx, snap.Symbol)
	if err != nil {
		return err
	}
	if existing != nil {
		snap.ID = existing.ID
		return s.db.WithContext(ctx).Save(snap).Error
	}
	return s.db.WithContext(ctx).Create(snap).Error
}

// --------------------- Learning logs -------------------------

func (s *Store) AppendLearningLog(ctx context.Context, rec *model.LearningLog) error {
	if rec == nil {
		return nil
	}
	if rec.Outcome == "" {
		rec.Outcome = model.OutcomeNeutral
	}
	if rec.CreatedAtUnix == 0 {
		rec.CreatedAtUnix = nowMillis()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) ListLearningLogs(ctx context.Context, symbol, outcome string, limit int) ([]model.LearningLog, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Model(&model.LearningLog{})
	if symbol != "" && symbol != "ALL" {
		q = q.Where("symbol = ?", symbol)
	}
	if outcome != "" {
		q = q.Where("outcome = ?", outcome)
	}
	var recs []model.LearningLog
	err := q.Order("created_at DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

func (s *Store) UpdateLearningOutcome(ctx context.Context, id int64, outcome, notes string) error {
	return s.db.WithContext(ctx).
		Model(&model.LearningLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"outcome": outcome, "notes": notes}).Error
}

// --------------------- Feed rows -------------------------

func (s *Store) InsertMacroEvents(ctx context.Context, events []model.MacroEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&events).Error
}

func (s *Store) MacroEventsBetween(ctx context.Context, from, to time.Time) ([]model.MacroEvent, error) {
	var recs []model.MacroEvent
	err := s.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", from.UnixMilli(), to.UnixMilli()).
		Order("timestamp").
		Find(&recs).Error
	return recs, err
}

func (s *Store) InsertNewsEvents(ctx context.Context, events []model.NewsEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&events).Error
}

func (s *Store) NewsEventsSince(ctx context.Context, since time.Time) ([]model.NewsEvent, error) {
	var recs []model.NewsEvent
	err := s.db.WithContext(ctx).
		Where("timestamp >= ?", since.UnixMilli()).
		Order("timestamp DESC").
		Find(&recs).Error
	return recs, err
}

func (s *Store) InsertSocialSentiment(ctx context.Context, rec *model.SocialSentiment) error {
	if rec == nil {
		return nil
	}
	if rec.CreatedAtUnix == 0 {
		rec.CreatedAtUnix = nowMillis()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) LatestSocialSentiment(ctx context.Context) (*model.SocialSentiment, error) {
	var rec model.SocialSentiment
	err := s.db.WithContext(ctx).Order("created_at DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) UpsertMarketTick(ctx context.Context, tick *model.MarketTick) error {
	if tick == nil {
		return nil
	}
	if tick.LastUpdatedUnix == 0 {
		tick.LastUpdatedUnix = nowMillis()
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"price", "change", "change_percent", "last_updated",
			}),
		}).
		Create(tick).Error
}

func (s *Store) LatestMarketTick(ctx context.Context, symbol string) (*model.MarketTick, error) {
	var rec model.MarketTick
	err := s.db.WithContext(ctx).Where("symbol = ?", symbol).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// --------------------- Notifications -------------------------

func (s *Store) InsertNotification(ctx context.Context, rec *model.Notification) error {
	if rec == nil {
		return nil
	}
	if rec.CreatedAtUnix == 0 {
		rec.CreatedAtUnix = nowMillis()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) RecentNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []model.Notification
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&recs).Error
	return recs, err
}
