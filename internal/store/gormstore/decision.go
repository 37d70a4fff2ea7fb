package gormstore

import (
	"context"
	"errors"

	"heylon/internal/store/model"

	"gorm.io/gorm"
)

const decisionDefaultExpiry = 24 * 60 * 60 * 1000 // ms

func (s *Store) GetDecision(ctx context.Context, symbol string) (*model.DecisionState, error) {
	var rec model.DecisionState
	err := s.db.WithContext(ctx).Where("symbol = ?", symbol).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) EnsureDecision(ctx context.Context, symbol string) (*model.DecisionState, error) {
	existing, err := s.GetDecision(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	now := nowMillis()
	rec := &model.DecisionState{
		Symbol:        symbol,
		Stage:         model.StageIdle,
		Decision:      model.DecisionIdle,
		Analysis:      "Initializing...",
		TriggerType:   model.TriggerNone,
		JuryConsensus: model.DecisionWait,
		ExpiryUnix:    now + decisionDefaultExpiry,
		UpdatedAtUnix: now,
	}
	rec.SetSupportingFactors(nil)
	rec.SetBlockingFactors(nil)
	rec.SetVoteMap(map[string]string{})
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// Mutate applies fn to the symbol's decision row inside a transaction. The
// version bump and updated_at stamp happen here so callers cannot forget them.
func (s *Store) Mutate(ctx context.Context, symbol string, fn func(*model.DecisionState) error) (*model.DecisionState, error) {
	var out *model.DecisionState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.DecisionState
		if err := tx.Where("symbol = ?", symbol).First(&rec).Error; err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
		rec.Version++
		rec.UpdatedAtUnix = nowMillis()
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		out = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListDecisions(ctx context.Context) ([]model.DecisionState, error) {
	var recs []model.DecisionState
	err := s.db.WithContext(ctx).Order("symbol").Find(&recs).Error
	return recs, err
}
