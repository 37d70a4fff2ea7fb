package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"heylon/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store implements every repository interface in heylon/internal/store on a
// single SQLite database.
type Store struct {
	db *gorm.DB
}

// Open initializes the database at path, running migrations. WAL keeps the
// webhook writer and HTTP readers from blocking each other.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: db path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	return open(dsn)
}

// OpenMemory opens an in-memory database. Tests use this.
func OpenMemory() (*Store, error) {
	return open("file::memory:?cache=shared")
}

func open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	models := []interface{}{
		&model.RawEvent{},
		&model.Signal{},
		&model.DecisionState{},
		&model.ContextSnapshot{},
		&model.LearningLog{},
		&model.Notification{},
		&model.MacroEvent{},
		&model.NewsEvent{},
		&model.SocialSentiment{},
		&model.MarketTick{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// --------------------- Raw events -------------------------

func (s *Store) InsertRawEvent(ctx context.Context, rec *model.RawEvent) error {
	if rec == nil {
		return nil
	}
	if rec.ReceivedAt == 0 {
		rec.ReceivedAt = nowMillis()
	}
	if rec.CreatedAtUnix == 0 {
		rec.CreatedAtUnix = rec.ReceivedAt
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) GetRawEvent(ctx context.Context, id string) (*model.RawEvent, error) {
	var rec model.RawEvent
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) MarkProcessed(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Model(&model.RawEvent{}).
		Where("id = ?", id).
		Update("processed", true).Error
}

// --------------------- Signals -------------------------

func (s *Store) InsertSignal(ctx context.Context, rec *model.Signal) error {
	if rec == nil {
		return nil
	}
	if rec.CreatedAtUnix == 0 {
		rec.CreatedAtUnix = nowMillis()
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) LatestSignalSince(ctx context.Context, symbol, signalType string, since time.Time) (*model.Signal, error) {
	var rec model.Signal
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND type = ? AND created_at >= ?", symbol, signalType, since.UnixMilli()).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) RecentSignals(ctx context.Context, symbol string, limit int) ([]model.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []model.Signal
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
