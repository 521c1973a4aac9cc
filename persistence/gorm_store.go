package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionRecord is the database row for one session snapshot. The message
// logs are stored as a JSON blob: the database provides durability and
// lookup by ID, not queryability over individual messages.
type sessionRecord struct {
	ID        string    `gorm:"primaryKey;size:191"`
	Data      []byte    `gorm:"type:blob"`
	UpdatedAt time.Time `gorm:"index"`
}

func (sessionRecord) TableName() string { return "agent_sessions" }

// GormStore keeps session snapshots in a SQL database through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore runs the schema migration and wraps the given connection.
// The caller keeps ownership of the underlying connection pool.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, state SessionState) error {
	if state.ID == "" {
		return fmt.Errorf("persistence: session ID is empty")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", state.ID, err)
	}
	record := sessionRecord{
		ID:        state.ID,
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&record).Error
}

func (s *GormStore) Load(ctx context.Context, id string) (SessionState, error) {
	var record sessionRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionState{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionState{}, err
	}

	var state SessionState
	if err := json.Unmarshal(record.Data, &state); err != nil {
		return SessionState{}, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return state, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&sessionRecord{}, "id = ?", id).Error
}

func (s *GormStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&sessionRecord{}).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (s *GormStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
