// Package metrics records per-player counters such as completed crafts.
package metrics

import (
	"context"
	"time"

	"github.com/kyrhanu/ledger/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	CraftBlacksmithCount = "craft_blacksmith_count"
	SmeltBlacksmithCount = "smelt_blacksmith_count"
)

// Sink receives counter increments. Callers treat failures as non-fatal.
type Sink interface {
	Inc(ctx context.Context, playerID int64, key string, delta int64) error
}

// Store keeps counters in the player_metrics table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Inc(ctx context.Context, playerID int64, key string, delta int64) error {
	row := model.PlayerMetric{PlayerID: playerID, Key: key, Value: delta}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "metric_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      gorm.Expr("player_metrics.value + ?", delta),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
}

// Get returns a counter's current value, zero if never incremented.
func (s *Store) Get(ctx context.Context, playerID int64, key string) (int64, error) {
	var rows []model.PlayerMetric
	err := s.db.WithContext(ctx).Where("player_id = ? AND metric_key = ?", playerID, key).
		Limit(1).Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return rows[0].Value, nil
}

// Nop discards every increment.
type Nop struct{}

func (Nop) Inc(context.Context, int64, string, int64) error { return nil }
