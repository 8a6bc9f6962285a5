package model

import "time"

// PlayerMetric is a named per-player counter (achievement progress and the like).
type PlayerMetric struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID  int64     `gorm:"uniqueIndex:uq_player_metric,priority:1;not null" json:"player_id"`
	Key       string    `gorm:"column:metric_key;uniqueIndex:uq_player_metric,priority:2;size:64;not null" json:"key"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PlayerMetric) TableName() string { return "player_metrics" }
