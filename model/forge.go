package model

import (
	"time"

	"gorm.io/datatypes"
)

// ForgeStatus is the lifecycle state of a ForgeSession.
type ForgeStatus = string

const (
	ForgeStarted   ForgeStatus = "started"
	ForgeClaimed   ForgeStatus = "claimed"
	ForgeCancelled ForgeStatus = "cancelled"
)

// ForgeSession is one in-progress equipment craft. Ingredients are deducted
// when it is created; Reserved records exactly what was taken so a cancel can
// give it back regardless of later recipe edits.
type ForgeSession struct {
	ID                 int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID           int64          `gorm:"index:idx_bsmith_forge_player,priority:1;not null" json:"player_id"`
	RecipeCode         string         `gorm:"size:64;not null" json:"recipe_code"`
	Status             string         `gorm:"size:16;index:idx_bsmith_forge_player,priority:2;not null;default:started" json:"status"`
	StartedAt          time.Time      `gorm:"not null" json:"started_at"`
	ClaimedAt          *time.Time     `json:"claimed_at"`
	CancelledAt        *time.Time     `json:"cancelled_at"`
	RequiredHits       int            `gorm:"not null" json:"required_hits"`
	BaseProgressPerHit float64        `gorm:"not null" json:"base_progress_per_hit"`
	HeatSensitivity    float64        `gorm:"not null" json:"heat_sensitivity"`
	RhythmMinMs        int            `gorm:"not null" json:"rhythm_min_ms"`
	RhythmMaxMs        int            `gorm:"not null" json:"rhythm_max_ms"`
	ClientHits         *int           `json:"client_hits"`
	ClientReport       datatypes.JSON `json:"client_report"`
	Reserved           datatypes.JSON `json:"reserved"`
}

func (ForgeSession) TableName() string { return "player_blacksmith_forge" }
