package model

import (
	"time"

	"gorm.io/datatypes"
)

// Item is a catalog entry for anything that can sit in a player's inventory.
// Slot is empty for items that can never be equipped.
type Item struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string         `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Name        string         `gorm:"size:128" json:"name"`
	Category    string         `gorm:"size:32" json:"category"`
	Emoji       string         `gorm:"size:16" json:"emoji"`
	Rarity      string         `gorm:"size:32" json:"rarity"`
	Description string         `gorm:"type:text" json:"description"`
	Slot        string         `gorm:"size:32" json:"slot"`
	Stats       datatypes.JSON `json:"stats"`
	Atk         int            `gorm:"default:0" json:"atk"`
	Defense     int            `gorm:"default:0" json:"defense"`
	HP          int            `gorm:"default:0" json:"hp"`
	MP          int            `gorm:"default:0" json:"mp"`
	Weight      int            `gorm:"default:0" json:"weight"`
	Stackable   bool           `gorm:"default:false" json:"stackable"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// Material is a craft-only resource. Its code may collide with an Item code;
// crafting resolves such collisions in favour of the material.
type Material struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code       string    `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Name       string    `gorm:"size:128" json:"name"`
	Profession string    `gorm:"size:32" json:"profession"`
	SourceType string    `gorm:"size:32" json:"source_type"`
	Rarity     string    `gorm:"size:32" json:"rarity"`
	Descr      string    `gorm:"type:text" json:"descr"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Material) TableName() string { return "craft_materials" }
