package model

import "time"

// InventoryRow is one owned stack or one owned instance.
//
// StackKey is set only on the single unequipped stack row of a stackable,
// slot-less item; EquipKey is set only while the row is equipped. Both are
// unique per player, and NULLs never collide, which lets the database itself
// reject a second stack row or a second item in the same slot.
type InventoryRow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID   int64     `gorm:"index:idx_inv_player;uniqueIndex:uq_inv_stack,priority:1;uniqueIndex:uq_inv_equip,priority:1;not null" json:"player_id"`
	ItemID     int64     `gorm:"index:idx_inv_item;not null" json:"item_id"`
	Qty        int       `gorm:"not null;default:1" json:"qty"`
	IsEquipped bool      `gorm:"default:false" json:"is_equipped"`
	Slot       string    `gorm:"size:32" json:"slot"`
	StackKey   *int64    `gorm:"uniqueIndex:uq_inv_stack,priority:2" json:"-"`
	EquipKey   *string   `gorm:"size:32;uniqueIndex:uq_inv_equip,priority:2" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (InventoryRow) TableName() string { return "player_inventory" }

// MaterialBalance is a player's quantity of one craft material.
type MaterialBalance struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID   int64     `gorm:"uniqueIndex:uq_player_material,priority:1;not null" json:"player_id"`
	MaterialID int64     `gorm:"uniqueIndex:uq_player_material,priority:2;not null" json:"material_id"`
	Qty        int       `gorm:"not null" json:"qty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MaterialBalance) TableName() string { return "player_materials" }
