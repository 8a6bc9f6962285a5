package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kyrhanu/ledger/energy"
	"github.com/kyrhanu/ledger/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxConsume bounds how many units one Consume call may use.
const MaxConsume = 50

// EnergyNormalizer brings a player's energy up to date inside a transaction.
type EnergyNormalizer interface {
	NormalizeTx(tx *gorm.DB, playerID int64) (energy.State, error)
}

// Service owns the player_inventory table and lazily maintains the items catalog.
type Service struct {
	db     *gorm.DB
	energy EnergyNormalizer
	logger *zap.Logger
}

// NewService creates a new inventory Service. en may be nil, in which case
// consuming reads the stored energy as-is.
func NewService(db *gorm.DB, en EnergyNormalizer, logger *zap.Logger) *Service {
	return &Service{db: db, energy: en, logger: logger}
}

// Grant gives qty units of code to the player, creating the catalog row if needed.
func (svc *Service) Grant(ctx context.Context, playerID int64, code string, qty int, meta ItemMeta) (*model.Item, error) {
	var it *model.Item
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		it, err = svc.GrantTx(tx, playerID, code, qty, meta)
		return err
	})
	return it, err
}

// GrantTx is Grant inside a caller-owned transaction.
// Stackable slot-less items are upserted into the player's single stack row;
// everything else gets qty separate rows tagged with the item's slot.
func (svc *Service) GrantTx(tx *gorm.DB, playerID int64, code string, qty int, meta ItemMeta) (*model.Item, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	it, err := svc.EnsureItemTx(tx, code, meta)
	if err != nil {
		return nil, err
	}

	if !instanceTracked(it) {
		key := it.ID
		row := model.InventoryRow{PlayerID: playerID, ItemID: it.ID, Qty: qty, StackKey: &key}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}, {Name: "stack_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"qty":        gorm.Expr("player_inventory.qty + ?", qty),
				"updated_at": time.Now(),
			}),
		}).Create(&row).Error
		if err != nil {
			return nil, fmt.Errorf("inventory: upsert stack: %w", err)
		}
		return it, nil
	}

	slot := normalizeSlot(it.Slot)
	if slot == "" {
		return nil, ErrNoSlot
	}
	rows := make([]model.InventoryRow, qty)
	for i := range rows {
		rows[i] = model.InventoryRow{PlayerID: playerID, ItemID: it.ID, Qty: 1, Slot: slot}
	}
	if err := tx.Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("inventory: insert units: %w", err)
	}
	return it, nil
}

// EnsureItemTx returns the catalog row for code, creating it from meta when
// missing and backfilling any empty descriptive fields when present.
func (svc *Service) EnsureItemTx(tx *gorm.DB, code string, meta ItemMeta) (*model.Item, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidItemCode
	}

	var it model.Item
	err := tx.Where("code = ?", code).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := meta.newItem(code)
		if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
			Create(fresh).Error; err != nil {
			return nil, fmt.Errorf("inventory: create item %s: %w", code, err)
		}
		svc.logger.Info("item auto-created",
			zap.String("code", code),
			zap.String("category", fresh.Category),
			zap.Bool("stackable", fresh.Stackable))
		err = tx.Where("code = ?", code).First(&it).Error
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: load item %s: %w", code, err)
	}

	if updates := meta.patch(&it); len(updates) > 0 {
		if err := tx.Model(&model.Item{}).Where("id = ?", it.ID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("inventory: backfill item %s: %w", code, err)
		}
	}
	return &it, nil
}

// Equip puts the player's row rowID into its slot, displacing whatever was there.
func (svc *Service) Equip(ctx context.Context, playerID, rowID int64) error {
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockRow(tx, playerID, rowID)
		if err != nil {
			return err
		}
		if row.Qty != 1 {
			return ErrCannotEquipStack
		}
		var it model.Item
		if err := tx.First(&it, row.ItemID).Error; err != nil {
			return fmt.Errorf("inventory: load item %d: %w", row.ItemID, err)
		}
		slot := normalizeSlot(it.Slot)
		if slot == "" {
			slot = normalizeSlot(row.Slot)
		}
		if slot == "" {
			return ErrNoSlot
		}

		var cur model.InventoryRow
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("player_id = ? AND equip_key = ?", playerID, slot).
			Limit(1).Find(&cur).Error
		if err != nil {
			return err
		}
		if cur.ID == row.ID {
			return nil
		}
		if cur.ID != 0 {
			if err := tx.Model(&model.InventoryRow{}).Where("id = ?", cur.ID).
				Updates(map[string]interface{}{"is_equipped": false, "equip_key": nil}).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.InventoryRow{}).Where("id = ?", row.ID).
			Updates(map[string]interface{}{
				"is_equipped": true,
				"slot":        slot,
				"equip_key":   slot,
				"stack_key":   nil,
			}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlotBusy
	}
	return err
}

// Unequip clears the equipped flag on rowID. The slot tag stays on the row.
func (svc *Service) Unequip(ctx context.Context, playerID, rowID int64) error {
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockRow(tx, playerID, rowID); err != nil {
			return err
		}
		return tx.Model(&model.InventoryRow{}).Where("id = ?", rowID).
			Updates(map[string]interface{}{"is_equipped": false, "equip_key": nil}).Error
	})
}

// UnequipSlot empties the player's slot, if anything occupies it.
func (svc *Service) UnequipSlot(ctx context.Context, playerID int64, slot string) error {
	slot = normalizeSlot(slot)
	if slot == "" {
		return ErrInvalidSlot
	}
	return svc.db.WithContext(ctx).Model(&model.InventoryRow{}).
		Where("player_id = ? AND equip_key = ?", playerID, slot).
		Updates(map[string]interface{}{"is_equipped": false, "equip_key": nil}).Error
}

// ConsumeResult reports what a Consume call used and the player's resources afterwards.
type ConsumeResult struct {
	UsedQty      int `json:"used_qty"`
	RemainingQty int `json:"remaining_qty"`
	HP           int `json:"hp"`
	HPMax        int `json:"hp_max"`
	MP           int `json:"mp"`
	MPMax        int `json:"mp_max"`
	Energy       int `json:"energy"`
	EnergyMax    int `json:"energy_max"`
}

// Consume uses up to want units (clamped to [1, MaxConsume]) of rowID and
// applies the item's restoration to the player, capped at each maximum.
func (svc *Service) Consume(ctx context.Context, playerID, rowID int64, want int) (*ConsumeResult, error) {
	want = max(1, min(want, MaxConsume))

	var res ConsumeResult
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockRow(tx, playerID, rowID)
		if err != nil {
			return err
		}
		if row.IsEquipped || row.Slot != "" {
			return ErrItemNotUsable
		}
		if row.Qty <= 0 {
			return ErrNotEnoughQty
		}
		var it model.Item
		if err := tx.First(&it, row.ItemID).Error; err != nil {
			return fmt.Errorf("inventory: load item %d: %w", row.ItemID, err)
		}
		per := restoreOf(&it)
		if !consumableCategory(it.Category) && !per.nonzero() {
			return ErrItemNotUsable
		}

		used := min(row.Qty, want)
		res.UsedQty = used
		res.RemainingQty = row.Qty - used
		if res.RemainingQty == 0 {
			err = tx.Delete(&model.InventoryRow{}, row.ID).Error
		} else {
			err = tx.Model(&model.InventoryRow{}).Where("id = ?", row.ID).
				Update("qty", res.RemainingQty).Error
		}
		if err != nil {
			return err
		}

		if svc.energy != nil {
			if _, err := svc.energy.NormalizeTx(tx, playerID); err != nil {
				if errors.Is(err, energy.ErrPlayerNotFound) {
					return ErrPlayerNotFound
				}
				return err
			}
		}
		var p model.Player
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", playerID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlayerNotFound
		}
		if err != nil {
			return err
		}

		res.HPMax, res.MPMax, res.EnergyMax = p.HPMax, p.MPMax, p.EnergyMax
		res.HP = restore(p.HP, per.HP*used, p.HPMax)
		res.MP = restore(p.MP, per.MP*used, p.MPMax)
		res.Energy = restore(p.Energy, per.Energy*used, p.EnergyMax)
		return tx.Model(&model.Player{}).Where("id = ?", playerID).Updates(map[string]interface{}{
			"hp": res.HP, "mp": res.MP, "energy": res.Energy,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Debug("item consumed",
		zap.Int64("player_id", playerID),
		zap.Int64("row_id", rowID),
		zap.Int("used", res.UsedQty))
	return &res, nil
}

func restore(cur, gain, limit int) int {
	if gain <= 0 {
		return cur
	}
	return min(limit, cur+gain)
}

func lockRow(tx *gorm.DB, playerID, rowID int64) (*model.InventoryRow, error) {
	var row model.InventoryRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND player_id = ?", rowID, playerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
