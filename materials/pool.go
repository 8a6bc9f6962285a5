// Package materials keeps the per-player craft material balances.
package materials

import (
	"context"
	"fmt"
	"time"

	"github.com/kyrhanu/ledger/apperr"
	"github.com/kyrhanu/ledger/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidQuantity = apperr.New(apperr.Validation, "INVALID_QUANTITY")
	ErrNotEnough       = apperr.New(apperr.Conflict, "NOT_ENOUGH_MATERIAL")
)

// Balance is a material the player holds, with its catalog data.
type Balance struct {
	MaterialID int64  `json:"material_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Profession string `json:"profession"`
	Rarity     string `json:"rarity"`
	Qty        int    `json:"qty"`
}

// Service reads and mutates player_materials.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// AddTx increments the player's balance of materialID, creating the row if needed.
func (svc *Service) AddTx(tx *gorm.DB, playerID, materialID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	row := model.MaterialBalance{PlayerID: playerID, MaterialID: materialID, Qty: qty}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "material_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"qty":        gorm.Expr("player_materials.qty + ?", qty),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		svc.logger.Warn("material add failed",
			zap.Int64("player_id", playerID), zap.Int64("material_id", materialID),
			zap.Int("qty", qty), zap.Error(err))
		return fmt.Errorf("materials: add %d: %w", materialID, err)
	}
	return nil
}

// DeductTx takes qty of materialID under a row lock and deletes the row at zero.
func (svc *Service) DeductTx(tx *gorm.DB, playerID, materialID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	var rows []model.MaterialBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("player_id = ? AND material_id = ?", playerID, materialID).
		Limit(1).Find(&rows).Error
	if err != nil {
		return fmt.Errorf("materials: lock %d: %w", materialID, err)
	}
	if len(rows) == 0 || rows[0].Qty < qty {
		have := 0
		if len(rows) > 0 {
			have = rows[0].Qty
		}
		svc.logger.Debug("material short under lock",
			zap.Int64("player_id", playerID), zap.Int64("material_id", materialID),
			zap.Int("need", qty), zap.Int("have", have))
		return ErrNotEnough
	}
	row := rows[0]
	if row.Qty == qty {
		err = tx.Delete(&model.MaterialBalance{}, row.ID).Error
	} else {
		err = tx.Model(&model.MaterialBalance{}).Where("id = ?", row.ID).
			Update("qty", row.Qty-qty).Error
	}
	if err != nil {
		svc.logger.Warn("material deduct failed",
			zap.Int64("player_id", playerID), zap.Int64("material_id", materialID), zap.Error(err))
		return fmt.Errorf("materials: deduct %d: %w", materialID, err)
	}
	return nil
}

// AvailableTx returns the player's balance per material id.
func (svc *Service) AvailableTx(tx *gorm.DB, playerID int64, materialIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(materialIDs))
	if len(materialIDs) == 0 {
		return out, nil
	}
	var rows []model.MaterialBalance
	err := tx.Where("player_id = ? AND material_id IN ?", playerID, materialIDs).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("materials: available: %w", err)
	}
	for _, r := range rows {
		out[r.MaterialID] = r.Qty
	}
	return out, nil
}

// List returns every material the player holds, by name.
func (svc *Service) List(ctx context.Context, playerID int64) ([]Balance, error) {
	var out []Balance
	err := svc.db.WithContext(ctx).Table("player_materials AS pm").
		Select("pm.material_id, m.code, m.name, m.profession, m.rarity, pm.qty").
		Joins("JOIN craft_materials m ON m.id = pm.material_id").
		Where("pm.player_id = ? AND pm.qty > 0", playerID).
		Order("m.name, m.code").
		Scan(&out).Error
	return out, err
}

// ByCode loads catalog rows for the given codes, keyed by code.
func ByCode(tx *gorm.DB, codes []string) (map[string]model.Material, error) {
	out := make(map[string]model.Material, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var mats []model.Material
	if err := tx.Where("code IN ?", codes).Find(&mats).Error; err != nil {
		return nil, err
	}
	for _, m := range mats {
		out[m.Code] = m
	}
	return out, nil
}
