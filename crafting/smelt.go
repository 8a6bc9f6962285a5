package crafting

import (
	"context"
	"errors"
	"strings"

	"github.com/kyrhanu/ledger/metrics"
	"github.com/kyrhanu/ledger/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SmeltResult struct {
	RecipeCode string   `json:"recipe_code"`
	ItemCode   string   `json:"item_code"`
	ItemName   string   `json:"item_name,omitempty"`
	ItemKind   PoolKind `json:"item_kind"`
	Amount     int      `json:"amount"`
}

// StartSmelt converts a smelt recipe's inputs into its output in a single
// transaction: either everything is debited and credited, or nothing is.
func (svc *Service) StartSmelt(ctx context.Context, playerID int64, recipeCode string) (*SmeltResult, error) {
	start := svc.now()
	recipeCode = strings.TrimSpace(recipeCode)
	if recipeCode == "" {
		return nil, ErrInvalidRecipeCode
	}

	var out SmeltResult
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r model.SmeltRecipe
		err := tx.Where("code = ?", recipeCode).First(&r).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSmeltRecipeNotFound
		}
		if err != nil {
			return err
		}
		ings, err := smeltIngredientsTx(tx, recipeCode)
		if err != nil {
			return err
		}
		if _, err := svc.deductTx(tx, playerID, ings); err != nil {
			return err
		}

		out = SmeltResult{RecipeCode: recipeCode, ItemCode: r.OutputItemCode, Amount: outputAmount(r.OutputAmount)}
		if out.ItemKind, err = svc.creditTx(tx, playerID, out.ItemCode, out.Amount); err != nil {
			return err
		}
		if idx, err := resolveCodes(tx, []string{out.ItemCode}); err == nil {
			out.ItemName = idx[out.ItemCode].Name
		}
		return svc.spendTx(tx, playerID, svc.opts.SmeltEnergyCost)
	})
	req := map[string]string{"recipe_code": recipeCode}
	if err != nil {
		svc.record(ctx, start, playerID, "smelt", req, nil, err)
		return nil, err
	}

	svc.bump(ctx, playerID, metrics.SmeltBlacksmithCount)
	svc.logger.Info("smelt done",
		zap.Int64("player_id", playerID),
		zap.String("recipe", recipeCode),
		zap.String("item_code", out.ItemCode),
		zap.Int("amount", out.Amount))
	svc.record(ctx, start, playerID, "smelt", req, out, nil)
	return &out, nil
}
