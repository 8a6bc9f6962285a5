package crafting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kyrhanu/ledger/inventory"
	"github.com/kyrhanu/ledger/metrics"
	"github.com/kyrhanu/ledger/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForgeStart is a new session's id and the parameters the client plays with.
type ForgeStart struct {
	ForgeID            int64   `json:"forge_id"`
	RecipeCode         string  `json:"recipe_code"`
	RequiredHits       int     `json:"required_hits"`
	BaseProgressPerHit float64 `json:"base_progress_per_hit"`
	HeatSensitivity    float64 `json:"heat_sensitivity"`
	RhythmWindowMs     [2]int  `json:"rhythm_window_ms"`
}

type CancelResult struct {
	Refunded []Reservation `json:"refunded"`
}

type ClaimResult struct {
	ItemCode string   `json:"item_code"`
	Kind     PoolKind `json:"kind"`
	Amount   int      `json:"amount"`
}

// StartForge deducts the recipe's ingredients and opens a session, all in one
// transaction. The recipe's minigame parameters and the deducted amounts are
// copied onto the session.
func (svc *Service) StartForge(ctx context.Context, playerID int64, recipeCode string) (*ForgeStart, error) {
	start := svc.now()
	recipeCode = strings.TrimSpace(recipeCode)
	if recipeCode == "" {
		return nil, ErrInvalidRecipeCode
	}

	var sess model.ForgeSession
	var p forgeParams
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r model.ForgeRecipe
		err := tx.Where("code = ?", recipeCode).First(&r).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipeNotFound
		}
		if err != nil {
			return err
		}
		ings, err := forgeIngredientsTx(tx, recipeCode)
		if err != nil {
			return err
		}
		res, err := svc.deductTx(tx, playerID, ings)
		if err != nil {
			return err
		}
		if err := svc.spendTx(tx, playerID, svc.opts.ForgeEnergyCost); err != nil {
			return err
		}
		reserved, err := encodeReservations(res)
		if err != nil {
			return err
		}

		p = paramsOf(&r)
		sess = model.ForgeSession{
			PlayerID:           playerID,
			RecipeCode:         recipeCode,
			Status:             model.ForgeStarted,
			StartedAt:          svc.now(),
			RequiredHits:       p.Hits,
			BaseProgressPerHit: p.BasePerHit,
			HeatSensitivity:    p.Heat,
			RhythmMinMs:        p.RhythmMinMs,
			RhythmMaxMs:        p.RhythmMaxMs,
			Reserved:           reserved,
		}
		return tx.Create(&sess).Error
	})
	req := map[string]string{"recipe_code": recipeCode}
	if err != nil {
		svc.record(ctx, start, playerID, "forge_start", req, nil, err)
		return nil, err
	}

	out := &ForgeStart{
		ForgeID:            sess.ID,
		RecipeCode:         recipeCode,
		RequiredHits:       p.Hits,
		BaseProgressPerHit: p.BasePerHit,
		HeatSensitivity:    p.Heat,
		RhythmWindowMs:     [2]int{p.RhythmMinMs, p.RhythmMaxMs},
	}
	svc.logger.Info("forge started",
		zap.Int64("player_id", playerID),
		zap.String("recipe", recipeCode),
		zap.Int64("forge_id", sess.ID))
	svc.record(ctx, start, playerID, "forge_start", req, out, nil)
	return out, nil
}

// lockSession loads a started session owned by playerID for recipeCode.
func lockSession(tx *gorm.DB, playerID, forgeID int64, recipeCode string) (*model.ForgeSession, error) {
	var sess model.ForgeSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", forgeID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrForgeNotFound
	}
	if err != nil {
		return nil, err
	}
	switch {
	case sess.PlayerID != playerID:
		return nil, ErrForgeNotYours
	case sess.Status != model.ForgeStarted:
		return nil, ErrForgeNotActive
	case sess.RecipeCode != recipeCode:
		return nil, ErrRecipeMismatch
	}
	return &sess, nil
}

// CancelForge abandons a started session and returns exactly what its start
// deducted. The refund commits together with the status change.
func (svc *Service) CancelForge(ctx context.Context, playerID, forgeID int64, recipeCode string, report []byte) (*CancelResult, error) {
	start := svc.now()
	rep, err := ParseClientReport(report)
	if err != nil {
		return nil, err
	}

	var res []Reservation
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := lockSession(tx, playerID, forgeID, recipeCode)
		if err != nil {
			return err
		}
		if res, err = decodeReservations(sess.Reserved); err != nil {
			return fmt.Errorf("crafting: forge %d reservation: %w", forgeID, err)
		}
		now := svc.now()
		if err := tx.Model(&model.ForgeSession{}).Where("id = ?", forgeID).Updates(map[string]interface{}{
			"status":        model.ForgeCancelled,
			"cancelled_at":  now,
			"client_hits":   rep.Hits,
			"client_report": rep.Raw,
		}).Error; err != nil {
			return err
		}
		return svc.refundTx(tx, playerID, res)
	})
	req := map[string]interface{}{"forge_id": forgeID, "recipe_code": recipeCode}
	if err != nil {
		svc.record(ctx, start, playerID, "forge_cancel", req, nil, err)
		return nil, err
	}
	out := &CancelResult{Refunded: res}
	svc.logger.Info("forge cancelled",
		zap.Int64("player_id", playerID),
		zap.Int64("forge_id", forgeID),
		zap.Int("refunded_lines", len(res)))
	svc.record(ctx, start, playerID, "forge_cancel", req, out, nil)
	return out, nil
}

// ClaimForge completes a started session and grants the recipe's output.
// The claim is rejected when it comes too soon after the start or when the
// report's hit count is below the minimum; a report without hits skips that check.
// The output is granted after the claim commits, and a failed grant is only logged.
func (svc *Service) ClaimForge(ctx context.Context, playerID, forgeID int64, recipeCode string, report []byte) (*ClaimResult, error) {
	start := svc.now()
	rep, err := ParseClientReport(report)
	if err != nil {
		return nil, err
	}

	var out ClaimResult
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := lockSession(tx, playerID, forgeID, recipeCode)
		if err != nil {
			return err
		}
		var r model.ForgeRecipe
		err = tx.Where("code = ?", recipeCode).First(&r).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipeNotFound
		}
		if err != nil {
			return err
		}

		now := svc.now()
		if now.Sub(sess.StartedAt) < svc.opts.MinClaimElapsed {
			return ErrForgeTooFast
		}
		if rep.Hits != nil {
			if need := minHits(sess.RequiredHits, svc.opts.MinHitRatio); *rep.Hits < need {
				return &HitsError{MinHits: need}
			}
		}

		out = ClaimResult{ItemCode: r.OutputItemCode, Amount: outputAmount(r.OutputAmount)}
		return tx.Model(&model.ForgeSession{}).Where("id = ?", forgeID).Updates(map[string]interface{}{
			"status":        model.ForgeClaimed,
			"claimed_at":    now,
			"client_hits":   rep.Hits,
			"client_report": rep.Raw,
		}).Error
	})
	req := map[string]interface{}{"forge_id": forgeID, "recipe_code": recipeCode}
	if err != nil {
		svc.record(ctx, start, playerID, "forge_claim", req, nil, err)
		return nil, err
	}

	kind, err := svc.grantOutput(ctx, playerID, out.ItemCode, out.Amount)
	if err != nil {
		svc.logger.Error("forge output grant failed",
			zap.Int64("player_id", playerID),
			zap.Int64("forge_id", forgeID),
			zap.String("item_code", out.ItemCode),
			zap.Int("amount", out.Amount),
			zap.Error(err))
	}
	out.Kind = kind
	svc.bump(ctx, playerID, metrics.CraftBlacksmithCount)
	svc.logger.Info("forge claimed",
		zap.Int64("player_id", playerID),
		zap.Int64("forge_id", forgeID),
		zap.String("item_code", out.ItemCode))
	svc.record(ctx, start, playerID, "forge_claim", req, out, err)
	return &out, nil
}

// grantOutput credits amount of code in its own transaction.
func (svc *Service) grantOutput(ctx context.Context, playerID int64, code string, amount int) (PoolKind, error) {
	var kind PoolKind
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		kind, err = svc.creditTx(tx, playerID, code, amount)
		return err
	})
	return kind, err
}

// creditTx adds amount of code to the pool it resolves to. A code in neither
// catalog becomes a new item of category "mat".
func (svc *Service) creditTx(tx *gorm.DB, playerID int64, code string, amount int) (PoolKind, error) {
	idx, err := resolveCodes(tx, []string{code})
	if err != nil {
		return "", err
	}
	r, ok := idx[code]
	if p, isMat := r.Pool.(MaterialPool); ok && isMat {
		return KindMaterial, svc.mats.AddTx(tx, playerID, p.ID, amount)
	}
	meta := inventory.ItemMeta{}
	if !ok {
		meta = inventory.ItemMeta{Name: code, Category: "mat"}
	}
	if _, err := svc.inv.GrantTx(tx, playerID, code, amount, meta); err != nil {
		return "", err
	}
	return KindItem, nil
}
