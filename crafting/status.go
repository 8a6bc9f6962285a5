package crafting

import (
	"context"
	"fmt"

	"github.com/kyrhanu/ledger/model"
	"gorm.io/gorm"
)

// IngredientView is an Ingredient labelled with its catalog name and pool.
type IngredientView struct {
	Ingredient
	Name string   `json:"name,omitempty"`
	Kind PoolKind `json:"kind,omitempty"`
}

// RecipeView is a forge recipe as shown to the player.
type RecipeView struct {
	Code               string           `json:"code"`
	Name               string           `json:"name"`
	Slot               string           `json:"slot"`
	LevelReq           int              `json:"level_req"`
	ForgeHits          int              `json:"forge_hits"`
	BaseProgressPerHit float64          `json:"base_progress_per_hit"`
	HeatSensitivity    float64          `json:"heat_sensitivity"`
	RhythmWindowMs     [2]int           `json:"rhythm_window_ms"`
	OutputItemCode     string           `json:"output_item_code"`
	OutputItemName     string           `json:"output_item_name,omitempty"`
	OutputItemKind     PoolKind         `json:"output_item_kind,omitempty"`
	OutputAmount       int              `json:"output_amount"`
	Ingredients        []IngredientView `json:"ingredients"`
}

type RecipeStatus struct {
	Recipe   RecipeView `json:"recipe"`
	CanForge bool       `json:"can_forge"`
	Missing  []Missing  `json:"missing"`
}

type SmeltRecipeView struct {
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	OutputItemCode string           `json:"output_item_code"`
	OutputItemName string           `json:"output_item_name,omitempty"`
	OutputItemKind PoolKind         `json:"output_item_kind,omitempty"`
	OutputAmount   int              `json:"output_amount"`
	Ingredients    []IngredientView `json:"ingredients"`
}

type SmeltStatus struct {
	Recipe   SmeltRecipeView `json:"recipe"`
	CanSmelt bool            `json:"can_smelt"`
	Missing  []Missing       `json:"missing"`
}

// forgeParams are a recipe's minigame parameters with defaults filled in.
type forgeParams struct {
	Hits        int
	BasePerHit  float64
	Heat        float64
	RhythmMinMs int
	RhythmMaxMs int
}

func paramsOf(r *model.ForgeRecipe) forgeParams {
	p := forgeParams{
		Hits: r.ForgeHits, BasePerHit: r.BaseProgressPerHit, Heat: r.HeatSensitivity,
		RhythmMinMs: r.RhythmMinMs, RhythmMaxMs: r.RhythmMaxMs,
	}
	if p.Hits <= 0 {
		p.Hits = 60
	}
	if p.BasePerHit <= 0 {
		p.BasePerHit = 1.0 / float64(p.Hits)
	}
	if p.Heat <= 0 {
		p.Heat = 0.65
	}
	if p.RhythmMinMs <= 0 {
		p.RhythmMinMs = 120
	}
	if p.RhythmMaxMs <= 0 {
		p.RhythmMaxMs = 220
	}
	return p
}

func outputAmount(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func forgeIngredientsTx(tx *gorm.DB, recipeCode string) ([]Ingredient, error) {
	var rows []model.ForgeIngredient
	if err := tx.Where("recipe_code = ?", recipeCode).Order("role, input_code").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Ingredient, len(rows))
	for i, r := range rows {
		out[i] = Ingredient{Code: r.InputCode, Qty: r.Qty, Role: r.Role}
	}
	return out, nil
}

func smeltIngredientsTx(tx *gorm.DB, recipeCode string) ([]Ingredient, error) {
	var rows []model.SmeltIngredient
	if err := tx.Where("recipe_code = ?", recipeCode).Order("role, material_code").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Ingredient, len(rows))
	for i, r := range rows {
		out[i] = Ingredient{Code: r.MaterialCode, Qty: r.Qty, Role: r.Role}
	}
	return out, nil
}

func decorate(ings []Ingredient, idx codeIndex) []IngredientView {
	out := make([]IngredientView, len(ings))
	for i, ing := range ings {
		out[i] = IngredientView{Ingredient: ing, Name: idx[ing.Code].Name, Kind: idx.kind(ing.Code)}
	}
	return out
}

// ForgeStatus lists every forge recipe with whether the player can start it.
func (svc *Service) ForgeStatus(ctx context.Context, playerID int64) ([]RecipeStatus, error) {
	db := svc.db.WithContext(ctx)
	var recipes []model.ForgeRecipe
	if err := db.Order("slot, level_req, name").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("crafting: load recipes: %w", err)
	}
	if len(recipes) == 0 {
		return nil, ErrRecipesNotSeeded
	}
	var rows []model.ForgeIngredient
	if err := db.Order("recipe_code, role, input_code").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("crafting: load ingredients: %w", err)
	}
	byRecipe := make(map[string][]Ingredient)
	var codes []string
	for _, r := range rows {
		byRecipe[r.RecipeCode] = append(byRecipe[r.RecipeCode], Ingredient{Code: r.InputCode, Qty: r.Qty, Role: r.Role})
		codes = append(codes, r.InputCode)
	}
	inputs := uniqueSorted(codes)
	for _, r := range recipes {
		codes = append(codes, r.OutputItemCode)
	}

	idx, err := resolveCodes(db, codes)
	if err != nil {
		return nil, fmt.Errorf("crafting: resolve codes: %w", err)
	}
	have, err := svc.balancesTx(db, playerID, idx, inputs)
	if err != nil {
		return nil, fmt.Errorf("crafting: balances: %w", err)
	}

	out := make([]RecipeStatus, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		p := paramsOf(r)
		ings := byRecipe[r.Code]
		miss := shortfall(ings, idx, have)
		out = append(out, RecipeStatus{
			Recipe: RecipeView{
				Code: r.Code, Name: r.Name, Slot: r.Slot, LevelReq: max(1, r.LevelReq),
				ForgeHits: p.Hits, BaseProgressPerHit: p.BasePerHit, HeatSensitivity: p.Heat,
				RhythmWindowMs: [2]int{p.RhythmMinMs, p.RhythmMaxMs},
				OutputItemCode: r.OutputItemCode, OutputItemName: idx[r.OutputItemCode].Name,
				OutputItemKind: idx.kind(r.OutputItemCode), OutputAmount: outputAmount(r.OutputAmount),
				Ingredients: decorate(ings, idx),
			},
			CanForge: len(miss) == 0,
			Missing:  nonNil(miss),
		})
	}
	return out, nil
}

// SmeltStatus lists every smelt recipe with whether the player can run it.
func (svc *Service) SmeltStatus(ctx context.Context, playerID int64) ([]SmeltStatus, error) {
	db := svc.db.WithContext(ctx)
	var recipes []model.SmeltRecipe
	if err := db.Order("name").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("crafting: load smelt recipes: %w", err)
	}
	if len(recipes) == 0 {
		return nil, ErrSmeltRecipesNotSeeded
	}
	var rows []model.SmeltIngredient
	if err := db.Order("recipe_code, role, material_code").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("crafting: load smelt ingredients: %w", err)
	}
	byRecipe := make(map[string][]Ingredient)
	var codes []string
	for _, r := range rows {
		byRecipe[r.RecipeCode] = append(byRecipe[r.RecipeCode], Ingredient{Code: r.MaterialCode, Qty: r.Qty, Role: r.Role})
		codes = append(codes, r.MaterialCode)
	}
	inputs := uniqueSorted(codes)
	for _, r := range recipes {
		codes = append(codes, r.OutputItemCode)
	}

	idx, err := resolveCodes(db, codes)
	if err != nil {
		return nil, fmt.Errorf("crafting: resolve codes: %w", err)
	}
	have, err := svc.balancesTx(db, playerID, idx, inputs)
	if err != nil {
		return nil, fmt.Errorf("crafting: balances: %w", err)
	}

	out := make([]SmeltStatus, 0, len(recipes))
	for _, r := range recipes {
		ings := byRecipe[r.Code]
		miss := shortfall(ings, idx, have)
		out = append(out, SmeltStatus{
			Recipe: SmeltRecipeView{
				Code: r.Code, Name: r.Name,
				OutputItemCode: r.OutputItemCode, OutputItemName: idx[r.OutputItemCode].Name,
				OutputItemKind: idx.kind(r.OutputItemCode), OutputAmount: outputAmount(r.OutputAmount),
				Ingredients: decorate(ings, idx),
			},
			CanSmelt: len(miss) == 0,
			Missing:  nonNil(miss),
		})
	}
	return out, nil
}

func nonNil(m []Missing) []Missing {
	if m == nil {
		return []Missing{}
	}
	return m
}
