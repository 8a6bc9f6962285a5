package crafting

import (
	"strings"

	"github.com/kyrhanu/ledger/apperr"
)

var (
	ErrRecipesNotSeeded      = apperr.New(apperr.Unavailable, "RECIPES_NOT_SEEDED")
	ErrSmeltRecipesNotSeeded = apperr.New(apperr.Unavailable, "SMELT_RECIPES_NOT_SEEDED")
	ErrIngredientCodeUnknown = apperr.New(apperr.Integrity, "INGREDIENT_CODE_UNKNOWN")
	ErrNotEnoughIngredients  = apperr.New(apperr.Conflict, "NOT_ENOUGH_INGREDIENTS")
	ErrInvalidRecipeCode     = apperr.New(apperr.Validation, "INVALID_RECIPE_CODE")
	ErrInvalidReport         = apperr.New(apperr.Validation, "INVALID_CLIENT_REPORT")
	ErrRecipeNotFound        = apperr.New(apperr.NotFound, "RECIPE_NOT_FOUND")
	ErrSmeltRecipeNotFound   = apperr.New(apperr.NotFound, "SMELT_RECIPE_NOT_FOUND")
	ErrForgeNotFound         = apperr.New(apperr.NotFound, "FORGE_NOT_FOUND")
	ErrForgeNotYours         = apperr.New(apperr.Forbidden, "FORGE_NOT_YOURS")
	ErrForgeNotActive        = apperr.New(apperr.Conflict, "FORGE_NOT_ACTIVE")
	ErrRecipeMismatch        = apperr.New(apperr.Validation, "RECIPE_MISMATCH")
	ErrForgeTooFast          = apperr.New(apperr.Conflict, "FORGE_TOO_FAST")
	ErrNotEnoughHits         = apperr.New(apperr.Conflict, "NOT_ENOUGH_HITS")
)

// ShortfallError lists what the player lacks. It matches ErrNotEnoughIngredients.
type ShortfallError struct {
	Missing []Missing
}

func (e *ShortfallError) Error() string { return ErrNotEnoughIngredients.Code }

func (e *ShortfallError) Unwrap() error { return ErrNotEnoughIngredients }

// UnknownCodesError names ingredient codes found in neither catalog.
// It matches ErrIngredientCodeUnknown.
type UnknownCodesError struct {
	Codes []string
}

func (e *UnknownCodesError) Error() string {
	return ErrIngredientCodeUnknown.Code + ": " + strings.Join(e.Codes, ",")
}

func (e *UnknownCodesError) Unwrap() error { return ErrIngredientCodeUnknown }

// HitsError carries the hit count a claim needed. It matches ErrNotEnoughHits.
type HitsError struct {
	MinHits int
}

func (e *HitsError) Error() string { return ErrNotEnoughHits.Code }

func (e *HitsError) Unwrap() error { return ErrNotEnoughHits }
