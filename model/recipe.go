package model

import "time"

// ForgeRecipe is an equipment recipe played through the forge minigame.
type ForgeRecipe struct {
	Code               string    `gorm:"primaryKey;size:64" json:"code"`
	Name               string    `gorm:"size:128;not null" json:"name"`
	Slot               string    `gorm:"size:32;index:idx_bsmith_recipes_slot" json:"slot"`
	LevelReq           int       `gorm:"default:1" json:"level_req"`
	ForgeHits          int       `gorm:"default:60" json:"forge_hits"`
	BaseProgressPerHit float64   `json:"base_progress_per_hit"`
	HeatSensitivity    float64   `gorm:"default:0.65" json:"heat_sensitivity"`
	RhythmMinMs        int       `gorm:"default:120" json:"rhythm_min_ms"`
	RhythmMaxMs        int       `gorm:"default:220" json:"rhythm_max_ms"`
	OutputItemCode     string    `gorm:"size:64;not null" json:"output_item_code"`
	OutputAmount       int       `gorm:"default:1" json:"output_amount"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ForgeRecipe) TableName() string { return "blacksmith_recipes" }

// ForgeIngredient is one input line of a ForgeRecipe.
type ForgeIngredient struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipeCode string `gorm:"size:64;not null;uniqueIndex:uq_bsmith_ing,priority:1" json:"recipe_code"`
	InputCode  string `gorm:"size:64;not null;uniqueIndex:uq_bsmith_ing,priority:2" json:"input_code"`
	Qty        int    `gorm:"not null;default:1" json:"qty"`
	Role       string `gorm:"size:32;not null;default:metal;uniqueIndex:uq_bsmith_ing,priority:3" json:"role"`
}

func (ForgeIngredient) TableName() string { return "blacksmith_recipe_ingredients" }

// SmeltRecipe converts inputs to an output in one step.
type SmeltRecipe struct {
	Code           string    `gorm:"primaryKey;size:64" json:"code"`
	Name           string    `gorm:"size:128;not null" json:"name"`
	OutputItemCode string    `gorm:"size:64;not null" json:"output_item_code"`
	OutputAmount   int       `gorm:"default:1" json:"output_amount"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SmeltRecipe) TableName() string { return "blacksmith_smelt_recipes" }

type SmeltIngredient struct {
	RecipeCode   string `gorm:"primaryKey;size:64" json:"recipe_code"`
	MaterialCode string `gorm:"primaryKey;size:64" json:"material_code"`
	Role         string `gorm:"primaryKey;size:32;default:ore" json:"role"`
	Qty          int    `gorm:"not null;default:1" json:"qty"`
}

func (SmeltIngredient) TableName() string { return "blacksmith_smelt_ingredients" }
