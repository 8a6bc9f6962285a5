// Package catalog loads item, material and recipe content into the store.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kyrhanu/ledger/model"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed is a catalog file: definitions plus forge and smelt recipes.
type Seed struct {
	Items        []ItemSeed        `yaml:"items"`
	Materials    []MaterialSeed    `yaml:"materials"`
	ForgeRecipes []ForgeRecipeSeed `yaml:"forge_recipes"`
	SmeltRecipes []SmeltRecipeSeed `yaml:"smelt_recipes"`
}

type ItemSeed struct {
	Code        string                 `yaml:"code"`
	Name        string                 `yaml:"name"`
	Category    string                 `yaml:"category"`
	Emoji       string                 `yaml:"emoji"`
	Rarity      string                 `yaml:"rarity"`
	Description string                 `yaml:"description"`
	Slot        string                 `yaml:"slot"`
	Stats       map[string]interface{} `yaml:"stats"`
	Atk         int                    `yaml:"atk"`
	Defense     int                    `yaml:"defense"`
	HP          int                    `yaml:"hp"`
	MP          int                    `yaml:"mp"`
	Weight      int                    `yaml:"weight"`
	Stackable   bool                   `yaml:"stackable"`
}

type MaterialSeed struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	Profession string `yaml:"profession"`
	SourceType string `yaml:"source_type"`
	Rarity     string `yaml:"rarity"`
	Descr      string `yaml:"descr"`
}

type IngredientSeed struct {
	Code string `yaml:"code"`
	Qty  int    `yaml:"qty"`
	Role string `yaml:"role"`
}

type ForgeRecipeSeed struct {
	Code               string           `yaml:"code"`
	Name               string           `yaml:"name"`
	Slot               string           `yaml:"slot"`
	LevelReq           int              `yaml:"level_req"`
	ForgeHits          int              `yaml:"forge_hits"`
	BaseProgressPerHit float64          `yaml:"base_progress_per_hit"`
	HeatSensitivity    float64          `yaml:"heat_sensitivity"`
	RhythmMinMs        int              `yaml:"rhythm_min_ms"`
	RhythmMaxMs        int              `yaml:"rhythm_max_ms"`
	OutputItemCode     string           `yaml:"output_item_code"`
	OutputAmount       int              `yaml:"output_amount"`
	Ingredients        []IngredientSeed `yaml:"ingredients"`
}

type SmeltRecipeSeed struct {
	Code           string           `yaml:"code"`
	Name           string           `yaml:"name"`
	OutputItemCode string           `yaml:"output_item_code"`
	OutputAmount   int              `yaml:"output_amount"`
	Ingredients    []IngredientSeed `yaml:"ingredients"`
}

// LoadSeed reads and validates a YAML catalog file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates YAML catalog content.
func Parse(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Seed) validate() error {
	check := func(kind string, codes []string) error {
		seen := make(map[string]bool, len(codes))
		for i, c := range codes {
			if c == "" {
				return fmt.Errorf("catalog: %s #%d has no code", kind, i+1)
			}
			if seen[c] {
				return fmt.Errorf("catalog: duplicate %s %q", kind, c)
			}
			seen[c] = true
		}
		return nil
	}
	var items, mats, forge, smelt []string
	for _, it := range s.Items {
		items = append(items, it.Code)
	}
	for _, m := range s.Materials {
		mats = append(mats, m.Code)
	}
	for _, r := range s.ForgeRecipes {
		forge = append(forge, r.Code)
		if r.OutputItemCode == "" {
			return fmt.Errorf("catalog: forge recipe %q has no output", r.Code)
		}
		if err := checkIngredients(r.Code, r.Ingredients); err != nil {
			return err
		}
	}
	for _, r := range s.SmeltRecipes {
		smelt = append(smelt, r.Code)
		if r.OutputItemCode == "" {
			return fmt.Errorf("catalog: smelt recipe %q has no output", r.Code)
		}
		if err := checkIngredients(r.Code, r.Ingredients); err != nil {
			return err
		}
	}
	for kind, codes := range map[string][]string{"item": items, "material": mats, "forge recipe": forge, "smelt recipe": smelt} {
		if err := check(kind, codes); err != nil {
			return err
		}
	}
	return nil
}

func checkIngredients(recipe string, ings []IngredientSeed) error {
	for _, ing := range ings {
		if ing.Code == "" || ing.Qty <= 0 {
			return fmt.Errorf("catalog: recipe %q has an invalid ingredient", recipe)
		}
	}
	return nil
}

// Apply writes the seed in one transaction. Definitions are upserted by code
// and each listed recipe's ingredient lines are replaced.
func Apply(ctx context.Context, db *gorm.DB, s *Seed) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range s.Items {
			row, err := it.row()
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "category", "emoji", "rarity", "description", "slot",
					"stats", "atk", "defense", "hp", "mp", "weight", "stackable", "updated_at",
				}),
			}).Create(row).Error; err != nil {
				return fmt.Errorf("catalog: item %s: %w", it.Code, err)
			}
		}
		for _, m := range s.Materials {
			row := &model.Material{Code: m.Code, Name: m.Name, Profession: m.Profession,
				SourceType: m.SourceType, Rarity: m.Rarity, Descr: m.Descr}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "profession", "source_type", "rarity", "descr"}),
			}).Create(row).Error; err != nil {
				return fmt.Errorf("catalog: material %s: %w", m.Code, err)
			}
		}
		for _, r := range s.ForgeRecipes {
			if err := applyForge(tx, r); err != nil {
				return err
			}
		}
		for _, r := range s.SmeltRecipes {
			if err := applySmelt(tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (it ItemSeed) row() (*model.Item, error) {
	stats := datatypes.JSON("{}")
	if len(it.Stats) > 0 {
		b, err := json.Marshal(it.Stats)
		if err != nil {
			return nil, fmt.Errorf("catalog: item %s stats: %w", it.Code, err)
		}
		stats = b
	}
	return &model.Item{
		Code: it.Code, Name: it.Name, Category: it.Category, Emoji: it.Emoji,
		Rarity: it.Rarity, Description: it.Description, Slot: it.Slot, Stats: stats,
		Atk: it.Atk, Defense: it.Defense, HP: it.HP, MP: it.MP, Weight: it.Weight,
		Stackable: it.Stackable,
	}, nil
}

func applyForge(tx *gorm.DB, r ForgeRecipeSeed) error {
	row := &model.ForgeRecipe{
		Code: r.Code, Name: r.Name, Slot: r.Slot, LevelReq: r.LevelReq,
		ForgeHits: r.ForgeHits, BaseProgressPerHit: r.BaseProgressPerHit,
		HeatSensitivity: r.HeatSensitivity, RhythmMinMs: r.RhythmMinMs, RhythmMaxMs: r.RhythmMaxMs,
		OutputItemCode: r.OutputItemCode, OutputAmount: r.OutputAmount,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "slot", "level_req", "forge_hits", "base_progress_per_hit", "heat_sensitivity",
			"rhythm_min_ms", "rhythm_max_ms", "output_item_code", "output_amount", "updated_at",
		}),
	}).Create(row).Error; err != nil {
		return fmt.Errorf("catalog: forge recipe %s: %w", r.Code, err)
	}
	if err := tx.Where("recipe_code = ?", r.Code).Delete(&model.ForgeIngredient{}).Error; err != nil {
		return err
	}
	if len(r.Ingredients) == 0 {
		return nil
	}
	ings := make([]model.ForgeIngredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ings[i] = model.ForgeIngredient{RecipeCode: r.Code, InputCode: ing.Code, Qty: ing.Qty, Role: roleOr(ing.Role, "metal")}
	}
	return tx.Create(&ings).Error
}

func applySmelt(tx *gorm.DB, r SmeltRecipeSeed) error {
	row := &model.SmeltRecipe{Code: r.Code, Name: r.Name, OutputItemCode: r.OutputItemCode, OutputAmount: r.OutputAmount}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "output_item_code", "output_amount", "updated_at"}),
	}).Create(row).Error; err != nil {
		return fmt.Errorf("catalog: smelt recipe %s: %w", r.Code, err)
	}
	if err := tx.Where("recipe_code = ?", r.Code).Delete(&model.SmeltIngredient{}).Error; err != nil {
		return err
	}
	if len(r.Ingredients) == 0 {
		return nil
	}
	ings := make([]model.SmeltIngredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ings[i] = model.SmeltIngredient{RecipeCode: r.Code, MaterialCode: ing.Code, Qty: ing.Qty, Role: roleOr(ing.Role, "ore")}
	}
	return tx.Create(&ings).Error
}

func roleOr(role, def string) string {
	if role == "" {
		return def
	}
	return role
}
