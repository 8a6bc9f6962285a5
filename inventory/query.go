package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kyrhanu/ledger/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one inventory row joined with its catalog data.
type Entry struct {
	ID          int64                  `json:"inv_id"`
	ItemID      int64                  `json:"item_id"`
	Code        string                 `json:"code"`
	Name        string                 `json:"name"`
	Emoji       string                 `json:"emoji"`
	Description string                 `json:"description"`
	Rarity      string                 `json:"rarity"`
	Category    string                 `json:"category"`
	Slot        string                 `json:"slot"`
	Qty         int                    `json:"qty"`
	IsEquipped  bool                   `json:"is_equipped"`
	Stats       map[string]interface{} `json:"stats"`
}

type entryRow struct {
	ID          int64
	ItemID      int64
	Qty         int
	IsEquipped  bool
	InvSlot     string
	Code        string
	Name        string
	Emoji       string
	Description string
	Rarity      string
	ItemSlot    string
	Category    string
	Stats       datatypes.JSON
	Atk         int
	Defense     int
	HP          int
	MP          int
	Weight      int
}

func (r entryRow) entry() Entry {
	it := model.Item{Stats: r.Stats, Atk: r.Atk, Defense: r.Defense, HP: r.HP, MP: r.MP, Weight: r.Weight}
	slot := r.InvSlot
	if slot == "" {
		slot = r.ItemSlot
	}
	return Entry{
		ID: r.ID, ItemID: r.ItemID, Code: r.Code, Name: r.Name, Emoji: r.Emoji,
		Description: r.Description, Rarity: r.Rarity, Category: r.Category,
		Slot: slot, Qty: r.Qty, IsEquipped: r.IsEquipped, Stats: DisplayStats(&it),
	}
}

const entryColumns = `pi.id, pi.item_id, pi.qty, pi.is_equipped, pi.slot AS inv_slot,
	i.code, i.name, i.emoji, i.description, i.rarity, i.slot AS item_slot, i.category,
	i.stats, i.atk, i.defense, i.hp, i.mp, i.weight`

func (svc *Service) entries(ctx context.Context) *gorm.DB {
	return svc.db.WithContext(ctx).Table("player_inventory AS pi").
		Select(entryColumns).
		Joins("JOIN items i ON i.id = pi.item_id")
}

// List returns the player's rows: equipped first, then by rarity (unset last), then name.
func (svc *Service) List(ctx context.Context, playerID int64) ([]Entry, error) {
	var rows []entryRow
	err := svc.entries(ctx).Where("pi.player_id = ?", playerID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(a, b int) bool {
		ra, rb := rows[a], rows[b]
		if ra.IsEquipped != rb.IsEquipped {
			return ra.IsEquipped
		}
		if (ra.Rarity == "") != (rb.Rarity == "") {
			return rb.Rarity == ""
		}
		if ra.Rarity != rb.Rarity {
			return ra.Rarity < rb.Rarity
		}
		if ra.Name != rb.Name {
			return ra.Name < rb.Name
		}
		return ra.ID < rb.ID
	})
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out, nil
}

// Get returns one of the player's rows.
func (svc *Service) Get(ctx context.Context, playerID, rowID int64) (*Entry, error) {
	var rows []entryRow
	err := svc.entries(ctx).Where("pi.id = ? AND pi.player_id = ?", rowID, playerID).
		Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrItemNotFound
	}
	e := rows[0].entry()
	return &e, nil
}

// AvailableTx sums the player's unequipped quantity per item id.
// Ids the player does not hold are absent from the result.
func (svc *Service) AvailableTx(tx *gorm.DB, playerID int64, itemIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	var sums []struct {
		ItemID int64
		Total  int
	}
	err := tx.Model(&model.InventoryRow{}).
		Select("item_id, SUM(qty) AS total").
		Where("player_id = ? AND item_id IN ? AND is_equipped = ?", playerID, itemIDs, false).
		Group("item_id").Scan(&sums).Error
	if err != nil {
		return nil, fmt.Errorf("inventory: available: %w", err)
	}
	for _, s := range sums {
		out[s.ItemID] = s.Total
	}
	return out, nil
}

// DeductTx removes qty units of itemID from the player's unequipped rows,
// oldest first, under row locks. Rows that reach zero are deleted.
func (svc *Service) DeductTx(tx *gorm.DB, playerID, itemID int64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	var rows []model.InventoryRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("player_id = ? AND item_id = ? AND is_equipped = ?", playerID, itemID, false).
		Order("id").Find(&rows).Error
	if err != nil {
		return fmt.Errorf("inventory: lock rows: %w", err)
	}

	left := qty
	for _, row := range rows {
		if left == 0 {
			break
		}
		take := min(row.Qty, left)
		if take == row.Qty {
			err = tx.Delete(&model.InventoryRow{}, row.ID).Error
		} else {
			err = tx.Model(&model.InventoryRow{}).Where("id = ?", row.ID).
				Update("qty", row.Qty-take).Error
		}
		if err != nil {
			return fmt.Errorf("inventory: deduct row %d: %w", row.ID, err)
		}
		left -= take
	}
	if left > 0 {
		return ErrNotEnoughQty
	}
	return nil
}

// ItemsByCode loads catalog rows for the given codes, keyed by code.
func ItemsByCode(tx *gorm.DB, codes []string) (map[string]model.Item, error) {
	out := make(map[string]model.Item, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var items []model.Item
	if err := tx.Where("code IN ?", codes).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.Code] = it
	}
	return out, nil
}
