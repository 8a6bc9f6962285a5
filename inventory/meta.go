package inventory

import (
	"strings"

	"github.com/kyrhanu/ledger/model"
	"gorm.io/datatypes"
)

// ItemMeta is caller-supplied descriptive data for a granted code. Every field
// is optional and only fills columns the catalog row has left empty.
type ItemMeta struct {
	Name        string
	Category    string
	Emoji       string
	Rarity      string
	Description string
	Slot        string
	Stats       datatypes.JSON
	Stackable   *bool
}

// newItem builds the catalog row for a code seen for the first time.
func (m ItemMeta) newItem(code string) *model.Item {
	it := &model.Item{
		Code:        code,
		Name:        strings.TrimSpace(m.Name),
		Category:    strings.TrimSpace(m.Category),
		Emoji:       strings.TrimSpace(m.Emoji),
		Rarity:      strings.TrimSpace(m.Rarity),
		Description: strings.TrimSpace(m.Description),
		Slot:        normalizeSlot(m.Slot),
		Stats:       m.Stats,
	}
	if it.Name == "" {
		it.Name = code
	}
	if emptyJSON(it.Stats) {
		it.Stats = datatypes.JSON("{}")
	}
	if m.Stackable != nil {
		it.Stackable = *m.Stackable
	} else {
		it.Stackable = stackableCategory(it.Category)
	}
	return it
}

// patch fills the empty fields of it from m and returns the changed columns.
// Populated fields are never overwritten.
func (m ItemMeta) patch(it *model.Item) map[string]interface{} {
	updates := map[string]interface{}{}
	fill := func(col string, cur *string, v string) {
		v = strings.TrimSpace(v)
		if strings.TrimSpace(*cur) == "" && v != "" {
			*cur = v
			updates[col] = v
		}
	}
	fill("name", &it.Name, m.Name)
	fill("category", &it.Category, m.Category)
	fill("emoji", &it.Emoji, m.Emoji)
	fill("rarity", &it.Rarity, m.Rarity)
	fill("description", &it.Description, m.Description)
	if slot := normalizeSlot(m.Slot); normalizeSlot(it.Slot) == "" && slot != "" {
		it.Slot = slot
		updates["slot"] = slot
	}
	if emptyJSON(it.Stats) && !emptyJSON(m.Stats) {
		it.Stats = m.Stats
		updates["stats"] = m.Stats
	}
	return updates
}
