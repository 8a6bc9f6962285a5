package inventory

import (
	"encoding/json"
	"strings"

	"github.com/kyrhanu/ledger/model"
	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
)

// Categories whose items collapse into one stack when they have no slot.
var stackablePrefixes = []string{
	"potion", "food", "consum", "mat", "material", "resource",
	"ore", "herb", "ingredient", "scroll", "reagent", "gem",
}

// Categories that may be used up even without restorative stats.
var consumablePrefixes = []string{"food", "potion", "consum"}

func hasPrefix(category string, prefixes []string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(c, p) {
			return true
		}
	}
	return false
}

func stackableCategory(category string) bool { return hasPrefix(category, stackablePrefixes) }

func consumableCategory(category string) bool { return hasPrefix(category, consumablePrefixes) }

// normalizeSlot lowercases a slot tag; blanks and "none"/"null" mean no slot.
func normalizeSlot(slot string) string {
	s := strings.ToLower(strings.TrimSpace(slot))
	if s == "none" || s == "null" {
		return ""
	}
	return s
}

// instanceTracked reports whether every unit of it lives in its own qty=1 row.
// Anything with a slot is instance-tracked, whatever its stackable flag says.
func instanceTracked(it *model.Item) bool {
	if normalizeSlot(it.Slot) != "" {
		return true
	}
	return !(it.Stackable || stackableCategory(it.Category))
}

// restoration is what one unit of it gives back when consumed.
type restoration struct{ HP, MP, Energy int }

func restoreOf(it *model.Item) restoration {
	stats := []byte(it.Stats)
	return restoration{
		HP:     int(gjson.GetBytes(stats, "hp").Int()) + it.HP,
		MP:     int(gjson.GetBytes(stats, "mp").Int()) + it.MP,
		Energy: int(gjson.GetBytes(stats, "energy").Int()),
	}
}

func (r restoration) nonzero() bool { return r.HP > 0 || r.MP > 0 || r.Energy > 0 }

// DisplayStats merges the free-form stats JSON with the typed bonus columns.
func DisplayStats(it *model.Item) map[string]interface{} {
	out := map[string]interface{}{}
	if len(it.Stats) > 0 {
		_ = json.Unmarshal(it.Stats, &out)
	}
	add := func(key string, v int) {
		if v == 0 {
			return
		}
		switch cur := out[key].(type) {
		case float64:
			out[key] = cur + float64(v)
		default:
			out[key] = float64(v)
		}
	}
	add("atk", it.Atk)
	add("defense", it.Defense)
	add("hp", it.HP)
	add("mp", it.MP)
	add("weight", it.Weight)
	return out
}

func emptyJSON(j datatypes.JSON) bool {
	s := strings.TrimSpace(string(j))
	return s == "" || s == "null" || s == "{}"
}
