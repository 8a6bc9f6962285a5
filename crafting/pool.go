package crafting

import (
	"sort"

	"github.com/kyrhanu/ledger/inventory"
	"github.com/kyrhanu/ledger/materials"
	"gorm.io/gorm"
)

// PoolKind names the ledger a code is drawn from.
type PoolKind string

const (
	KindMaterial PoolKind = "material"
	KindItem     PoolKind = "item"
)

// ResourcePool is where a code's balance lives: a MaterialPool or an ItemPool.
type ResourcePool interface {
	Kind() PoolKind
	pool()
}

// MaterialPool is a craft_materials row, balanced in player_materials.
type MaterialPool struct{ ID int64 }

// ItemPool is an items row, balanced in player_inventory.
type ItemPool struct{ ID int64 }

func (MaterialPool) Kind() PoolKind { return KindMaterial }
func (ItemPool) Kind() PoolKind     { return KindItem }
func (MaterialPool) pool()          {}
func (ItemPool) pool()              {}

// resolved is one code bound to its pool.
type resolved struct {
	Code string
	Name string
	Pool ResourcePool
}

// codeIndex maps codes to pools. Codes in neither catalog are absent.
type codeIndex map[string]resolved

// resolveCodes builds the index for codes. A material shadows an item that
// shares its code.
func resolveCodes(tx *gorm.DB, codes []string) (codeIndex, error) {
	codes = uniqueSorted(codes)
	idx := make(codeIndex, len(codes))
	items, err := inventory.ItemsByCode(tx, codes)
	if err != nil {
		return nil, err
	}
	for code, it := range items {
		idx[code] = resolved{Code: code, Name: it.Name, Pool: ItemPool{ID: it.ID}}
	}
	mats, err := materials.ByCode(tx, codes)
	if err != nil {
		return nil, err
	}
	for code, m := range mats {
		idx[code] = resolved{Code: code, Name: m.Name, Pool: MaterialPool{ID: m.ID}}
	}
	return idx, nil
}

func (idx codeIndex) kind(code string) PoolKind {
	if r, ok := idx[code]; ok {
		return r.Pool.Kind()
	}
	return ""
}

// balancesTx returns the player's available quantity per code across both
// pools. Equipped inventory rows are not available.
func (svc *Service) balancesTx(tx *gorm.DB, playerID int64, idx codeIndex, codes []string) (map[string]int, error) {
	var matIDs, itemIDs []int64
	for _, code := range codes {
		switch p := idx[code].Pool.(type) {
		case MaterialPool:
			matIDs = append(matIDs, p.ID)
		case ItemPool:
			itemIDs = append(itemIDs, p.ID)
		}
	}
	matHave, err := svc.mats.AvailableTx(tx, playerID, matIDs)
	if err != nil {
		return nil, err
	}
	itemHave, err := svc.inv.AvailableTx(tx, playerID, itemIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(codes))
	for _, code := range codes {
		switch p := idx[code].Pool.(type) {
		case MaterialPool:
			out[code] = matHave[p.ID]
		case ItemPool:
			out[code] = itemHave[p.ID]
		}
	}
	return out, nil
}

func uniqueSorted(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
