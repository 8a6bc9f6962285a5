package crafting

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/kyrhanu/ledger/inventory"
	"github.com/kyrhanu/ledger/materials"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ingredient is one input line of a recipe.
type Ingredient struct {
	Code string `json:"material_code"`
	Qty  int    `json:"qty"`
	Role string `json:"role"`
}

// Missing describes a shortfall for one ingredient code.
type Missing struct {
	Code    string   `json:"material_code"`
	Name    string   `json:"name,omitempty"`
	Kind    PoolKind `json:"kind,omitempty"`
	Role    string   `json:"role"`
	Need    int      `json:"need"`
	Have    int      `json:"have"`
	Missing int      `json:"missing"`
}

// Reservation is what a deduction took from one pool. Forge sessions keep
// the list so a cancel returns exactly this.
type Reservation struct {
	Code string   `json:"code"`
	Kind PoolKind `json:"kind"`
	ID   int64    `json:"id"`
	Qty  int      `json:"qty"`
}

// aggregate merges lines that share a code and drops non-positive ones,
// keeping the first role seen.
func aggregate(ings []Ingredient) []Ingredient {
	out := make([]Ingredient, 0, len(ings))
	pos := make(map[string]int, len(ings))
	for _, ing := range ings {
		if ing.Qty <= 0 || ing.Code == "" {
			continue
		}
		if i, ok := pos[ing.Code]; ok {
			out[i].Qty += ing.Qty
			continue
		}
		pos[ing.Code] = len(out)
		out = append(out, ing)
	}
	return out
}

func codesOf(ings []Ingredient) []string {
	out := make([]string, len(ings))
	for i, ing := range ings {
		out[i] = ing.Code
	}
	return out
}

// shortfall compares need against have. Codes with no pool count as zero held.
func shortfall(ings []Ingredient, idx codeIndex, have map[string]int) []Missing {
	var out []Missing
	for _, ing := range aggregate(ings) {
		h := have[ing.Code]
		if h >= ing.Qty {
			continue
		}
		r := idx[ing.Code]
		out = append(out, Missing{
			Code: ing.Code, Name: r.Name, Kind: idx.kind(ing.Code), Role: ing.Role,
			Need: ing.Qty, Have: h, Missing: ing.Qty - h,
		})
	}
	return out
}

// deductTx debits ings from the player's pools inside tx. Availability is
// re-read here, materials are debited before items, and each pass runs in code
// order under row locks.
func (svc *Service) deductTx(tx *gorm.DB, playerID int64, ings []Ingredient) ([]Reservation, error) {
	ings = aggregate(ings)
	if len(ings) == 0 {
		return nil, nil
	}
	codes := codesOf(ings)
	idx, err := resolveCodes(tx, codes)
	if err != nil {
		return nil, fmt.Errorf("crafting: resolve codes: %w", err)
	}
	var unknown []string
	for _, code := range uniqueSorted(codes) {
		if _, ok := idx[code]; !ok {
			unknown = append(unknown, code)
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownCodesError{Codes: unknown}
	}

	have, err := svc.balancesTx(tx, playerID, idx, codes)
	if err != nil {
		return nil, fmt.Errorf("crafting: balances: %w", err)
	}
	if miss := shortfall(ings, idx, have); len(miss) > 0 {
		return nil, &ShortfallError{Missing: miss}
	}

	sorted := append([]Ingredient(nil), ings...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Code < sorted[b].Code })

	res := make([]Reservation, 0, len(sorted))
	for _, pass := range []PoolKind{KindMaterial, KindItem} {
		for _, ing := range sorted {
			r := idx[ing.Code]
			if r.Pool.Kind() != pass {
				continue
			}
			var err error
			var id int64
			switch p := r.Pool.(type) {
			case MaterialPool:
				id = p.ID
				err = svc.mats.DeductTx(tx, playerID, p.ID, ing.Qty)
			case ItemPool:
				id = p.ID
				err = svc.inv.DeductTx(tx, playerID, p.ID, ing.Qty)
			}
			if errors.Is(err, materials.ErrNotEnough) || errors.Is(err, inventory.ErrNotEnoughQty) {
				// Lost a race between the availability read and the row lock.
				now, rerr := svc.balancesTx(tx, playerID, idx, []string{ing.Code})
				if rerr != nil {
					return nil, fmt.Errorf("crafting: balances: %w", rerr)
				}
				h := min(now[ing.Code], ing.Qty)
				return nil, &ShortfallError{Missing: []Missing{{
					Code: ing.Code, Name: r.Name, Kind: pass, Role: ing.Role,
					Need: ing.Qty, Have: h, Missing: ing.Qty - h,
				}}}
			}
			if err != nil {
				return nil, err
			}
			res = append(res, Reservation{Code: ing.Code, Kind: pass, ID: id, Qty: ing.Qty})
		}
	}
	return res, nil
}

// refundTx returns every reservation to its pool.
func (svc *Service) refundTx(tx *gorm.DB, playerID int64, res []Reservation) error {
	for _, r := range res {
		var err error
		switch r.Kind {
		case KindMaterial:
			err = svc.mats.AddTx(tx, playerID, r.ID, r.Qty)
		default:
			_, err = svc.inv.GrantTx(tx, playerID, r.Code, r.Qty, inventory.ItemMeta{})
		}
		if err != nil {
			return fmt.Errorf("crafting: refund %s: %w", r.Code, err)
		}
	}
	return nil
}

func encodeReservations(res []Reservation) (datatypes.JSON, error) {
	if res == nil {
		res = []Reservation{}
	}
	b, err := json.Marshal(res)
	return datatypes.JSON(b), err
}

func decodeReservations(j datatypes.JSON) ([]Reservation, error) {
	var res []Reservation
	if len(j) == 0 {
		return res, nil
	}
	err := json.Unmarshal(j, &res)
	return res, err
}
