package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/kyrhanu/ledger/model"
	"gorm.io/gorm"
)

// BriefEntry is a compact name lookup row for client tooltips.
type BriefEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

const (
	DefaultBriefLimit = 200
	MaxBriefLimit     = 1000
)

// likeEscaper quotes LIKE wildcards for ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Brief lists item and material codes whose code or name contains q
// (case-insensitive). A material shadows an item with the same code.
func Brief(ctx context.Context, db *gorm.DB, q string, limit int) ([]BriefEntry, error) {
	if limit <= 0 {
		limit = DefaultBriefLimit
	}
	if limit > MaxBriefLimit {
		limit = MaxBriefLimit
	}
	q = strings.ToLower(strings.TrimSpace(q))

	var items []model.Item
	var mats []model.Material
	itemQ := db.WithContext(ctx).Select("code", "name")
	matQ := db.WithContext(ctx).Select("code", "name")
	if q != "" {
		like := "%" + likeEscaper.Replace(q) + "%"
		itemQ = itemQ.Where("LOWER(code) LIKE ? ESCAPE '!' OR LOWER(name) LIKE ? ESCAPE '!'", like, like)
		matQ = matQ.Where("LOWER(code) LIKE ? ESCAPE '!' OR LOWER(name) LIKE ? ESCAPE '!'", like, like)
	}
	if err := itemQ.Find(&items).Error; err != nil {
		return nil, err
	}
	if err := matQ.Find(&mats).Error; err != nil {
		return nil, err
	}

	byCode := make(map[string]BriefEntry, len(items)+len(mats))
	for _, it := range items {
		byCode[it.Code] = BriefEntry{Code: it.Code, Name: nameOr(it.Name, it.Code), Kind: "item"}
	}
	for _, m := range mats {
		byCode[m.Code] = BriefEntry{Code: m.Code, Name: nameOr(m.Name, m.Code), Kind: "material"}
	}
	out := make([]BriefEntry, 0, len(byCode))
	for _, e := range byCode {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func nameOr(name, code string) string {
	if name == "" {
		return code
	}
	return name
}
