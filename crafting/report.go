package crafting

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
)

// ClientReport is the minigame client's diagnostic payload. Only the hit
// count is interpreted; the rest is stored verbatim.
type ClientReport struct {
	Hits *int
	Raw  datatypes.JSON
}

// ParseClientReport accepts an absent/null body or a JSON object. "hits" may
// be a number or a numeric string; anything else carries no hit count.
func ParseClientReport(raw []byte) (ClientReport, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ClientReport{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return ClientReport{}, ErrInvalidReport
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return ClientReport{}, ErrInvalidReport
	}
	rep := ClientReport{Raw: datatypes.JSON(raw)}
	switch h := doc.Get("hits"); h.Type {
	case gjson.Number:
		n := int(h.Int())
		rep.Hits = &n
	case gjson.String:
		if n, err := strconv.Atoi(strings.TrimSpace(h.Str)); err == nil {
			rep.Hits = &n
		}
	}
	return rep, nil
}

// minHits is the fewest hits a claim must report: ratio of required, at least one.
func minHits(required int, ratio float64) int {
	return max(1, int(float64(required)*ratio))
}
