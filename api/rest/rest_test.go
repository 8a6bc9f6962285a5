package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kyrhanu/ledger/api/rest"
	"github.com/kyrhanu/ledger/catalog"
	"github.com/kyrhanu/ledger/config"
	"github.com/kyrhanu/ledger/crafting"
	"github.com/kyrhanu/ledger/energy"
	"github.com/kyrhanu/ledger/inventory"
	"github.com/kyrhanu/ledger/materials"
	mw "github.com/kyrhanu/ledger/middleware"
	"github.com/kyrhanu/ledger/model"
	"github.com/kyrhanu/ledger/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const seedFixture = "../../catalog/testdata/seed.yaml"

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	r     *gin.Engine
	db    *gorm.DB
	inv   *inventory.Service
	mats  *materials.Service
	token string
}

func newHarness(t *testing.T, seedPath string) *harness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	log := testutil.Logger()
	sec := config.SecurityConfig{JWTSecret: "test-secret", SessionTTL: time.Hour, AdminIPs: []string{"127.0.0.1"}}

	seed, err := catalog.LoadSeed(seedFixture)
	require.NoError(t, err)
	require.NoError(t, catalog.Apply(context.Background(), db, seed))

	reg := energy.NewRegulator(db, time.UTC, log)
	inv := inventory.NewService(db, reg, log)
	mats := materials.NewService(db, log)
	craft := crafting.NewService(db, inv, mats, reg, nil, nil, crafting.Options{MinHitRatio: 0.4}, log)

	r := gin.New()
	r.Use(mw.TraceID())
	rest.Mount(r, rest.Deps{
		DB: db, Cache: c, Inventory: inv, Materials: mats, Crafting: craft, Energy: reg,
		Security: sec, SeedPath: seedPath, Logger: log,
	})

	testutil.CreatePlayer(t, db, 1, time.Now().UTC())
	tok, err := mw.IssueSession(context.Background(), c, sec, 1)
	require.NoError(t, err)
	return &harness{r: r, db: db, inv: inv, mats: mats, token: tok}
}

func (h *harness) do(method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("X-Real-IP", "127.0.0.1")
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (h *harness) giveMaterial(t *testing.T, code string, qty int) {
	t.Helper()
	var m model.Material
	require.NoError(t, h.db.Where("code = ?", code).First(&m).Error)
	require.NoError(t, h.mats.AddTx(h.db, 1, m.ID, qty))
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, "")
	h.token = "nope"
	w, _ := h.do(http.MethodGet, "/api/inventory", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, "")
	w, body := h.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestInventory_ListGetConsume(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	_, err := h.inv.Grant(ctx, 1, "potion_small", 3, inventory.ItemMeta{})
	require.NoError(t, err)
	require.NoError(t, h.db.Model(&model.Player{}).Where("id = ?", 1).Update("hp", 40).Error)

	w, body := h.do(http.MethodGet, "/api/inventory", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	row := items[0].(map[string]interface{})
	rowID := int64(row["inv_id"].(float64))
	assert.EqualValues(t, 3, row["qty"])

	w, body = h.do(http.MethodGet, fmt.Sprintf("/api/inventory/%d", rowID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "potion_small", body["code"])

	w, body = h.do(http.MethodPost, fmt.Sprintf("/api/inventory/%d/consume", rowID), map[string]int{"qty": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, body["used_qty"])
	assert.EqualValues(t, 1, body["remaining_qty"])
	assert.EqualValues(t, 90, body["hp"])

	w, body = h.do(http.MethodPost, fmt.Sprintf("/api/inventory/%d/consume", rowID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 0, body["remaining_qty"])
	assert.EqualValues(t, 100, body["hp"])

	w, body = h.do(http.MethodGet, fmt.Sprintf("/api/inventory/%d", rowID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ITEM_NOT_FOUND", body["error"])

	w, body = h.do(http.MethodGet, "/api/inventory/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", body["error"])
}

func TestInventory_EquipAndUnequipSlot(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.inv.Grant(context.Background(), 1, "sword_iron", 1, inventory.ItemMeta{})
	require.NoError(t, err)
	var row model.InventoryRow
	require.NoError(t, h.db.Where("player_id = ?", 1).First(&row).Error)

	w, _ := h.do(http.MethodPost, fmt.Sprintf("/api/inventory/%d/equip", row.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, h.db.First(&row, row.ID).Error)
	assert.True(t, row.IsEquipped)

	w, body := h.do(http.MethodPost, "/api/inventory/unequip-slot", map[string]string{"slot": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_SLOT", body["error"])

	w, _ = h.do(http.MethodPost, "/api/inventory/unequip-slot", map[string]string{"slot": "weapon"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, h.db.First(&row, row.ID).Error)
	assert.False(t, row.IsEquipped)
}

func TestBlacksmith_ForgeLifecycle(t *testing.T) {
	h := newHarness(t, "")

	w, body := h.do(http.MethodPost, "/api/blacksmith/forge/start", map[string]string{"recipe_code": "smith_sword_iron"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_ENOUGH_INGREDIENTS", body["error"])
	assert.Len(t, body["missing"], 2)

	h.giveMaterial(t, "ingot_iron", 3)
	_, err := h.inv.Grant(context.Background(), 1, "q_wax_charm", 1, inventory.ItemMeta{})
	require.NoError(t, err)

	w, body = h.do(http.MethodGet, "/api/blacksmith/recipes/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := body["recipes"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, true, st["can_forge"])

	w, body = h.do(http.MethodPost, "/api/blacksmith/forge/start", map[string]string{"recipe_code": "smith_sword_iron"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	forgeID := body["forge_id"].(float64)
	assert.EqualValues(t, 60, body["required_hits"])

	w, body = h.do(http.MethodPost, "/api/blacksmith/forge/claim", map[string]interface{}{
		"forge_id": forgeID, "recipe_code": "smith_sword_iron", "client_report": map[string]int{"hits": 3},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_ENOUGH_HITS", body["error"])
	assert.EqualValues(t, 24, body["min_hits"])

	w, body = h.do(http.MethodPost, "/api/blacksmith/forge/claim", map[string]interface{}{
		"forge_id": forgeID, "recipe_code": "other", "client_report": map[string]int{"hits": 60},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "RECIPE_MISMATCH", body["error"])

	w, body = h.do(http.MethodPost, "/api/blacksmith/forge/claim", map[string]interface{}{
		"forge_id": forgeID, "recipe_code": "smith_sword_iron", "client_report": map[string]int{"hits": 60},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "sword_iron", body["item_code"])
	assert.Equal(t, "item", body["kind"])

	w, body = h.do(http.MethodPost, "/api/blacksmith/forge/cancel", map[string]interface{}{
		"forge_id": forgeID, "recipe_code": "smith_sword_iron",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "FORGE_NOT_ACTIVE", body["error"])
}

func TestBlacksmith_Smelt(t *testing.T) {
	h := newHarness(t, "")
	h.giveMaterial(t, "ore_metal_iron", 2)
	h.giveMaterial(t, "fuel_coal", 1)

	w, body := h.do(http.MethodPost, "/api/blacksmith/smelt/start", map[string]string{"recipe_code": "smelt_iron"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ingot_iron", body["item_code"])
	assert.Equal(t, "material", body["item_kind"])

	w, body = h.do(http.MethodGet, "/api/materials", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["materials"], 1)

	w, body = h.do(http.MethodPost, "/api/blacksmith/smelt/start", map[string]string{"recipe_code": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SMELT_RECIPE_NOT_FOUND", body["error"])
}

func TestEnergy(t *testing.T) {
	h := newHarness(t, "")

	w, body := h.do(http.MethodGet, "/api/energy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 240, body["energy"])

	w, body = h.do(http.MethodPost, "/api/energy/spend", map[string]int{"amount": 40})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 200, body["energy"])

	w, body = h.do(http.MethodPost, "/api/energy/spend", map[string]int{"amount": 500})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NO_ENERGY", body["error"])

	w, body = h.do(http.MethodPost, "/api/energy/spend", map[string]int{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ENERGY_AMOUNT_INVALID", body["error"])

	w, _ = h.do(http.MethodPost, "/api/energy/checkin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p model.Player
	require.NoError(t, h.db.First(&p, 1).Error)
	assert.Equal(t, time.Now().UTC().Format(model.DateLayout), p.LastLoginOn)
}

func TestCatalog_BriefAndReload(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	data, err := os.ReadFile(seedFixture)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(seedPath, data, 0o644))
	h := newHarness(t, seedPath)

	w, body := h.do(http.MethodGet, "/api/items/brief?q=iron", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["items"], 3)

	extra := append(data, []byte("\n  - code: smelt_iron_fast\n    name: Fast iron\n    output_item_code: ingot_iron\n")...)
	require.NoError(t, os.WriteFile(seedPath, extra, 0o644))
	require.NoError(t, h.db.Create(&model.Material{Code: "ore_iron_rich", Name: "Rich iron"}).Error)

	w, body = h.do(http.MethodGet, "/api/items/brief?q=iron", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["items"], 3, "served from cache until reload")

	w, body = h.do(http.MethodPost, "/api/admin/catalog/reload", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, body["smelt_recipes"])

	w, body = h.do(http.MethodGet, "/api/items/brief?q=iron", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["items"], 4)
}

func TestAdmin_ReloadForbiddenOffWhitelist(t *testing.T) {
	h := newHarness(t, seedFixture)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/catalog/reload", nil)
	req.Header.Set("X-Real-IP", "203.0.113.9")
	w := httptest.NewRecorder()
	h.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
