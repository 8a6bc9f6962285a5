package crafting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kyrhanu/ledger/audit"
	"github.com/kyrhanu/ledger/energy"
	"github.com/kyrhanu/ledger/inventory"
	"github.com/kyrhanu/ledger/materials"
	"github.com/kyrhanu/ledger/metrics"
	"github.com/kyrhanu/ledger/model"
	"github.com/kyrhanu/ledger/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var day0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recorder) Record(_ context.Context, _ time.Time, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	inv   *inventory.Service
	mats  *materials.Service
	sink  *metrics.Store
	audit *recorder
	clk   *testutil.Clock
	iron  model.Material
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := testutil.Logger()
	clk := &testutil.Clock{T: day0}
	reg := energy.NewRegulator(db, time.UTC, log)
	reg.SetClock(clk.Now)
	inv := inventory.NewService(db, reg, log)
	mats := materials.NewService(db, log)
	sink := metrics.NewStore(db)
	rec := &recorder{}
	svc := NewService(db, inv, mats, reg, sink, rec, opts, log)
	svc.SetClock(clk.Now)
	testutil.CreatePlayer(t, db, 1, day0)
	testutil.CreatePlayer(t, db, 2, day0)

	iron := model.Material{Code: "ore_metal_iron", Name: "Iron ore", Profession: "miner"}
	require.NoError(t, db.Create(&iron).Error)
	require.NoError(t, db.Create(&model.Material{Code: "fuel_coal", Name: "Coal"}).Error)
	require.NoError(t, db.Create(&model.Material{Code: "ingot_iron", Name: "Iron ingot"}).Error)
	require.NoError(t, db.Create(&model.Item{Code: "q_wax_charm", Name: "Wax charm", Category: "material", Stackable: true}).Error)

	require.NoError(t, db.Create(&model.ForgeRecipe{
		Code: "smith_sword_iron", Name: "Iron sword", Slot: "weapon", ForgeHits: 60,
		OutputItemCode: "sword_iron", OutputAmount: 1,
	}).Error)
	require.NoError(t, db.Create(&[]model.ForgeIngredient{
		{RecipeCode: "smith_sword_iron", InputCode: "ore_metal_iron", Qty: 3, Role: "metal"},
		{RecipeCode: "smith_sword_iron", InputCode: "q_wax_charm", Qty: 3, Role: "binding"},
	}).Error)
	require.NoError(t, db.Create(&model.Item{Code: "sword_iron", Name: "Iron sword", Category: "weapon", Slot: "weapon"}).Error)

	require.NoError(t, db.Create(&model.SmeltRecipe{Code: "smelt_iron", Name: "Iron ingot", OutputItemCode: "ingot_iron", OutputAmount: 1}).Error)
	require.NoError(t, db.Create(&[]model.SmeltIngredient{
		{RecipeCode: "smelt_iron", MaterialCode: "ore_metal_iron", Qty: 2, Role: "ore"},
		{RecipeCode: "smelt_iron", MaterialCode: "fuel_coal", Qty: 1, Role: "fuel"},
	}).Error)

	return &fixture{svc: svc, db: db, inv: inv, mats: mats, sink: sink, audit: rec, clk: clk, iron: iron}
}

func (f *fixture) giveMaterial(t *testing.T, playerID int64, code string, qty int) {
	t.Helper()
	var m model.Material
	require.NoError(t, f.db.Where("code = ?", code).First(&m).Error)
	require.NoError(t, f.mats.AddTx(f.db, playerID, m.ID, qty))
}

func (f *fixture) giveItem(t *testing.T, playerID int64, code string, qty int) {
	t.Helper()
	_, err := f.inv.Grant(context.Background(), playerID, code, qty, inventory.ItemMeta{})
	require.NoError(t, err)
}

func (f *fixture) balances(t *testing.T, playerID int64, codes ...string) map[string]int {
	t.Helper()
	idx, err := resolveCodes(f.db, codes)
	require.NoError(t, err)
	have, err := f.svc.balancesTx(f.db, playerID, idx, codes)
	require.NoError(t, err)
	return have
}

func (f *fixture) session(t *testing.T, id int64) model.ForgeSession {
	t.Helper()
	var s model.ForgeSession
	require.NoError(t, f.db.First(&s, id).Error)
	return s
}

func TestForgeStatus_NotSeeded(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	require.NoError(t, f.db.Where("1 = 1").Delete(&model.ForgeRecipe{}).Error)
	require.NoError(t, f.db.Where("1 = 1").Delete(&model.SmeltRecipe{}).Error)

	_, err := f.svc.ForgeStatus(context.Background(), 1)
	assert.ErrorIs(t, err, ErrRecipesNotSeeded)
	_, err = f.svc.SmeltStatus(context.Background(), 1)
	assert.ErrorIs(t, err, ErrSmeltRecipesNotSeeded)
}

func TestForgeStatus_ReportsShortfall(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.giveMaterial(t, 1, "ore_metal_iron", 2)
	f.giveItem(t, 1, "q_wax_charm", 3)

	st, err := f.svc.ForgeStatus(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, st, 1)
	assert.False(t, st[0].CanForge)
	assert.Equal(t, []Missing{{
		Code: "ore_metal_iron", Name: "Iron ore", Kind: KindMaterial, Role: "metal",
		Need: 3, Have: 2, Missing: 1,
	}}, st[0].Missing)
	assert.Equal(t, KindItem, st[0].Recipe.OutputItemKind)
	assert.Equal(t, [2]int{120, 220}, st[0].Recipe.RhythmWindowMs)
	require.Len(t, st[0].Recipe.Ingredients, 2)
	assert.Equal(t, "binding", st[0].Recipe.Ingredients[0].Role)
	assert.Equal(t, KindItem, st[0].Recipe.Ingredients[0].Kind)
}

func TestSmeltStatus(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.giveMaterial(t, 1, "ore_metal_iron", 2)
	f.giveMaterial(t, 1, "fuel_coal", 1)

	st, err := f.svc.SmeltStatus(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, st, 1)
	assert.True(t, st[0].CanSmelt)
	assert.Empty(t, st[0].Missing)
	assert.Equal(t, KindMaterial, st[0].Recipe.OutputItemKind)
	assert.Equal(t, "Iron ingot", st[0].Recipe.OutputItemName)
}

func TestStartForge_NotEnoughIngredients(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.giveMaterial(t, 1, "ore_metal_iron", 2)
	f.giveItem(t, 1, "q_wax_charm", 3)

	_, err := f.svc.StartForge(context.Background(), 1, "smith_sword_iron")
	require.ErrorIs(t, err, ErrNotEnoughIngredients)
	var se *ShortfallError
	require.True(t, errors.As(err, &se))
	require.Len(t, se.Missing, 1)
	assert.Equal(t, 1, se.Missing[0].Missing)

	assert.Equal(t, map[string]int{"ore_metal_iron": 2, "q_wax_charm": 3},
		f.balances(t, 1, "ore_metal_iron", "q_wax_charm"))
	var n int64
	require.NoError(t, f.db.Model(&model.ForgeSession{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestStartForge_Errors(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()

	_, err := f.svc.StartForge(ctx, 1, " ")
	assert.ErrorIs(t, err, ErrInvalidRecipeCode)
	_, err = f.svc.StartForge(ctx, 1, "nope")
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	require.NoError(t, f.db.Create(&model.ForgeRecipe{Code: "broken", Name: "Broken", OutputItemCode: "x"}).Error)
	require.NoError(t, f.db.Create(&model.ForgeIngredient{RecipeCode: "broken", InputCode: "ghost_code", Qty: 1, Role: "metal"}).Error)
	_, err = f.svc.StartForge(ctx, 1, "broken")
	assert.ErrorIs(t, err, ErrIngredientCodeUnknown)
	var ue *UnknownCodesError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, []string{"ghost_code"}, ue.Codes)
}

func TestStartForge_ThenCancelRefundsExactly(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	f.giveMaterial(t, 1, "ore_metal_iron", 4)
	f.giveItem(t, 1, "q_wax_charm", 5)
	before := f.balances(t, 1, "ore_metal_iron", "q_wax_charm")

	fs, err := f.svc.StartForge(ctx, 1, "smith_sword_iron")
	require.NoError(t, err)
	assert.Equal(t, 60, fs.RequiredHits)
	assert.InDelta(t, 1.0/60, fs.BaseProgressPerHit, 1e-9)
	assert.Equal(t, map[string]int{"ore_metal_iron": 1, "q_wax_charm": 2},
		f.balances(t, 1, "ore_metal_iron", "q_wax_charm"))

	// Later recipe edits do not change what a cancel gives back.
	require.NoError(t, f.db.Model(&model.ForgeIngredient{}).
		Where("recipe_code = ?", "smith_sword_iron").Update("qty", 10).Error)

	res, err := f.svc.CancelForge(ctx, 1, fs.ForgeID, "smith_sword_iron", []byte(`{"hits":12,"reason":"quit"}`))
	require.NoError(t, err)
	assert.Len(t, res.Refunded, 2)
	assert.Equal(t, before, f.balances(t, 1, "ore_metal_iron", "q_wax_charm"))

	s := f.session(t, fs.ForgeID)
	assert.Equal(t, model.ForgeCancelled, s.Status)
	require.NotNil(t, s.CancelledAt)
	require.NotNil(t, s.ClientHits)
	assert.Equal(t, 12, *s.ClientHits)

	_, err = f.svc.CancelForge(ctx, 1, fs.ForgeID, "smith_sword_iron", nil)
	assert.ErrorIs(t, err, ErrForgeNotActive)
	assert.Equal(t, before, f.balances(t, 1, "ore_metal_iron", "q_wax_charm"), "no double refund")
}

func TestStartForge_BaseProgressFollowsHits(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	require.NoError(t, f.db.Create(&model.ForgeRecipe{
		Code: "smith_dagger_iron", Name: "Iron dagger", Slot: "weapon", ForgeHits: 30,
		OutputItemCode: "sword_iron",
	}).Error)
	require.NoError(t, f.db.Create(&model.ForgeIngredient{
		RecipeCode: "smith_dagger_iron", InputCode: "ore_metal_iron", Qty: 1, Role: "metal",
	}).Error)
	f.giveMaterial(t, 1, "ore_metal_iron", 1)

	fs, err := f.svc.StartForge(context.Background(), 1, "smith_dagger_iron")
	require.NoError(t, err)
	assert.Equal(t, 30, fs.RequiredHits)
	assert.InDelta(t, 1.0/30, fs.BaseProgressPerHit, 1e-9)
	assert.InDelta(t, 1.0/30, f.session(t, fs.ForgeID).BaseProgressPerHit, 1e-9)
}

func TestCancelForge_Guards(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	f.giveMaterial(t, 1, "ore_metal_iron", 3)
	f.giveItem(t, 1, "q_wax_charm", 3)
	fs, err := f.svc.StartForge(ctx, 1, "smith_sword_iron")
	require.NoError(t, err)

	_, err = f.svc.CancelForge(ctx, 1, 9999, "smith_sword_iron", nil)
	assert.ErrorIs(t, err, ErrForgeNotFound)
	_, err = f.svc.CancelForge(ctx, 2, fs.ForgeID, "smith_sword_iron", nil)
	assert.ErrorIs(t, err, ErrForgeNotYours)
	_, err = f.svc.CancelForge(ctx, 1, fs.ForgeID, "other", nil)
	assert.ErrorIs(t, err, ErrRecipeMismatch)
	_, err = f.svc.CancelForge(ctx, 1, fs.ForgeID, "smith_sword_iron", []byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidReport)
	assert.Equal(t, model.ForgeStarted, f.session(t, fs.ForgeID).Status)
}

func TestClaimForge(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	f.giveMaterial(t, 1, "ore_metal_iron", 3)
	f.giveItem(t, 1, "q_wax_charm", 3)
	fs, err := f.svc.StartForge(ctx, 1, "smith_sword_iron")
	require.NoError(t, err)

	_, err = f.svc.ClaimForge(ctx, 1, fs.ForgeID, "smith_sword_iron", nil)
	assert.ErrorIs(t, err, ErrForgeTooFast)

	f.clk.Advance(5 * time.Second)
	_, err = f.svc.ClaimForge(ctx, 1, fs.ForgeID, "smith_sword_iron", []byte(`{"hits":6}`))
	require.ErrorIs(t, err, ErrNotEnoughHits)
	var he *HitsError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, 24, he.MinHits)
	assert.Equal(t, model.ForgeStarted, f.session(t, fs.ForgeID).Status)

	out, err := f.svc.ClaimForge(ctx, 1, fs.ForgeID, "smith_sword_iron", []byte(`{"hits":30}`))
	require.NoError(t, err)
	assert.Equal(t, ClaimResult{ItemCode: "sword_iron", Kind: KindItem, Amount: 1}, *out)

	s := f.session(t, fs.ForgeID)
	assert.Equal(t, model.ForgeClaimed, s.Status)
	require.NotNil(t, s.ClaimedAt)
	assert.Equal(t, 1, f.balances(t, 1, "sword_iron")["sword_iron"])

	v, err := f.sink.Get(ctx, 1, metrics.CraftBlacksmithCount)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = f.svc.ClaimForge(ctx, 1, fs.ForgeID, "smith_sword_iron", nil)
	assert.ErrorIs(t, err, ErrForgeNotActive)
}

func TestClaimForge_NoReportSkipsHitCheck(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	f.giveMaterial(t, 1, "ore_metal_iron", 3)
	f.giveItem(t, 1, "q_wax_charm", 3)
	fs, err := f.svc.StartForge(ctx, 1, "smith_sword_iron")
	require.NoError(t, err)
	f.clk.Advance(3 * time.Second)

	_, err = f.svc.ClaimForge(ctx, 1, fs.ForgeID, "smith_sword_iron", []byte(`{"note":"no hits"}`))
	require.NoError(t, err)
	assert.Nil(t, f.session(t, fs.ForgeID).ClientHits)
}

func TestClaimForge_StringHitsAreChecked(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	f.giveMaterial(t, 1, "ore_metal_iron", 3)
	f.giveItem(t, 1, "q_wax_charm", 3)
	fs, err := f.svc.StartForge(ctx, 1, "smith_sword_iron")
	require.NoError(t, err)
	f.clk.Advance(3 * time.Second)

	_, err = f.svc.ClaimForge(ctx, 1, fs.ForgeID, "smith_sword_iron", []byte(`{"hits":"6"}`))
	require.ErrorIs(t, err, ErrNotEnoughHits)
	_, err = f.svc.ClaimForge(ctx, 1, fs.ForgeID, "smith_sword_iron", []byte(`{"hits":0}`))
	require.ErrorIs(t, err, ErrNotEnoughHits)

	_, err = f.svc.ClaimForge(ctx, 1, fs.ForgeID, "smith_sword_iron", []byte(`{"hits":"30"}`))
	require.NoError(t, err)
	s := f.session(t, fs.ForgeID)
	require.NotNil(t, s.ClientHits)
	assert.Equal(t, 30, *s.ClientHits)
}

func TestConcurrentClaimAndCancel_OnlyOneWins(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	f.giveMaterial(t, 1, "ore_metal_iron", 3)
	f.giveItem(t, 1, "q_wax_charm", 3)
	fs, err := f.svc.StartForge(ctx, 1, "smith_sword_iron")
	require.NoError(t, err)
	f.clk.Advance(3 * time.Second)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = f.svc.ClaimForge(ctx, 1, fs.ForgeID, "smith_sword_iron", nil) }()
	go func() { defer wg.Done(); _, errs[1] = f.svc.CancelForge(ctx, 1, fs.ForgeID, "smith_sword_iron", nil) }()
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrForgeNotActive)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestDeduction_ItemShortfallLeavesMaterials(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.giveMaterial(t, 1, "ore_metal_iron", 5)
	f.giveItem(t, 1, "q_wax_charm", 1)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.deductTx(tx, 1, []Ingredient{
			{Code: "ore_metal_iron", Qty: 3, Role: "metal"},
			{Code: "q_wax_charm", Qty: 2, Role: "binding"},
		})
		return err
	})
	require.ErrorIs(t, err, ErrNotEnoughIngredients)
	assert.Equal(t, 5, f.balances(t, 1, "ore_metal_iron")["ore_metal_iron"])
}

func TestDeduction_ItemLostUnderLockRollsBackMaterials(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.giveMaterial(t, 1, "ore_metal_iron", 5)
	f.giveItem(t, 1, "q_wax_charm", 2)

	// Another writer drains the charm stack between the availability read
	// and the locked select of the item pass.
	armed := false
	require.NoError(t, f.db.Callback().Query().Before("gorm:query").Register("test:drain_charms", func(db *gorm.DB) {
		if !armed || db.Statement.Table != "player_inventory" {
			return
		}
		if _, locked := db.Statement.Clauses["FOR"]; !locked {
			return
		}
		armed = false
		assert.NoError(t, db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE player_inventory SET qty = 1 WHERE player_id = ?", 1).Error)
	}))

	err := f.db.Transaction(func(tx *gorm.DB) error {
		armed = true
		_, err := f.svc.deductTx(tx, 1, []Ingredient{
			{Code: "ore_metal_iron", Qty: 3, Role: "metal"},
			{Code: "q_wax_charm", Qty: 2, Role: "binding"},
		})
		return err
	})
	require.ErrorIs(t, err, ErrNotEnoughIngredients)
	assert.False(t, armed, "item pass reached the locked select")

	var se *ShortfallError
	require.True(t, errors.As(err, &se))
	require.Len(t, se.Missing, 1)
	assert.Equal(t, Missing{
		Code: "q_wax_charm", Name: "Wax charm", Kind: KindItem, Role: "binding",
		Need: 2, Have: 1, Missing: 1,
	}, se.Missing[0])
	assert.Equal(t, map[string]int{"ore_metal_iron": 5, "q_wax_charm": 2},
		f.balances(t, 1, "ore_metal_iron", "q_wax_charm"))
}

func TestDeduction_MaterialShadowsItemAndSkipsEquipped(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	require.NoError(t, f.db.Create(&model.Item{Code: "ore_metal_iron", Name: "Iron ore (item)", Category: "ore", Stackable: true}).Error)
	f.giveItem(t, 1, "ore_metal_iron", 9)
	_, err := f.inv.Grant(context.Background(), 1, "ring_wax", 1, inventory.ItemMeta{Slot: "ring"})
	require.NoError(t, err)

	var rows []model.InventoryRow
	require.NoError(t, f.db.Where("player_id = ? AND slot = ?", 1, "ring").Find(&rows).Error)
	require.NoError(t, f.inv.Equip(context.Background(), 1, rows[0].ID))

	err = f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.deductTx(tx, 1, []Ingredient{
			{Code: "ore_metal_iron", Qty: 1},
			{Code: "ring_wax", Qty: 1},
		})
		return err
	})
	var se *ShortfallError
	require.True(t, errors.As(err, &se))
	require.Len(t, se.Missing, 2)
	assert.Equal(t, KindMaterial, se.Missing[0].Kind)
	assert.Equal(t, KindItem, se.Missing[1].Kind)
}

func TestDeduction_AggregatesDuplicateCodes(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.giveMaterial(t, 1, "ore_metal_iron", 3)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		res, err := f.svc.deductTx(tx, 1, []Ingredient{
			{Code: "ore_metal_iron", Qty: 2, Role: "metal"},
			{Code: "ore_metal_iron", Qty: 2, Role: "alloy"},
		})
		assert.Nil(t, res)
		return err
	})
	require.ErrorIs(t, err, ErrNotEnoughIngredients)
	assert.Equal(t, 3, f.balances(t, 1, "ore_metal_iron")["ore_metal_iron"])
}

func TestStartSmelt(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	f.giveMaterial(t, 1, "ore_metal_iron", 5)
	f.giveMaterial(t, 1, "fuel_coal", 1)

	out, err := f.svc.StartSmelt(ctx, 1, "smelt_iron")
	require.NoError(t, err)
	assert.Equal(t, SmeltResult{RecipeCode: "smelt_iron", ItemCode: "ingot_iron", ItemName: "Iron ingot", ItemKind: KindMaterial, Amount: 1}, *out)
	assert.Equal(t, map[string]int{"ore_metal_iron": 3, "fuel_coal": 0, "ingot_iron": 1},
		f.balances(t, 1, "ore_metal_iron", "fuel_coal", "ingot_iron"))

	_, err = f.svc.StartSmelt(ctx, 1, "smelt_iron")
	assert.ErrorIs(t, err, ErrNotEnoughIngredients)
	assert.Equal(t, 3, f.balances(t, 1, "ore_metal_iron")["ore_metal_iron"])

	_, err = f.svc.StartSmelt(ctx, 1, "smelt_gold")
	assert.ErrorIs(t, err, ErrSmeltRecipeNotFound)

	v, err := f.sink.Get(ctx, 1, metrics.SmeltBlacksmithCount)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestStartSmelt_UnknownOutputBecomesMatItem(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	require.NoError(t, f.db.Create(&model.SmeltRecipe{Code: "smelt_slag", Name: "Slag", OutputItemCode: "slag_lump", OutputAmount: 2}).Error)
	require.NoError(t, f.db.Create(&model.SmeltIngredient{RecipeCode: "smelt_slag", MaterialCode: "fuel_coal", Qty: 1, Role: "fuel"}).Error)
	f.giveMaterial(t, 1, "fuel_coal", 1)

	out, err := f.svc.StartSmelt(context.Background(), 1, "smelt_slag")
	require.NoError(t, err)
	assert.Equal(t, KindItem, out.ItemKind)

	var it model.Item
	require.NoError(t, f.db.Where("code = ?", "slag_lump").First(&it).Error)
	assert.Equal(t, "mat", it.Category)
	assert.Equal(t, 2, f.balances(t, 1, "slag_lump")["slag_lump"])
}

func TestEnergyCost(t *testing.T) {
	opts := DefaultOptions()
	opts.ForgeEnergyCost = 100
	f := newFixture(t, opts)
	ctx := context.Background()
	f.giveMaterial(t, 1, "ore_metal_iron", 9)
	f.giveItem(t, 1, "q_wax_charm", 9)

	_, err := f.svc.StartForge(ctx, 1, "smith_sword_iron")
	require.NoError(t, err)
	_, err = f.svc.StartForge(ctx, 1, "smith_sword_iron")
	require.NoError(t, err)
	_, err = f.svc.StartForge(ctx, 1, "smith_sword_iron")
	assert.ErrorIs(t, err, energy.ErrNoEnergy)

	assert.Equal(t, map[string]int{"ore_metal_iron": 3, "q_wax_charm": 3},
		f.balances(t, 1, "ore_metal_iron", "q_wax_charm"), "failed start rolls back its deduction")
	var p model.Player
	require.NoError(t, f.db.First(&p, 1).Error)
	assert.Equal(t, 40, p.Energy)
}

func TestAuditRecorded(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	_, err := f.svc.StartForge(context.Background(), 1, "smith_sword_iron")
	require.Error(t, err)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "forge_start", f.audit.entries[0].Action)
	assert.Equal(t, "NOT_ENOUGH_INGREDIENTS", f.audit.entries[0].Error)
}
