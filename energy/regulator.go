package energy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kyrhanu/ledger/apperr"
	"github.com/kyrhanu/ledger/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount  = apperr.New(apperr.Validation, "ENERGY_AMOUNT_INVALID")
	ErrNoEnergy       = apperr.New(apperr.Conflict, "NO_ENERGY")
	ErrPlayerNotFound = apperr.New(apperr.NotFound, "PLAYER_NOT_FOUND")
)

// State is a player's energy after normalisation.
type State struct {
	Energy int  `json:"energy"`
	Cap    int  `json:"energy_max"`
	Tier   Tier `json:"tier"`
}

// Regulator owns the players.energy* columns. Every read or spend goes through
// NormalizeTx first, so tier changes and day rollovers are applied lazily.
type Regulator struct {
	db     *gorm.DB
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewRegulator creates a Regulator whose days start at midnight in loc.
func NewRegulator(db *gorm.DB, loc *time.Location, logger *zap.Logger) *Regulator {
	if loc == nil {
		loc = time.UTC
	}
	return &Regulator{db: db, loc: loc, now: time.Now, logger: logger}
}

// SetClock replaces the time source.
func (r *Regulator) SetClock(now func() time.Time) { r.now = now }

// Get returns the player's current (energy, cap).
func (r *Regulator) Get(ctx context.Context, playerID int64) (State, error) {
	var st State
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		st, err = r.NormalizeTx(tx, playerID)
		return err
	})
	return st, err
}

// Spend takes amount energy from the player.
func (r *Regulator) Spend(ctx context.Context, playerID int64, amount int) (State, error) {
	var st State
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		st, err = r.SpendTx(tx, playerID, amount)
		return err
	})
	return st, err
}

// SpendTx is Spend inside a caller-owned transaction.
func (r *Regulator) SpendTx(tx *gorm.DB, playerID int64, amount int) (State, error) {
	if amount <= 0 {
		return State{}, ErrInvalidAmount
	}
	st, err := r.NormalizeTx(tx, playerID)
	if err != nil {
		return State{}, err
	}
	if st.Energy < amount {
		return st, ErrNoEnergy
	}
	st.Energy -= amount
	if err := tx.Model(&model.Player{}).Where("id = ?", playerID).
		Update("energy", st.Energy).Error; err != nil {
		return State{}, fmt.Errorf("energy: spend: %w", err)
	}
	return st, nil
}

// RecordLogin marks today as a day the player was active. The pending reset
// is applied first so it still sees yesterday's login.
func (r *Regulator) RecordLogin(ctx context.Context, playerID int64) (State, error) {
	var st State
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if st, err = r.NormalizeTx(tx, playerID); err != nil {
			return err
		}
		return tx.Model(&model.Player{}).Where("id = ?", playerID).
			Update("last_login_on", r.today().Format(model.DateLayout)).Error
	})
	return st, err
}

// NormalizeTx locks the player row and brings its energy up to date:
// the cap follows the active tier, a new day refills the allowance, and the
// stored value is clamped into [0, cap].
func (r *Regulator) NormalizeTx(tx *gorm.DB, playerID int64) (State, error) {
	var p model.Player
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", playerID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return State{}, ErrPlayerNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("energy: load player: %w", err)
	}

	now := r.now()
	lim := LimitsFor(now, p.PremiumWaterUntil, p.PremiumMolfarUntil)
	updates := map[string]interface{}{}

	if p.EnergyMax != lim.Cap {
		r.logger.Debug("energy cap follows tier",
			zap.Int64("player_id", playerID),
			zap.Int("old_cap", p.EnergyMax),
			zap.Int("new_cap", lim.Cap),
			zap.String("tier", string(lim.Tier)))
		p.EnergyMax = lim.Cap
		updates["energy_max"] = lim.Cap
	}

	today := r.today()
	todayStr := today.Format(model.DateLayout)
	if p.EnergyResetOn == "" || p.EnergyResetOn < todayStr {
		yesterday := today.AddDate(0, 0, -1).Format(model.DateLayout)
		p.Energy = dailyRefill(lim, p.Energy, p.LastLoginOn == yesterday)
		p.EnergyResetOn = todayStr
		updates["energy"] = p.Energy
		updates["energy_reset_on"] = todayStr
	}

	if p.Energy < 0 || p.Energy > p.EnergyMax {
		p.Energy = max(0, min(p.Energy, p.EnergyMax))
		updates["energy"] = p.Energy
	}

	if len(updates) > 0 {
		if err := tx.Model(&model.Player{}).Where("id = ?", playerID).Updates(updates).Error; err != nil {
			return State{}, fmt.Errorf("energy: normalize: %w", err)
		}
	}
	return State{Energy: p.Energy, Cap: p.EnergyMax, Tier: lim.Tier}, nil
}

func (r *Regulator) today() time.Time {
	n := r.now().In(r.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, r.loc)
}
