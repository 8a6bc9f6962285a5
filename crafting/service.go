// Package crafting runs blacksmith recipes against the material and item pools.
package crafting

import (
	"context"
	"time"

	"github.com/kyrhanu/ledger/audit"
	"github.com/kyrhanu/ledger/energy"
	"github.com/kyrhanu/ledger/inventory"
	"github.com/kyrhanu/ledger/materials"
	"github.com/kyrhanu/ledger/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options tunes the anti-automation guards and energy costs.
type Options struct {
	MinClaimElapsed time.Duration
	MinHitRatio     float64
	ForgeEnergyCost int
	SmeltEnergyCost int
}

// DefaultOptions returns the production guard values with free crafting.
func DefaultOptions() Options {
	return Options{MinClaimElapsed: 2 * time.Second, MinHitRatio: 0.40}
}

// EnergySpender debits energy inside a caller-owned transaction.
type EnergySpender interface {
	SpendTx(tx *gorm.DB, playerID int64, amount int) (energy.State, error)
}

// Auditor receives a record of each crafting mutation.
type Auditor interface {
	Record(ctx context.Context, start time.Time, entry audit.Entry)
}

// Service is the blacksmith: recipe status, forge sessions and smelting.
type Service struct {
	db      *gorm.DB
	inv     *inventory.Service
	mats    *materials.Service
	energy  EnergySpender
	metrics metrics.Sink
	audit   Auditor
	opts    Options
	now     func() time.Time
	logger  *zap.Logger
}

// NewService wires the blacksmith. en, sink and aud may be nil.
func NewService(db *gorm.DB, inv *inventory.Service, mats *materials.Service,
	en EnergySpender, sink metrics.Sink, aud Auditor, opts Options, logger *zap.Logger) *Service {
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &Service{
		db: db, inv: inv, mats: mats,
		energy: en, metrics: sink, audit: aud,
		opts: opts, now: time.Now, logger: logger,
	}
}

// SetClock replaces the time source.
func (svc *Service) SetClock(now func() time.Time) { svc.now = now }

func (svc *Service) spendTx(tx *gorm.DB, playerID int64, cost int) error {
	if cost <= 0 || svc.energy == nil {
		return nil
	}
	_, err := svc.energy.SpendTx(tx, playerID, cost)
	return err
}

// bump increments a counter without letting a failure reach the caller.
func (svc *Service) bump(ctx context.Context, playerID int64, key string) {
	if err := svc.metrics.Inc(ctx, playerID, key, 1); err != nil {
		svc.logger.Warn("metric increment failed",
			zap.Int64("player_id", playerID),
			zap.String("key", key),
			zap.Error(err))
	}
}

func (svc *Service) record(ctx context.Context, start time.Time, playerID int64, action string, req, resp interface{}, err error) {
	if svc.audit == nil {
		return
	}
	e := audit.Entry{PlayerID: playerID, Action: action, Request: req, Response: resp}
	if err != nil {
		e.Error = err.Error()
	}
	svc.audit.Record(ctx, start, e)
}
