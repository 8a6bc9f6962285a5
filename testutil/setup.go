package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kyrhanu/ledger/cache"
	"github.com/kyrhanu/ledger/config"
	dbadapter "github.com/kyrhanu/ledger/db"
	"github.com/kyrhanu/ledger/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupTestDB creates a throwaway SQLite DB under t.TempDir and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache returns the in-process cache; no Redis required.
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{})
	require.NoError(t, err, "SetupTestCache: NewCache")
	t.Cleanup(c.Close)
	return c
}

// Logger returns a development logger for tests.
func Logger() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

// CreatePlayer inserts a free-tier player with full energy that was reset today.
func CreatePlayer(t *testing.T, db *gorm.DB, id int64, now time.Time) *model.Player {
	t.Helper()
	p := &model.Player{
		ID: id, Name: "tester",
		HP: 100, HPMax: 100, MP: 50, MPMax: 50,
		Energy: 240, EnergyMax: 240,
		EnergyResetOn: now.Format(model.DateLayout),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Clock is a settable time source for services that take func() time.Time.
type Clock struct{ T time.Time }

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }
