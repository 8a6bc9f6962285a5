package model

import "time"

// DateLayout is the calendar-day format used for reset and login stamps.
const DateLayout = "2006-01-02"

// Player holds the balances the ledger regulates. Rows are created by the
// registration flow; the ledger only reads and updates them.
type Player struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name               string     `gorm:"size:64" json:"name"`
	HP                 int        `gorm:"default:100" json:"hp"`
	HPMax              int        `gorm:"default:100" json:"hp_max"`
	MP                 int        `gorm:"default:50" json:"mp"`
	MPMax              int        `gorm:"default:50" json:"mp_max"`
	Energy             int        `gorm:"default:240" json:"energy"`
	EnergyMax          int        `gorm:"default:240" json:"energy_max"`
	EnergyResetOn      string     `gorm:"size:10" json:"energy_reset_on"` // YYYY-MM-DD, "" = never
	LastLoginOn        string     `gorm:"size:10" json:"last_login_on"`
	PremiumWaterUntil  *time.Time `json:"premium_water_until"`
	PremiumMolfarUntil *time.Time `json:"premium_molfar_until"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
