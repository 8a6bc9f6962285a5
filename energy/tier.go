package energy

import "time"

// Free tier.
const (
	BaseDailyEnergy = 240
	BaseCap         = 240
)

// "Living water" subscription: bigger daily allowance and cap.
const (
	WaterDailyBonus = 60
	WaterDaily      = BaseDailyEnergy + WaterDailyBonus
	WaterCap        = 360
)

// "Molfar's blessing" subscription: water's allowance plus carry-over of
// unused energy, at most one base day's worth.
const (
	MolfarDaily      = WaterDaily
	MolfarCap        = 480
	MolfarCarryLimit = BaseDailyEnergy
)

type Tier string

const (
	TierFree   Tier = "none"
	TierWater  Tier = "water"
	TierMolfar Tier = "molfar"
)

// Limits is what a tier grants per day.
type Limits struct {
	Tier       Tier
	Daily      int
	Cap        int
	CarryLimit int
}

// LimitsFor picks the highest subscription still active at now.
func LimitsFor(now time.Time, waterUntil, molfarUntil *time.Time) Limits {
	if active(molfarUntil, now) {
		return Limits{Tier: TierMolfar, Daily: MolfarDaily, Cap: MolfarCap, CarryLimit: MolfarCarryLimit}
	}
	if active(waterUntil, now) {
		return Limits{Tier: TierWater, Daily: WaterDaily, Cap: WaterCap}
	}
	return Limits{Tier: TierFree, Daily: BaseDailyEnergy, Cap: BaseCap}
}

func active(until *time.Time, now time.Time) bool {
	return until != nil && until.After(now)
}

// dailyRefill returns the energy a player starts a new day with. Carry is
// only granted to tiers that allow it and only when the player was around
// the day before.
func dailyRefill(lim Limits, leftover int, loggedInYesterday bool) int {
	carry := 0
	if lim.CarryLimit > 0 && loggedInYesterday {
		carry = min(max(0, leftover), lim.CarryLimit)
	}
	return min(lim.Cap, lim.Daily+carry)
}
