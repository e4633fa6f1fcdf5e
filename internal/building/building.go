// Package building implements the construction timer engine: the lifecycle of
// a player-built structure through time- and resource-gated transitions.
//
// Timed transitions are observed lazily. There is no background scheduler;
// EffectiveStatus derives the current state from the stored row and the clock,
// and callers may write the derived state back under an optimistic lock.
package building

import (
	"math"
	"time"

	"github.com/earthlord-game/server/internal/catalog"
	"github.com/earthlord-game/server/internal/geo"
)

// Status is a building's persisted lifecycle state.
type Status string

const (
	StatusConstructing Status = "constructing"
	StatusUpgrading    Status = "upgrading"
	StatusActive       Status = "active"
	StatusDamaged      Status = "damaged"
	StatusInactive     Status = "inactive"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusConstructing, StatusUpgrading, StatusActive, StatusDamaged, StatusInactive:
		return true
	}
	return false
}

// Building is a player-owned structure placed inside a territory.
type Building struct {
	ID               string
	OwnerID          string
	TerritoryID      string
	TemplateID       string
	Name             string
	Status           Status
	Level            int
	Location         geo.Point
	BuildStartedAt   time.Time
	BuildCompletedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int
}

// EffectiveStatus returns the building's logical state at now, applying any
// elapsed constructing/upgrading timer without touching storage. Pure: the
// same stored row and clock always produce the same answer.
func EffectiveStatus(b Building, now time.Time) (Status, int) {
	switch b.Status {
	case StatusConstructing:
		if b.BuildCompletedAt != nil && !now.Before(*b.BuildCompletedAt) {
			return StatusActive, b.Level
		}
	case StatusUpgrading:
		if b.BuildCompletedAt != nil && !now.Before(*b.BuildCompletedAt) {
			return StatusActive, b.Level + 1
		}
	}
	return b.Status, b.Level
}

// Progress returns the timer completion fraction in [0, 1] for UI purposes.
// A zero-duration timer counts as already complete. Buildings without a
// running timer report 1.
func Progress(b Building, now time.Time) float64 {
	if b.Status != StatusConstructing && b.Status != StatusUpgrading {
		return 1
	}
	if b.BuildCompletedAt == nil {
		return 1
	}
	total := b.BuildCompletedAt.Sub(b.BuildStartedAt)
	if total <= 0 {
		return 1
	}
	frac := float64(now.Sub(b.BuildStartedAt)) / float64(total)
	return math.Min(1, math.Max(0, frac))
}

// MaterialCheck is the result of comparing required resources against a
// player's ledger.
type MaterialCheck struct {
	CanBuild bool           `json:"canBuild"`
	Missing  map[string]int `json:"missingResources"`
}

// CheckMaterials computes the per-resource shortfall of available against
// required. CanBuild is true only when every shortfall is zero.
func CheckMaterials(required, available map[string]int) MaterialCheck {
	check := MaterialCheck{CanBuild: true, Missing: map[string]int{}}
	for name, need := range required {
		if short := need - available[name]; short > 0 {
			check.Missing[name] = short
			check.CanBuild = false
		}
	}
	return check
}

// UpgradeCost returns the resource cost of upgrading from the given level,
// scaled from the template's base construction cost by factor^(level-1) and
// rounded up. The schedule is configuration, not catalog data.
func UpgradeCost(t catalog.Template, fromLevel int, factor float64) map[string]int {
	scale := math.Pow(factor, float64(fromLevel-1))
	cost := make(map[string]int, len(t.RequiredResources))
	for name, base := range t.RequiredResources {
		cost[name] = int(math.Ceil(float64(base) * scale))
	}
	return cost
}

// UpgradeDuration returns how long the upgrade from the given level takes,
// scaled from the template's base build time by factor^(fromLevel-1).
func UpgradeDuration(t catalog.Template, fromLevel int, factor float64) time.Duration {
	scale := math.Pow(factor, float64(fromLevel-1))
	secs := math.Ceil(float64(t.BuildTimeSeconds) * scale)
	return time.Duration(secs) * time.Second
}
