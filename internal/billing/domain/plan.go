package domain

import teamdomain "github.com/workfolio/workfolio/internal/team/domain"

// PlanKey is the numeric tier selector carried in charge metadata, distinct
// from the human-readable plan name.
type PlanKey int

const (
	PlanKeyBase PlanKey = 1
	PlanKeyPlus PlanKey = 2
)

// Valid reports whether the key selects a purchasable tier.
func (k PlanKey) Valid() bool {
	return k == PlanKeyBase || k == PlanKeyPlus
}

// PlanName maps the key to its tier name. The mapping is a fixed bijection
// shared by every reconciliation entry point; a divergence between entry
// points is a correctness bug.
func (k PlanKey) PlanName() (teamdomain.PlanName, bool) {
	switch k {
	case PlanKeyBase:
		return teamdomain.PlanBase, true
	case PlanKeyPlus:
		return teamdomain.PlanPlus, true
	default:
		return "", false
	}
}
