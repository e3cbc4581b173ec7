// Package billing distributes campaign goals across affected units.
package billing

import (
	"github.com/condohub/condohub/internal/targeting"
)

// Method enumerates mandatory fee calculation methods.
type Method string

const (
	// MethodFixed charges every unit the same amount.
	MethodFixed Method = "fixed"
	// MethodCoefficient splits the goal by ownership coefficient.
	MethodCoefficient Method = "coefficient"
)

// CoefficientFormat declares how a coefficient was authored.
type CoefficientFormat string

const (
	// FormatDecimal is a fraction in [0,1].
	FormatDecimal CoefficientFormat = "decimal"
	// FormatPercent is a percentage in [0,100].
	FormatPercent CoefficientFormat = "percent"
)

// Campaign is an immutable billing request. Method and AmountPerUnit are
// only read when IsMandatory is set; under MethodFixed the goal is derived.
type Campaign struct {
	ID            int64               `json:"id,omitempty"`
	Title         string              `json:"title,omitempty"`
	GoalAmount    float64             `json:"goal_amount"`
	IsMandatory   bool                `json:"is_mandatory"`
	Method        Method              `json:"calculation_method"`
	AmountPerUnit float64             `json:"amount_per_unit"`
	Target        targeting.Selection `json:"target"`
}

// Distribution is the outcome of Distribute. PerUnitFee is nil for
// voluntary campaigns.
type Distribution struct {
	PerUnitFee map[int64]float64 `json:"per_unit_fee"`
	TotalGoal  float64           `json:"total_goal"`
	Mandatory  bool              `json:"mandatory"`
	Method     Method            `json:"method,omitempty"`
	UnitCount  int               `json:"unit_count"`
	// FellBack is set when coefficients summed to zero and the goal was split equally.
	FellBack bool `json:"fell_back"`
}

// Line is one row of a fee table.
type Line struct {
	UnitID      int64   `json:"unit_id"`
	UnitNumber  string  `json:"unit_number"`
	BlockPath   string  `json:"block_path"`
	Coefficient float64 `json:"coefficient"`
	Fee         float64 `json:"fee"`
}

// Preview pairs a distribution with its ordered fee table.
type Preview struct {
	CommunityID int64        `json:"community_id"`
	Fingerprint string       `json:"fingerprint"`
	Campaign    Campaign     `json:"campaign"`
	Result      Distribution `json:"result"`
	Lines       []Line       `json:"lines"`
}
