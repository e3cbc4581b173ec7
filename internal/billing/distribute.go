package billing

import (
	"fmt"
	"math"

	"github.com/condohub/condohub/internal/shared"
	"github.com/condohub/condohub/internal/targeting"
)

// SumTolerance is the relative tolerance for fee totals against the goal.
const SumTolerance = 1e-6

// Distribute computes per-unit fees for a campaign over resolved units.
func Distribute(units []targeting.AffectedUnit, c Campaign) (Distribution, error) {
	if !c.IsMandatory {
		if err := checkAmount("goal_amount", c.GoalAmount); err != nil {
			return Distribution{}, err
		}
		return Distribution{TotalGoal: c.GoalAmount, UnitCount: len(units)}, nil
	}

	switch c.Method {
	case MethodFixed:
		return distributeFixed(units, c)
	case MethodCoefficient:
		return distributeByCoefficient(units, c)
	default:
		return Distribution{}, shared.Invalid("calculation_method", fmt.Sprintf("unknown method %q", c.Method))
	}
}

func distributeFixed(units []targeting.AffectedUnit, c Campaign) (Distribution, error) {
	if math.IsNaN(c.AmountPerUnit) || math.IsInf(c.AmountPerUnit, 0) || c.AmountPerUnit <= 0 {
		return Distribution{}, shared.Invalid("amount_per_unit", "must be greater than zero")
	}
	if len(units) == 0 {
		return Distribution{}, noTargets()
	}
	fees := make(map[int64]float64, len(units))
	for _, u := range units {
		fees[u.Unit.ID] = c.AmountPerUnit
	}
	return Distribution{
		PerUnitFee: fees,
		TotalGoal:  c.AmountPerUnit * float64(len(units)),
		Mandatory:  true,
		Method:     MethodFixed,
		UnitCount:  len(units),
	}, nil
}

func distributeByCoefficient(units []targeting.AffectedUnit, c Campaign) (Distribution, error) {
	if err := checkAmount("goal_amount", c.GoalAmount); err != nil {
		return Distribution{}, err
	}
	if len(units) == 0 {
		return Distribution{}, noTargets()
	}
	var sum float64
	for _, u := range units {
		if err := checkStoredCoefficient(u); err != nil {
			return Distribution{}, err
		}
		sum += u.Unit.Coefficient
	}

	fees := make(map[int64]float64, len(units))
	fellBack := sum == 0
	if fellBack {
		share := c.GoalAmount / float64(len(units))
		for _, u := range units {
			fees[u.Unit.ID] = share
		}
	} else {
		for _, u := range units {
			fees[u.Unit.ID] = (u.Unit.Coefficient / sum) * c.GoalAmount
		}
	}
	return Distribution{
		PerUnitFee: fees,
		TotalGoal:  c.GoalAmount,
		Mandatory:  true,
		Method:     MethodCoefficient,
		UnitCount:  len(units),
		FellBack:   fellBack,
	}, nil
}

// Lines renders a distribution as a fee table in the order of units.
func Lines(units []targeting.AffectedUnit, d Distribution) []Line {
	lines := make([]Line, 0, len(units))
	for _, u := range units {
		lines = append(lines, Line{
			UnitID:      u.Unit.ID,
			UnitNumber:  u.Unit.Number,
			BlockPath:   u.BlockPath,
			Coefficient: u.Unit.Coefficient,
			Fee:         d.PerUnitFee[u.Unit.ID],
		})
	}
	return lines
}

// Balanced reports whether fees add up to the total goal within SumTolerance.
func (d Distribution) Balanced() bool {
	if d.PerUnitFee == nil {
		return true
	}
	var sum float64
	for _, fee := range d.PerUnitFee {
		sum += fee
	}
	scale := math.Max(1, math.Abs(d.TotalGoal))
	return math.Abs(sum-d.TotalGoal) <= SumTolerance*scale
}

func checkAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return shared.Invalid(field, "must be a finite number")
	}
	if v < 0 {
		return shared.Invalid(field, "must not be negative")
	}
	return nil
}

func checkStoredCoefficient(u targeting.AffectedUnit) error {
	field := fmt.Sprintf("units[%d].coefficient", u.Unit.ID)
	v := u.Unit.Coefficient
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return shared.Invalid(field, "must be between 0 and 1")
	}
	if v > 1 {
		return &shared.ValidationError{Field: field, Reason: fmt.Sprintf("%g looks like a percentage", v), Err: shared.ErrCoefficientScale}
	}
	return nil
}

func noTargets() error {
	return shared.Invalid("target", "mandatory campaign resolves to no units")
}
