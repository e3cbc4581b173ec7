package billing

import (
	"fmt"
	"math"

	"github.com/condohub/condohub/internal/shared"
)

// NormalizeCoefficient converts an authored coefficient to the stored decimal
// fraction. Percentages are divided by 100. A decimal value above 1 fails
// with ErrCoefficientScale so forms can point at the wrong field.
func NormalizeCoefficient(value float64, format CoefficientFormat) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, shared.Invalid("coefficient", "must be a finite number")
	}
	if value < 0 {
		return 0, shared.Invalid("coefficient", "must not be negative")
	}
	switch format {
	case FormatPercent:
		if value > 100 {
			return 0, shared.Invalid("coefficient", "percentage above 100")
		}
		return value / 100, nil
	case FormatDecimal, "":
		if value > 1 {
			return 0, &shared.ValidationError{
				Field:  "coefficient",
				Reason: fmt.Sprintf("%g is above 1; enter it as a percentage", value),
				Err:    shared.ErrCoefficientScale,
			}
		}
		return value, nil
	default:
		return 0, shared.Invalid("coefficient_format", fmt.Sprintf("unknown format %q", format))
	}
}
