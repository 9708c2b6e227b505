package route

import (
	"fmt"
	"math"

	"reccalc/internal/types"
)

// Correction coefficients start at 1.0, accumulate the signed impacts of the
// selected factors and are clamped to [0.1, 1.0]: limiting conditions can
// only reduce capacity, never raise it above the base value.
const (
	coefficientFloor = 0.1
	coefficientCeil  = 1.0
)

// correctionCoefficient folds factor impacts into a clamped coefficient,
// rounded to two decimals.
func correctionCoefficient(impacts []float64) float64 {
	c := 1.0
	for _, impact := range impacts {
		c += impact
	}
	if c < coefficientFloor {
		c = coefficientFloor
	}
	if c > coefficientCeil {
		c = coefficientCeil
	}
	return math.Round(c*100) / 100
}

func averageTd(tdArray []float64) float64 {
	if len(tdArray) == 0 {
		return 0
	}
	sum := 0.0
	for _, td := range tdArray {
		sum += td
	}
	return sum / float64(len(tdArray))
}

// Compute derives the carrying-capacity metrics for a route given the impact
// values of its selected ecological and management factors.
//
// Fixed-time routes: maxGroups = floor(tSut / avg(td)), BCC = maxGroups * GS,
// PCC = round(BCC * CFN), RCC = floor(PCC * M).
// Unlimited-time routes: BCC = (tSezon / TL) * GS using integer division;
// the remaining metrics do not apply and stay nil.
func Compute(p types.RouteParams, ecoImpacts, mgmtImpacts []float64) (*types.RouteCalculation, error) {
	calc := &types.RouteCalculation{
		CFN:          correctionCoefficient(ecoImpacts),
		MCoefficient: correctionCoefficient(mgmtImpacts),
	}

	switch p.RouteTimeType {
	case types.RouteTimeFixed:
		avg := averageTd(p.TDArray)
		if avg <= 0 {
			return nil, fmt.Errorf("segment traversal times must be positive: %w", types.ErrValidation)
		}
		maxGroups := int(p.TSut / avg)
		bcc := maxGroups * p.GS
		pcc := int(math.Round(float64(bcc) * calc.CFN))
		rcc := int(math.Floor(float64(pcc) * calc.MCoefficient))

		calc.MaxGroups = &maxGroups
		calc.BCC = &bcc
		calc.PCC = &pcc
		calc.RCC = &rcc

	case types.RouteTimeUnlimited:
		if p.TL <= 0 {
			return nil, fmt.Errorf("route traversal time must be positive: %w", types.ErrValidation)
		}
		bcc := (p.TSezon / p.TL) * p.GS
		calc.BCC = &bcc

	default:
		return nil, fmt.Errorf("unknown route time type %q: %w", p.RouteTimeType, types.ErrValidation)
	}

	return calc, nil
}
