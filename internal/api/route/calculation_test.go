package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reccalc/internal/types"
)

func TestCorrectionCoefficient(t *testing.T) {
	t.Run("NoImpacts", func(t *testing.T) {
		assert.Equal(t, 1.0, correctionCoefficient(nil))
		assert.Equal(t, 1.0, correctionCoefficient([]float64{}))
	})

	t.Run("NegativeImpactsAccumulate", func(t *testing.T) {
		assert.Equal(t, 0.75, correctionCoefficient([]float64{-0.1, -0.15}))
	})

	t.Run("ClampedAtFloor", func(t *testing.T) {
		assert.Equal(t, 0.1, correctionCoefficient([]float64{-0.5, -0.5, -0.5}))
	})

	t.Run("ClampedAtCeiling", func(t *testing.T) {
		// Impacts cannot raise capacity above the base value.
		assert.Equal(t, 1.0, correctionCoefficient([]float64{0.3}))
	})

	t.Run("RoundedToTwoDecimals", func(t *testing.T) {
		assert.Equal(t, 0.67, correctionCoefficient([]float64{-0.333}))
	})
}

func TestComputeFixedTime(t *testing.T) {
	params := types.RouteParams{
		RouteTimeType: types.RouteTimeFixed,
		TSut:          8.0,
		GS:            10,
		TDArray:       []float64{2.0, 2.0},
	}

	t.Run("NoCorrectionFactors", func(t *testing.T) {
		calc, err := Compute(params, nil, nil)
		require.NoError(t, err)

		assert.Equal(t, 1.0, calc.CFN)
		assert.Equal(t, 1.0, calc.MCoefficient)
		require.NotNil(t, calc.MaxGroups)
		assert.Equal(t, 4, *calc.MaxGroups)
		require.NotNil(t, calc.BCC)
		assert.Equal(t, 40, *calc.BCC)
		require.NotNil(t, calc.PCC)
		assert.Equal(t, 40, *calc.PCC)
		require.NotNil(t, calc.RCC)
		assert.Equal(t, 40, *calc.RCC)
	})

	t.Run("WithCorrectionFactors", func(t *testing.T) {
		calc, err := Compute(params, []float64{-0.1, -0.15}, []float64{-0.2})
		require.NoError(t, err)

		assert.Equal(t, 0.75, calc.CFN)
		assert.Equal(t, 0.8, calc.MCoefficient)
		// BCC 40, PCC = round(40 * 0.75) = 30, RCC = floor(30 * 0.8) = 24.
		assert.Equal(t, 40, *calc.BCC)
		assert.Equal(t, 30, *calc.PCC)
		assert.Equal(t, 24, *calc.RCC)
	})

	t.Run("MaxGroupsTruncates", func(t *testing.T) {
		p := params
		p.TDArray = []float64{3.0} // 8 / 3 = 2.66 -> 2 groups
		calc, err := Compute(p, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, *calc.MaxGroups)
		assert.Equal(t, 20, *calc.BCC)
	})

	t.Run("EmptyTdArrayRejected", func(t *testing.T) {
		p := params
		p.TDArray = nil
		_, err := Compute(p, nil, nil)
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestComputeUnlimitedTime(t *testing.T) {
	t.Run("IntegerDivision", func(t *testing.T) {
		calc, err := Compute(types.RouteParams{
			RouteTimeType: types.RouteTimeUnlimited,
			TSezon:        90,
			TL:            7,
			GS:            6,
		}, []float64{-0.1}, []float64{-0.2})
		require.NoError(t, err)

		// 90 / 7 = 12 traversals of 6 people.
		require.NotNil(t, calc.BCC)
		assert.Equal(t, 72, *calc.BCC)

		// Coefficients are still reported even though they gate nothing here.
		assert.Equal(t, 0.9, calc.CFN)
		assert.Equal(t, 0.8, calc.MCoefficient)

		assert.Nil(t, calc.PCC)
		assert.Nil(t, calc.RCC)
		assert.Nil(t, calc.MaxGroups)
	})

	t.Run("ZeroTraversalTimeRejected", func(t *testing.T) {
		_, err := Compute(types.RouteParams{
			RouteTimeType: types.RouteTimeUnlimited,
			TSezon:        90,
			GS:            6,
		}, nil, nil)
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestComputeUnknownTimeType(t *testing.T) {
	_, err := Compute(types.RouteParams{RouteTimeType: "sometimes"}, nil, nil)
	assert.ErrorIs(t, err, types.ErrValidation)
}
