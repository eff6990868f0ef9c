package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tontina/caisse-engine/internal/domain/service"
)

var (
	dueDate     = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	installment = decimal.NewFromInt(100000)
	rules       = service.PenaltyRules{PerDayRate: decimal.NewFromFloat(0.005)}
)

func paidAfter(days int) time.Time {
	return dueDate.AddDate(0, 0, days)
}

func TestPenaltyCalculator_DaysLate(t *testing.T) {
	calc := service.NewPenaltyCalculator()

	assert.Equal(t, 0, calc.DaysLate(dueDate, dueDate))
	assert.Equal(t, 0, calc.DaysLate(dueDate, paidAfter(-5)))
	assert.Equal(t, 1, calc.DaysLate(dueDate, paidAfter(1)))
	assert.Equal(t, 12, calc.DaysLate(dueDate, paidAfter(12)))

	// Fractions of a day do not count as a full day late.
	assert.Equal(t, 0, calc.DaysLate(dueDate, dueDate.Add(18*time.Hour)))
}

func TestPenaltyCalculator_Estimate(t *testing.T) {
	calc := service.NewPenaltyCalculator()

	assert.True(t, calc.Estimate(installment, 0).IsZero())

	// One thirtieth of the installment per day, rounded half-up.
	got := calc.Estimate(installment, 3)
	assert.True(t, decimal.NewFromInt(10000).Equal(got), "expected 10000, got %s", got)

	got = calc.Estimate(decimal.NewFromInt(100), 1)
	assert.True(t, decimal.NewFromInt(3).Equal(got), "expected 3, got %s", got)
}

func TestPenaltyCalculator_Assess(t *testing.T) {
	calc := service.NewPenaltyCalculator()

	t.Run("on time", func(t *testing.T) {
		a := calc.Assess(installment, dueDate, dueDate, rules)
		assert.Equal(t, 0, a.DaysLate)
		assert.True(t, a.Applied.IsZero())
		assert.False(t, a.Tolerance)
		assert.False(t, a.BeyondPenaltyWindow)
		assert.Equal(t, 10, a.QualityScore)
		assert.Equal(t, "on time", a.Remark)
	})

	t.Run("tolerance window", func(t *testing.T) {
		a := calc.Assess(installment, dueDate, paidAfter(3), rules)
		assert.Equal(t, 3, a.DaysLate)
		assert.True(t, a.Applied.IsZero())
		assert.True(t, a.Tolerance)
		assert.Equal(t, 8, a.QualityScore)
	})

	t.Run("penalty band", func(t *testing.T) {
		a := calc.Assess(installment, dueDate, paidAfter(5), rules)
		assert.Equal(t, 5, a.DaysLate)
		assert.False(t, a.Tolerance)
		// 100000 * 0.005 * 5
		assert.True(t, decimal.NewFromInt(2500).Equal(a.Applied), "expected 2500, got %s", a.Applied)
		assert.Equal(t, 8, a.QualityScore)
	})

	t.Run("edge of penalty band", func(t *testing.T) {
		a := calc.Assess(installment, dueDate, paidAfter(12), rules)
		assert.True(t, decimal.NewFromInt(6000).Equal(a.Applied), "expected 6000, got %s", a.Applied)
		assert.False(t, a.BeyondPenaltyWindow)
		assert.Equal(t, 6, a.QualityScore)
	})

	t.Run("beyond the window", func(t *testing.T) {
		a := calc.Assess(installment, dueDate, paidAfter(13), rules)
		assert.True(t, a.Applied.IsZero())
		assert.True(t, a.BeyondPenaltyWindow)
		assert.Equal(t, 6, a.QualityScore)
	})

	t.Run("score bands on long delays", func(t *testing.T) {
		a := calc.Assess(installment, dueDate, paidAfter(20), rules)
		assert.Equal(t, 4, a.QualityScore)
		assert.Equal(t, "serious delay", a.Remark)

		a = calc.Assess(installment, dueDate, paidAfter(45), rules)
		assert.Equal(t, 2, a.QualityScore)

		a = calc.Assess(installment, dueDate, paidAfter(61), rules)
		assert.Equal(t, 1, a.QualityScore)
		assert.Equal(t, "critical delay", a.Remark)
	})
}
