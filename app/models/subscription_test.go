package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validSubscription() *Subscription {
	return &Subscription{
		UserID:       1,
		Name:         "Netflix",
		Price:        12.99,
		Currency:     "EUR",
		BillingCycle: BillingCycleMonthly,
		RenewalDate:  date(2026, 3, 15),
	}
}

func TestSubscriptionValidate(t *testing.T) {
	assert.NoError(t, validSubscription().Validate())

	noName := validSubscription()
	noName.Name = ""
	assert.Error(t, noName.Validate())

	badCurrency := validSubscription()
	badCurrency.Currency = "EURO"
	assert.Error(t, badCurrency.Validate())

	badCycle := validSubscription()
	badCycle.BillingCycle = "biweekly"
	assert.Error(t, badCycle.Validate())

	negative := validSubscription()
	negative.Price = -1
	assert.Error(t, negative.Validate())
}

func TestMonthlyPrice(t *testing.T) {
	tests := []struct {
		cycle string
		price float64
		want  float64
	}{
		{BillingCycleDaily, 1, 30},
		{BillingCycleWeekly, 12, 52},
		{BillingCycleMonthly, 9.99, 9.99},
		{BillingCycleQuarterly, 30, 10},
		{BillingCycleYearly, 120, 10},
	}
	for _, tt := range tests {
		sub := validSubscription()
		sub.BillingCycle = tt.cycle
		sub.Price = tt.price
		assert.InDelta(t, tt.want, sub.MonthlyPrice(), 0.001, "cycle %s", tt.cycle)
	}
}

func TestEffectiveBillingDate(t *testing.T) {
	sub := validSubscription()
	assert.Equal(t, date(2026, 3, 15), sub.EffectiveBillingDate())

	next := date(2026, 4, 15)
	sub.NextBillingDate = &next
	assert.Equal(t, next, sub.EffectiveBillingDate())
}

func TestIsDue(t *testing.T) {
	sub := validSubscription()
	assert.False(t, sub.IsDue(date(2026, 3, 14)))
	assert.True(t, sub.IsDue(date(2026, 3, 15)))
	assert.True(t, sub.IsDue(date(2026, 3, 20)))
}

func TestAdvanceBillingRecordsChargeAndMovesDate(t *testing.T) {
	sub := validSubscription()
	sub.ID = 3

	tx := sub.AdvanceBilling(date(2026, 3, 16))

	assert.Equal(t, uint(3), tx.SubscriptionID)
	assert.Equal(t, 12.99, tx.Amount)
	assert.Equal(t, date(2026, 3, 15), tx.Date)

	require.NotNil(t, sub.NextBillingDate)
	assert.Equal(t, date(2026, 4, 15), *sub.NextBillingDate)
	require.Len(t, sub.Transactions, 1)
}

func TestAdvanceBillingCatchesUpMissedPeriods(t *testing.T) {
	sub := validSubscription()

	// Three months late: the next date lands after now, not on the first
	// period that already passed.
	sub.AdvanceBilling(date(2026, 6, 20))

	require.NotNil(t, sub.NextBillingDate)
	assert.Equal(t, date(2026, 7, 15), *sub.NextBillingDate)
}

func TestAdvanceBillingYearly(t *testing.T) {
	sub := validSubscription()
	sub.BillingCycle = BillingCycleYearly

	sub.AdvanceBilling(date(2026, 3, 15))

	require.NotNil(t, sub.NextBillingDate)
	assert.Equal(t, date(2027, 3, 15), *sub.NextBillingDate)
}

func TestCycleDuration(t *testing.T) {
	assert.Equal(t, 24*time.Hour, CycleDuration(BillingCycleDaily))
	assert.Equal(t, 7*24*time.Hour, CycleDuration(BillingCycleWeekly))
	assert.Equal(t, 30*24*time.Hour, CycleDuration("unknown"))
}
