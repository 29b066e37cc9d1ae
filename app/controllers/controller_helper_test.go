package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2026, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestFormatDatePtr(t *testing.T) {
	assert.Nil(t, formatDatePtr(nil))

	d := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-05-01", formatDatePtr(&d))
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("01.05.2026")
	assert.Error(t, err)
}

func TestParseDatePtr(t *testing.T) {
	p, err := parseDatePtr("")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = parseDatePtr("2026-05-01")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "2026-05-01", p.Format(dateLayout))

	_, err = parseDatePtr("garbage")
	assert.Error(t, err)
}

func TestSubscriptionRequestToModel(t *testing.T) {
	req := subscriptionRequest{
		Name:         "Netflix",
		Price:        12.99,
		Currency:     "EUR",
		BillingCycle: "monthly",
		RenewalDate:  "2026-03-15",
	}

	sub, err := req.toModel(5)
	require.NoError(t, err)
	assert.Equal(t, uint(5), sub.UserID)
	assert.Equal(t, "Netflix", sub.Name)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), sub.RenewalDate)
	assert.Nil(t, sub.NextBillingDate)

	req.NextBillingDate = "2026-04-15"
	sub, err = req.toModel(5)
	require.NoError(t, err)
	require.NotNil(t, sub.NextBillingDate)

	req.RenewalDate = "not-a-date"
	_, err = req.toModel(5)
	assert.Error(t, err)
}
