package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "12.99 €", FormatCurrency(12.99, "EUR"))
	assert.Equal(t, "$9.50", FormatCurrency(9.5, "USD"))
	assert.Equal(t, "£3.00", FormatCurrency(3, "GBP"))
	assert.Equal(t, "100.00 zł", FormatCurrency(100, "pln"))
	assert.Equal(t, "42.00 XYZ", FormatCurrency(42, "xyz"))
	assert.Equal(t, "7.00 CHF", FormatCurrency(7, " CHF "))
}
