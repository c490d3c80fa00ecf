package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(s), Valid: true}
}

func TestDecomposeDiscounted(t *testing.T) {
	c := NewCalculator()

	// regular 100, 2 units sold for 160 total -> unit 80, 20% off.
	out, err := c.Decompose(nullDec("100"), dec("160"), dec("2"))
	require.NoError(t, err)

	assert.Equal(t, SaleYes, out.WasOnSale)
	assert.True(t, out.RealizedUnitPrice.Equal(dec("80")), "unit price %s", out.RealizedUnitPrice)
	assert.True(t, out.DiscountAmount.Equal(dec("20")), "amount %s", out.DiscountAmount)
	assert.True(t, out.DiscountPct.Equal(dec("20")), "pct %s", out.DiscountPct)
}

func TestDecomposeRounding(t *testing.T) {
	c := NewCalculator()

	// regular 9.99, 3 units for 26.00 -> unit 8.66667, amount rounds to
	// 4 places and pct to 2.
	out, err := c.Decompose(nullDec("9.99"), dec("26.00"), dec("3"))
	require.NoError(t, err)

	assert.Equal(t, SaleYes, out.WasOnSale)
	assert.True(t, out.DiscountAmount.Equal(dec("1.3233")), "amount %s", out.DiscountAmount)
	assert.True(t, out.DiscountPct.Equal(dec("13.25")), "pct %s", out.DiscountPct)
}

func TestDecomposeFullPrice(t *testing.T) {
	c := NewCalculator()

	out, err := c.Decompose(nullDec("50"), dec("50"), dec("1"))
	require.NoError(t, err)

	assert.Equal(t, SaleNo, out.WasOnSale)
	assert.True(t, out.DiscountAmount.IsZero())
	assert.True(t, out.DiscountPct.IsZero())
}

func TestDecomposeSoldAboveRegularClampsToNoSale(t *testing.T) {
	c := NewCalculator()

	out, err := c.Decompose(nullDec("50"), dec("120"), dec("2"))
	require.NoError(t, err)

	assert.Equal(t, SaleNo, out.WasOnSale)
	assert.True(t, out.DiscountAmount.IsZero())
	assert.True(t, out.DiscountPct.IsZero())
	assert.True(t, out.RealizedUnitPrice.Equal(dec("60")))
}

func TestDecomposeMissingRegularPrice(t *testing.T) {
	c := NewCalculator()

	out, err := c.Decompose(decimal.NullDecimal{}, dec("30"), dec("2"))
	require.NoError(t, err)

	assert.Equal(t, SaleUnknown, out.WasOnSale)
	assert.False(t, out.RegularPrice.Valid)
	assert.True(t, out.DiscountAmount.IsZero())
	assert.True(t, out.DiscountPct.IsZero())
	assert.True(t, out.RealizedUnitPrice.Equal(dec("15")))
}

func TestDecomposeZeroRegularPriceTreatedAsUnknown(t *testing.T) {
	c := NewCalculator()

	out, err := c.Decompose(nullDec("0"), dec("10"), dec("1"))
	require.NoError(t, err)

	assert.Equal(t, SaleUnknown, out.WasOnSale)
	assert.False(t, out.RegularPrice.Valid)
}

func TestDecomposeRejectsNonPositiveQuantity(t *testing.T) {
	c := NewCalculator()

	_, err := c.Decompose(nullDec("10"), dec("10"), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = c.Decompose(nullDec("10"), dec("10"), dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
