// Package pricing decides whether a line item was sold at a discount and
// produces the canonical price decomposition. Both live capture and the
// legacy backfill go through Decompose so the two paths can never
// diverge in rounding or thresholding.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

// Module provides the calculator.
var Module = fx.Module("pricing",
	fx.Provide(NewCalculator),
)

// ErrInvalidQuantity is returned for a zero or negative quantity. The
// offending line is skipped by callers, never treated as fatal.
var ErrInvalidQuantity = errors.New("pricing: quantity must be positive")

// SaleFlag is the tri-state discount verdict for a line item.
type SaleFlag string

const (
	SaleYes SaleFlag = "yes"
	SaleNo  SaleFlag = "no"

	// SaleUnknown is used only when the originating product could not be
	// resolved, so no regular price was available for comparison.
	SaleUnknown SaleFlag = "unknown"
)

const (
	amountScale  = 4
	percentScale = 2

	// unitScale keeps the intermediate per-unit division precise enough
	// that the rounded outputs are stable across both capture paths.
	unitScale = 8
)

// Decomposition is one computed discount fact before persistence.
type Decomposition struct {
	RegularPrice      decimal.NullDecimal
	RealizedUnitPrice decimal.Decimal
	DiscountAmount    decimal.Decimal
	DiscountPct       decimal.Decimal
	Quantity          decimal.Decimal
	WasOnSale         SaleFlag
}

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Decompose computes the discount decomposition for a single line item.
// lineSubtotal is the pre-coupon line amount; regular may be absent when
// the source product no longer exists.
func (c *Calculator) Decompose(regular decimal.NullDecimal, lineSubtotal, quantity decimal.Decimal) (Decomposition, error) {
	if quantity.Sign() <= 0 {
		return Decomposition{}, ErrInvalidQuantity
	}

	unit := lineSubtotal.DivRound(quantity, unitScale)

	out := Decomposition{
		RegularPrice:      regular,
		RealizedUnitPrice: unit,
		DiscountAmount:    decimal.Zero,
		DiscountPct:       decimal.Zero,
		Quantity:          quantity,
	}

	if !regular.Valid || regular.Decimal.Sign() <= 0 {
		out.RegularPrice = decimal.NullDecimal{}
		out.WasOnSale = SaleUnknown
		return out, nil
	}

	if unit.LessThan(regular.Decimal) {
		amount := regular.Decimal.Sub(unit).Round(amountScale)
		out.DiscountAmount = amount
		out.DiscountPct = amount.Div(regular.Decimal).Mul(decimal.NewFromInt(100)).Round(percentScale)
		out.WasOnSale = SaleYes
		return out, nil
	}

	// Sold at or above regular price, including the negative-discount
	// case, clamps to not-on-sale.
	out.WasOnSale = SaleNo
	return out, nil
}
