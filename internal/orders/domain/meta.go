package domain

// Metadata keys exposed to the host platform. The five item-level keys
// are the denormalized discount representation older installs relied on;
// the order-level key is the capture-completion marker.
const (
	MetaCaptured = "_promolens_captured"

	MetaRegularPrice  = "_promolens_regular_price"
	MetaSalePrice     = "_promolens_sale_price"
	MetaDiscountAmt   = "_promolens_discount_amount"
	MetaDiscountPct   = "_promolens_discount_percentage"
	MetaWasOnSale     = "_promolens_was_on_sale"
	MetaCapturedValue = "yes"
)
