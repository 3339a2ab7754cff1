package models

import "github.com/shopspring/decimal"

// VendorType drives the default commission and labor rates of a watak.
type VendorType string

const (
	VendorTypeLocal    VendorType = "Local"
	VendorTypeOutsider VendorType = "Outsider"
)

// DefaultCommissionPercent is the settlement commission applied when
// the caller does not override it.
func (t VendorType) DefaultCommissionPercent() decimal.Decimal {
	if t == VendorTypeOutsider {
		return decimal.NewFromInt(6)
	}
	return decimal.NewFromInt(10)
}

// DefaultLaborRate is the per-quantity labor charge applied when the
// caller does not override it.
func (t VendorType) DefaultLaborRate() decimal.Decimal {
	if t == VendorTypeOutsider {
		return decimal.NewFromInt(2)
	}
	return decimal.NewFromInt(1)
}

// VendorCategory drives which document type settles the vendor:
// commission-based vendors get wataks, purchase-based vendors get
// direct purchase invoices.
type VendorCategory string

const (
	VendorCategoryCommission VendorCategory = "Commission Based"
	VendorCategoryPurchase   VendorCategory = "Purchase Based"
)
