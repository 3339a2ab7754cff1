package utils

import (
	"github.com/shopspring/decimal"
)

// Amount is the single authoritative line-amount rule. Weight-based
// pricing wins over quantity-based pricing; a line with neither weight
// nor quantity is worth nothing. No rounding here.
func Amount(quantity, weight, rate decimal.Decimal) decimal.Decimal {
	if weight.IsPositive() {
		return weight.Mul(rate)
	}
	if quantity.IsPositive() {
		return quantity.Mul(rate)
	}
	return decimal.Zero
}

// RoundToRupee rounds to the nearest whole rupee with ties going up
// (0.50 rounds up). Not banker's rounding.
func RoundToRupee(amount decimal.Decimal) decimal.Decimal {
	frac := amount.Sub(amount.Floor())
	if frac.GreaterThanOrEqual(decimal.NewFromFloat(0.5)) {
		return amount.Ceil()
	}
	return amount.Floor()
}

// WatakRounding holds the persisted cash figures of a watak settlement.
// All fields are integral decimals.
type WatakRounding struct {
	Commission        decimal.Decimal
	Labor             decimal.Decimal
	VehicleCharges    decimal.Decimal
	Bardan            decimal.Decimal
	OtherCharges      decimal.Decimal
	GoodsSaleProceeds decimal.Decimal
	NetPayable        decimal.Decimal
}

// RoundWatak applies the settlement rounding cascade once. Order
// matters: commission, labor and the flat charges are derived from the
// RAW total, not from the rounded goods sale proceeds.
func RoundWatak(totalAmount, commissionPercent, labor, vehicleCharges, bardan, otherCharges decimal.Decimal) WatakRounding {
	r := WatakRounding{
		Commission:     totalAmount.Mul(commissionPercent).Div(decimal.NewFromInt(100)).Floor(),
		Labor:          labor.Floor(),
		VehicleCharges: vehicleCharges.Floor(),
		Bardan:         bardan.Floor(),
		OtherCharges:   otherCharges.Floor(),
	}
	r.GoodsSaleProceeds = RoundToRupee(totalAmount)
	r.NetPayable = r.GoodsSaleProceeds.
		Sub(r.Commission).
		Sub(r.Labor).
		Sub(r.VehicleCharges).
		Sub(r.Bardan).
		Sub(r.OtherCharges).
		Floor()
	return r
}

type WeightedLine struct {
	Weight decimal.Decimal `json:"weight"`
	Amount decimal.Decimal `json:"amount"`
}

// WeightedTotals sums a list of {weight, amount} rows.
func WeightedTotals(lines []WeightedLine) (totalAmount, totalWeight decimal.Decimal) {
	for _, line := range lines {
		totalAmount = totalAmount.Add(line.Amount)
		totalWeight = totalWeight.Add(line.Weight)
	}
	return totalAmount, totalWeight
}

// AmountTotals sums a plain list of amounts. Subtotal and total are the
// same figure today; they diverge if a document-level charge is added.
func AmountTotals(amounts []decimal.Decimal) (subtotal, total decimal.Decimal) {
	for _, a := range amounts {
		subtotal = subtotal.Add(a)
	}
	return subtotal, subtotal
}
