package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestBuildWatakItemsDropsInvalidLines(t *testing.T) {
	input := []NewWatakItem{
		{Name: "Apple", Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(5)},
		{Name: "", Quantity: decimal.NewFromInt(3), Rate: decimal.NewFromInt(5)},
		{Name: "Banana", Quantity: decimal.Zero, Rate: decimal.NewFromInt(5)},
		{Name: "Cherry", Quantity: decimal.NewFromInt(2), Rate: decimal.Zero},
	}
	items, totalAmount, totalLabor := buildWatakItems(input, decimal.NewFromInt(10), decimal.NewFromInt(1))
	if len(items) != 1 {
		t.Fatalf("kept %d lines, want 1", len(items))
	}
	if items[0].ItemName != "Apple" {
		t.Errorf("kept line %q, want Apple", items[0].ItemName)
	}
	if !totalAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("total amount = %s, want 50", totalAmount)
	}
	if !totalLabor.Equal(decimal.NewFromInt(10)) {
		t.Errorf("total labor = %s, want 10", totalLabor)
	}
}

func TestBuildWatakItemsWeightWinsOverQuantity(t *testing.T) {
	input := []NewWatakItem{
		{Name: "Apple", Quantity: decimal.NewFromInt(10), Weight: decimal.NewFromInt(4), Rate: decimal.NewFromInt(5)},
	}
	items, totalAmount, _ := buildWatakItems(input, decimal.NewFromInt(10), decimal.NewFromInt(1))
	if !items[0].Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("line amount = %s, want 20 (weight-priced)", items[0].Amount)
	}
	if !totalAmount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("total amount = %s, want 20", totalAmount)
	}
}

func TestBuildWatakItemsCustomerAmountOverride(t *testing.T) {
	override := dec(t, "47.5")
	zero := decimal.Zero
	input := []NewWatakItem{
		{Name: "Apple", Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(5), CustomerAmount: &override},
		{Name: "Banana", Quantity: decimal.NewFromInt(2), Rate: decimal.NewFromInt(3), CustomerAmount: &zero},
	}
	items, totalAmount, _ := buildWatakItems(input, decimal.NewFromInt(10), decimal.NewFromInt(1))
	if !items[0].Amount.Equal(override) {
		t.Errorf("overridden amount = %s, want 47.5", items[0].Amount)
	}
	// Zero override falls back to the computed amount.
	if !items[1].Amount.Equal(decimal.NewFromInt(6)) {
		t.Errorf("non-overridden amount = %s, want 6", items[1].Amount)
	}
	if !totalAmount.Equal(dec(t, "53.5")) {
		t.Errorf("total amount = %s, want 53.5", totalAmount)
	}
}

func TestBuildWatakItemsKradeLaborExemption(t *testing.T) {
	input := []NewWatakItem{
		{Name: "KRADE", Quantity: decimal.NewFromInt(100), Rate: decimal.NewFromInt(2)},
		{Name: "Apple", Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(5)},
	}
	items, _, totalLabor := buildWatakItems(input, decimal.NewFromInt(10), decimal.NewFromInt(2))
	if !items[0].Labor.IsZero() {
		t.Errorf("krade labor = %s, want 0", items[0].Labor)
	}
	if !items[1].Labor.Equal(decimal.NewFromInt(20)) {
		t.Errorf("apple labor = %s, want 20", items[1].Labor)
	}
	if !totalLabor.Equal(decimal.NewFromInt(20)) {
		t.Errorf("total labor = %s, want 20", totalLabor)
	}
}

func TestWatakRatesDefaultsByVendorType(t *testing.T) {
	local := &Vendor{Type: VendorTypeLocal}
	outsider := &Vendor{Type: VendorTypeOutsider}
	input := &NewVendorWatak{}

	commission, labor := watakRates(local, input)
	if !commission.Equal(decimal.NewFromInt(10)) || !labor.Equal(decimal.NewFromInt(1)) {
		t.Errorf("local defaults = (%s, %s), want (10, 1)", commission, labor)
	}
	commission, labor = watakRates(outsider, input)
	if !commission.Equal(decimal.NewFromInt(6)) || !labor.Equal(decimal.NewFromInt(2)) {
		t.Errorf("outsider defaults = (%s, %s), want (6, 2)", commission, labor)
	}
}

func TestWatakRatesOverrides(t *testing.T) {
	vendor := &Vendor{Type: VendorTypeLocal}
	pct := dec(t, "7.5")
	zeroLabor := decimal.Zero
	input := &NewVendorWatak{CommissionPercent: &pct, LaborRate: &zeroLabor}

	commission, labor := watakRates(vendor, input)
	if !commission.Equal(pct) {
		t.Errorf("commission = %s, want 7.5", commission)
	}
	// Zero is a valid labor rate override; negative is not.
	if !labor.IsZero() {
		t.Errorf("labor rate = %s, want 0", labor)
	}
}

func TestSumQuantitiesByInventoryLine(t *testing.T) {
	items := []CustomerInvoiceItem{
		{InventoryItemId: 7, Quantity: decimal.NewFromInt(3)},
		{InventoryItemId: 7, Quantity: decimal.NewFromInt(2)},
		{InventoryItemId: 9, Quantity: decimal.NewFromInt(1)},
		{InventoryItemId: 0, Quantity: decimal.NewFromInt(99)},
	}
	sums := sumQuantitiesByInventoryLine(items)
	if len(sums) != 2 {
		t.Fatalf("got %d inventory lines, want 2", len(sums))
	}
	if !sums[7].Equal(decimal.NewFromInt(5)) {
		t.Errorf("line 7 total = %s, want 5", sums[7])
	}
	if !sums[9].Equal(decimal.NewFromInt(1)) {
		t.Errorf("line 9 total = %s, want 1", sums[9])
	}
}
