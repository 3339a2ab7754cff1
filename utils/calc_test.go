package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAmountWeightWinsOverQuantity(t *testing.T) {
	cases := []struct {
		name                   string
		quantity, weight, rate string
		want                   string
	}{
		{"quantity only", "10", "0", "5", "50"},
		{"weight wins", "10", "4", "5", "20"},
		{"weight only", "0", "2.5", "8", "20"},
		{"neither", "0", "0", "5", "0"},
		{"negative weight ignored", "10", "-1", "5", "50"},
		{"fractional", "0", "1.25", "4.4", "5.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Amount(dec(tc.quantity), dec(tc.weight), dec(tc.rate))
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("Amount(%s, %s, %s) = %s, want %s", tc.quantity, tc.weight, tc.rate, got, tc.want)
			}
		})
	}
}

func TestRoundToRupee(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1234.50", "1235"},
		{"1234.49", "1234"},
		{"1234.4999", "1234"},
		{"0.5", "1"},
		{"7", "7"},
		{"0", "0"},
	}
	for _, tc := range cases {
		got := RoundToRupee(dec(tc.in))
		if !got.Equal(dec(tc.want)) {
			t.Fatalf("RoundToRupee(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestRoundWatakCascade(t *testing.T) {
	r := RoundWatak(dec("1234.50"), dec("10"), dec("37.0"), dec("20.3"), dec("5.7"), dec("0"))

	if !r.Commission.Equal(dec("123")) {
		t.Errorf("commission = %s, want 123", r.Commission)
	}
	if !r.Labor.Equal(dec("37")) {
		t.Errorf("labor = %s, want 37", r.Labor)
	}
	if !r.VehicleCharges.Equal(dec("20")) {
		t.Errorf("vehicle charges = %s, want 20", r.VehicleCharges)
	}
	if !r.Bardan.Equal(dec("5")) {
		t.Errorf("bardan = %s, want 5", r.Bardan)
	}
	if !r.OtherCharges.Equal(dec("0")) {
		t.Errorf("other charges = %s, want 0", r.OtherCharges)
	}
	if !r.GoodsSaleProceeds.Equal(dec("1235")) {
		t.Errorf("goods sale proceeds = %s, want 1235", r.GoodsSaleProceeds)
	}
	if !r.NetPayable.Equal(dec("1050")) {
		t.Errorf("net payable = %s, want 1050", r.NetPayable)
	}
}

func TestRoundWatakDeductionsFloorFromRawTotal(t *testing.T) {
	// Deductions floor independently; proceeds round half up. A raw
	// total just under .5 keeps proceeds floored too.
	r := RoundWatak(dec("999.49"), dec("6"), dec("10.9"), dec("0"), dec("0"), dec("2.99"))
	if !r.Commission.Equal(dec("59")) { // 999.49 * 6% = 59.9694
		t.Errorf("commission = %s, want 59", r.Commission)
	}
	if !r.Labor.Equal(dec("10")) {
		t.Errorf("labor = %s, want 10", r.Labor)
	}
	if !r.OtherCharges.Equal(dec("2")) {
		t.Errorf("other charges = %s, want 2", r.OtherCharges)
	}
	if !r.GoodsSaleProceeds.Equal(dec("999")) {
		t.Errorf("goods sale proceeds = %s, want 999", r.GoodsSaleProceeds)
	}
	if !r.NetPayable.Equal(dec("928")) { // 999 - 59 - 10 - 2
		t.Errorf("net payable = %s, want 928", r.NetPayable)
	}
}

func TestWeightedTotals(t *testing.T) {
	lines := []WeightedLine{
		{Weight: dec("2"), Amount: dec("20")},
		{Weight: dec("0"), Amount: dec("50")},
		{Weight: dec("1.5"), Amount: dec("6.6")},
	}
	totalAmount, totalWeight := WeightedTotals(lines)
	if !totalAmount.Equal(dec("76.6")) {
		t.Errorf("total amount = %s, want 76.6", totalAmount)
	}
	if !totalWeight.Equal(dec("3.5")) {
		t.Errorf("total weight = %s, want 3.5", totalWeight)
	}
}

func TestAmountTotals(t *testing.T) {
	subtotal, total := AmountTotals([]decimal.Decimal{dec("50"), dec("20"), dec("0")})
	if !subtotal.Equal(dec("70")) {
		t.Errorf("subtotal = %s, want 70", subtotal)
	}
	if !total.Equal(dec("70")) {
		t.Errorf("total = %s, want 70", total)
	}
}
