package reports

import (
	"context"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/shopspring/decimal"
)

type VendorBalanceRow struct {
	VendorId     int             `json:"vendorId"`
	VendorName   string          `json:"vendorName"`
	VendorType   string          `json:"vendorType"`
	WatakTotal   decimal.Decimal `json:"watakTotal"`
	InvoiceTotal decimal.Decimal `json:"invoiceTotal"`
	PaidTotal    decimal.Decimal `json:"paidTotal"`
	Balance      decimal.Decimal `json:"balance"`
}

type CustomerBalanceRow struct {
	CustomerId   int             `json:"customerId"`
	CustomerName string          `json:"customerName"`
	InvoiceTotal decimal.Decimal `json:"invoiceTotal"`
	PaidTotal    decimal.Decimal `json:"paidTotal"`
	Balance      decimal.Decimal `json:"balance"`
}

// GetVendorBalanceReport aggregates settlements, purchase invoices, and
// payments per vendor. Balance is the stored running balance, so the
// aggregate columns double as a reconciliation check against it.
func GetVendorBalanceReport(ctx context.Context) ([]*VendorBalanceRow, error) {
	sql := `
SELECT
    v.id AS vendor_id,
    v.name AS vendor_name,
    v.type AS vendor_type,
    COALESCE(vw.total, 0) AS watak_total,
    COALESCE(vi.total, 0) AS invoice_total,
    COALESCE(vp.total, 0) AS paid_total,
    v.balance
FROM vendors v
LEFT JOIN (
    SELECT vendor_id, SUM(net_payable) AS total FROM vendor_watak GROUP BY vendor_id
) vw ON vw.vendor_id = v.id
LEFT JOIN (
    SELECT vendor_id, SUM(total_amount) AS total FROM vendor_invoices GROUP BY vendor_id
) vi ON vi.vendor_id = v.id
LEFT JOIN (
    SELECT vendor_id, SUM(amount + discount) AS total FROM vendor_payments GROUP BY vendor_id
) vp ON vp.vendor_id = v.id
ORDER BY v.name;
`
	var rows []*VendorBalanceRow
	if cacheGet(vendorBalancesCacheKey, &rows) {
		return rows, nil
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql).Scan(&rows).Error; err != nil {
		return nil, err
	}
	cacheSet(vendorBalancesCacheKey, rows)
	return rows, nil
}

func GetCustomerBalanceReport(ctx context.Context) ([]*CustomerBalanceRow, error) {
	sql := `
SELECT
    c.id AS customer_id,
    c.name AS customer_name,
    COALESCE(ci.total, 0) AS invoice_total,
    COALESCE(cp.total, 0) AS paid_total,
    c.balance
FROM customers c
LEFT JOIN (
    SELECT customer_id, SUM(total_amount) AS total FROM customer_invoices GROUP BY customer_id
) ci ON ci.customer_id = c.id
LEFT JOIN (
    SELECT customer_id, SUM(amount) AS total FROM customer_payments GROUP BY customer_id
) cp ON cp.customer_id = c.id
ORDER BY c.name;
`
	var rows []*CustomerBalanceRow
	if cacheGet(customerBalancesCacheKey, &rows) {
		return rows, nil
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql).Scan(&rows).Error; err != nil {
		return nil, err
	}
	cacheSet(customerBalancesCacheKey, rows)
	return rows, nil
}
