package reports

import (
	"context"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/shopspring/decimal"
)

type StockSummaryRow struct {
	InventoryItemId  int             `json:"inventoryItemId"`
	VendorId         int             `json:"vendorId"`
	VendorName       string          `json:"vendorName"`
	DateReceived     time.Time       `json:"dateReceived"`
	ItemName         string          `json:"itemName"`
	QuantityReceived decimal.Decimal `json:"quantityReceived"`
	QuantitySold     decimal.Decimal `json:"quantitySold"`
	RemainingStock   decimal.Decimal `json:"remainingStock"`
}

// GetStockSummaryReport lists every inventory line with how much of it has
// been sold so far. Lines the sweep already removed do not appear.
func GetStockSummaryReport(ctx context.Context, vendorId *int) ([]*StockSummaryRow, error) {
	sql := `
SELECT
    ii.id AS inventory_item_id,
    inv.vendor_id,
    v.name AS vendor_name,
    inv.date_received,
    it.name AS item_name,
    ii.quantity_received,
    ii.quantity_received - ii.remaining_stock AS quantity_sold,
    ii.remaining_stock
FROM inventory_items ii
JOIN inventory inv ON inv.id = ii.inventory_id
JOIN vendors v ON v.id = inv.vendor_id
JOIN items it ON it.id = ii.item_id
`
	// Only the unfiltered report is cached; vendor-filtered calls are
	// cheap and rare.
	filterVendorId := utils.DereferencePtr(vendorId)
	var rows []*StockSummaryRow
	if filterVendorId <= 0 && cacheGet(stockSummaryCacheKey, &rows) {
		return rows, nil
	}

	args := []interface{}{}
	if filterVendorId > 0 {
		sql += "WHERE inv.vendor_id = ?\n"
		args = append(args, filterVendorId)
	}
	sql += "ORDER BY inv.date_received, v.name, it.name;"

	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if filterVendorId <= 0 {
		cacheSet(stockSummaryCacheKey, rows)
	}
	return rows, nil
}
