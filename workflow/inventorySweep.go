package workflow

import (
	"context"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/models/reports"
	"github.com/ibrahim-bhat/billflow_backend/utils"
)

var inventorySweepModuleName string = "workflow"

// SweepResult reports what a sweep run removed.
type SweepResult struct {
	LinesRemoved   int64 `json:"lines_removed"`
	BatchesRemoved int64 `json:"batches_removed"`
}

// RunInventorySweep deletes fully consumed inventory lines that are covered by
// a settlement, then drops inventory batches left with no lines. A line is
// covered when a watak item references it directly, or (for rows written
// before explicit references existed) when a watak for the same vendor and
// receipt date carries a matching item name.
//
// The sweep is serialized with a global lock so concurrent runs cannot race
// each other or an in-flight settlement write.
func RunInventorySweep(ctx context.Context) (*SweepResult, error) {
	functionName := "RunInventorySweep"
	logger := config.GetLogger()

	release, err := utils.GlobalLock(ctx, "inventorySweep", inventorySweepModuleName, functionName)
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB().WithContext(ctx)
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() {
		_ = tx.Rollback().Error
	}()

	result := &SweepResult{}

	lineDelete := tx.Exec(`
		DELETE ii FROM inventory_items ii
		JOIN inventory inv ON inv.id = ii.inventory_id
		JOIN items it ON it.id = ii.item_id
		WHERE ii.remaining_stock = 0
		  AND EXISTS (
			SELECT 1 FROM watak_items wi
			JOIN vendor_watak vw ON vw.id = wi.watak_id
			WHERE wi.inventory_item_id = ii.id
			   OR (wi.inventory_item_id = 0
				AND vw.vendor_id = inv.vendor_id
				AND DATE(vw.inventory_date) = DATE(inv.date_received)
				AND LOWER(wi.item_name) = LOWER(it.name))
		  )`)
	if lineDelete.Error != nil {
		config.LogError(logger, inventorySweepModuleName, functionName, "delete consumed inventory lines", nil, lineDelete.Error)
		return nil, lineDelete.Error
	}
	result.LinesRemoved = lineDelete.RowsAffected

	batchDelete := tx.Exec(`
		DELETE inv FROM inventory inv
		WHERE NOT EXISTS (
			SELECT 1 FROM inventory_items ii WHERE ii.inventory_id = inv.id
		)`)
	if batchDelete.Error != nil {
		config.LogError(logger, inventorySweepModuleName, functionName, "delete empty inventory batches", nil, batchDelete.Error)
		return nil, batchDelete.Error
	}
	result.BatchesRemoved = batchDelete.RowsAffected

	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, inventorySweepModuleName, functionName, "commit sweep", nil, err)
		return nil, err
	}

	if result.LinesRemoved > 0 || result.BatchesRemoved > 0 {
		reports.InvalidateStockSummaryCache()
	}

	logger.WithField("module", inventorySweepModuleName).WithField("function", functionName).
		Infof("inventory sweep removed %d lines and %d empty batches", result.LinesRemoved, result.BatchesRemoved)
	return result, nil
}
