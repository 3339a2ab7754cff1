package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/ibrahim-bhat/billflow_backend/workflow"
)

// Standalone sweep runner, for cron or manual cleanup. The HTTP
// endpoint runs the same workflow; both serialize on the same lock.
func main() {
	dryRun := flag.Bool("dry-run", false, "report what would be removed without deleting anything")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx := utils.SetActorInContext(context.Background(), "InventorySweep")

	if *dryRun {
		var lines, batches int64
		err := db.WithContext(ctx).Raw(`
			SELECT COUNT(*) FROM inventory_items ii
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
			  )`).Scan(&lines).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "dry run failed: %v\n", err)
			os.Exit(1)
		}
		err = db.WithContext(ctx).Raw(`
			SELECT COUNT(*) FROM inventory inv
			WHERE NOT EXISTS (SELECT 1 FROM inventory_items ii WHERE ii.inventory_id = inv.id)`).Scan(&batches).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "dry run failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("dry run: %d consumed lines and %d empty batches eligible\n", lines, batches)
		return
	}

	result, err := workflow.RunInventorySweep(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweep failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("sweep removed %d lines and %d empty batches\n", result.LinesRemoved, result.BatchesRemoved)
}
