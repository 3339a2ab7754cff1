package models

import (
	"log"

	"github.com/ibrahim-bhat/billflow_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Vendor{}, &Customer{}, &Item{},
		&Inventory{}, &InventoryItem{},
		&VendorWatak{}, &WatakItem{},
		&VendorInvoice{}, &VendorInvoiceItem{},
		&CustomerInvoice{}, &CustomerInvoiceItem{},
		&VendorPayment{}, &CustomerPayment{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
