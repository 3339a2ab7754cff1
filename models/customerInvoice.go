package models

import (
	"context"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/shopspring/decimal"
)

// CustomerInvoice is a sale document. Every line depletes exactly one
// inventory line; mutations keep remaining stock and the customer
// balance in lockstep inside one transaction. Lines whose inventory
// target was swept away degrade to a recorded note.
type CustomerInvoice struct {
	ID          int                   `gorm:"primary_key" json:"id"`
	CustomerId  int                   `gorm:"index;not null" json:"customer_id" binding:"required"`
	Date        time.Time             `gorm:"not null" json:"date"`
	TotalAmount decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Items       []CustomerInvoiceItem `gorm:"foreignKey:InvoiceId" json:"items"`
	CreatedAt   time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

type CustomerInvoiceItem struct {
	ID        int `gorm:"primary_key" json:"id"`
	InvoiceId int `gorm:"index;not null" json:"invoice_id"`
	ItemId    int `gorm:"index;not null" json:"item_id"`
	VendorId  int `gorm:"index;default:0" json:"vendor_id"`
	// InventoryItemId references (not owns) the depleted stock line;
	// the line may be hard-deleted out-of-band once fully sold.
	InventoryItemId int             `gorm:"index;not null" json:"inventory_item_id"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Weight          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight"`
	Rate            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomerInvoice struct {
	CustomerId int                      `json:"customer_id" binding:"required" validate:"required"`
	Date       time.Time                `json:"date" binding:"required" validate:"required"`
	Items      []NewCustomerInvoiceItem `json:"items" binding:"required" validate:"required,min=1,dive"`
}

type NewCustomerInvoiceItem struct {
	ItemId          int             `json:"item_id" binding:"required" validate:"required"`
	VendorId        int             `json:"vendor_id"`
	InventoryItemId int             `json:"inventory_item_id" binding:"required" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	Weight          decimal.Decimal `json:"weight"`
	Rate            decimal.Decimal `json:"rate"`
}

func (input *NewCustomerInvoice) validate(ctx context.Context) error {
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return err
	}
	for _, line := range input.Items {
		if err := utils.ValidateResourceId[Item](ctx, line.ItemId); err != nil {
			return err
		}
	}
	return nil
}

// buildCustomerInvoiceItems recomputes every line amount server-side;
// a client-echoed amount is never persisted.
func buildCustomerInvoiceItems(input []NewCustomerInvoiceItem) ([]CustomerInvoiceItem, decimal.Decimal) {
	items := make([]CustomerInvoiceItem, 0, len(input))
	totalAmount := decimal.Zero
	for _, line := range input {
		amount := utils.Amount(line.Quantity, line.Weight, line.Rate)
		items = append(items, CustomerInvoiceItem{
			ItemId:          line.ItemId,
			VendorId:        line.VendorId,
			InventoryItemId: line.InventoryItemId,
			Quantity:        line.Quantity,
			Weight:          line.Weight,
			Rate:            line.Rate,
			Amount:          amount,
		})
		totalAmount = totalAmount.Add(amount)
	}
	return items, totalAmount
}

// sumQuantitiesByInventoryLine folds invoice lines into one release
// quantity per referenced inventory line.
func sumQuantitiesByInventoryLine(items []CustomerInvoiceItem) map[int]decimal.Decimal {
	sums := make(map[int]decimal.Decimal, len(items))
	for _, item := range items {
		if item.InventoryItemId <= 0 {
			continue
		}
		sums[item.InventoryItemId] = sums[item.InventoryItemId].Add(item.Quantity)
	}
	return sums
}

// itemNames loads the catalog names for the referenced items so stock
// errors and notes are reported by name.
func itemNames(ctx context.Context, ids []int) (map[int]string, error) {
	names := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var rows []Item
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

func collectItemIds(items []CustomerInvoiceItem) []int {
	ids := make([]int, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemId)
	}
	return ids
}

func CreateCustomerInvoice(ctx context.Context, input *NewCustomerInvoice) (*CustomerInvoice, []string, error) {
	if err := input.validate(ctx); err != nil {
		return nil, nil, err
	}

	items, totalAmount := buildCustomerInvoiceItems(input.Items)
	if totalAmount.IsZero() {
		return nil, nil, utils.NewValidationError("invoice has no valid lines")
	}
	names, err := itemNames(ctx, collectItemIds(items))
	if err != nil {
		return nil, nil, err
	}

	invoice := CustomerInvoice{
		CustomerId:  input.CustomerId,
		Date:        input.Date,
		TotalAmount: totalAmount,
		Items:       items,
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var notes []string
	for _, item := range invoice.Items {
		note, err := ReserveInventoryStock(tx, item.InventoryItemId, item.Quantity, names[item.ItemId])
		if err != nil {
			return nil, nil, err
		}
		if note != "" {
			notes = append(notes, note)
		}
	}

	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, nil, err
	}
	if err := adjustCustomerBalance(tx, invoice.CustomerId, invoice.TotalAmount); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	config.LogNotes(config.GetLogger(), "customerInvoice", "CreateCustomerInvoice", notes)
	return &invoice, notes, nil
}

func UpdateCustomerInvoice(ctx context.Context, id int, input *NewCustomerInvoice) (*CustomerInvoice, []string, error) {
	if err := input.validate(ctx); err != nil {
		return nil, nil, err
	}
	original, err := utils.FetchModel[CustomerInvoice](ctx, id, "Items")
	if err != nil {
		return nil, nil, err
	}

	items, totalAmount := buildCustomerInvoiceItems(input.Items)
	if totalAmount.IsZero() {
		return nil, nil, utils.NewValidationError("invoice has no valid lines")
	}
	names, err := itemNames(ctx, collectItemIds(items))
	if err != nil {
		return nil, nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var notes []string

	// restore the stock the original lines had consumed
	for inventoryItemId, qty := range sumQuantitiesByInventoryLine(original.Items) {
		note, err := ReleaseInventoryStock(tx, inventoryItemId, qty)
		if err != nil {
			return nil, nil, err
		}
		if note != "" {
			notes = append(notes, note)
		}
	}

	if err := adjustCustomerBalance(tx, original.CustomerId, original.TotalAmount.Neg()); err != nil {
		return nil, nil, err
	}

	// re-consume against the restored stock; any failure rolls back the
	// releases above as well, nothing is partially applied
	for _, item := range items {
		note, err := ReserveInventoryStock(tx, item.InventoryItemId, item.Quantity, names[item.ItemId])
		if err != nil {
			return nil, nil, err
		}
		if note != "" {
			notes = append(notes, note)
		}
	}

	if err := tx.WithContext(ctx).Where("invoice_id = ?", original.ID).Delete(&CustomerInvoiceItem{}).Error; err != nil {
		return nil, nil, err
	}
	for i := range items {
		items[i].InvoiceId = original.ID
	}
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, nil, err
	}

	if err := tx.WithContext(ctx).Model(&CustomerInvoice{ID: original.ID}).
		Updates(map[string]interface{}{
			"CustomerId":  input.CustomerId,
			"Date":        input.Date,
			"TotalAmount": totalAmount,
		}).Error; err != nil {
		return nil, nil, err
	}

	if err := adjustCustomerBalance(tx, input.CustomerId, totalAmount); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	config.LogNotes(config.GetLogger(), "customerInvoice", "UpdateCustomerInvoice", notes)
	result, err := utils.FetchModel[CustomerInvoice](ctx, original.ID, "Items")
	if err != nil {
		return nil, nil, err
	}
	return result, notes, nil
}

func DeleteCustomerInvoice(ctx context.Context, id int) (*CustomerInvoice, []string, error) {
	result, err := utils.FetchModel[CustomerInvoice](ctx, id, "Items")
	if err != nil {
		return nil, nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var notes []string
	for inventoryItemId, qty := range sumQuantitiesByInventoryLine(result.Items) {
		note, err := ReleaseInventoryStock(tx, inventoryItemId, qty)
		if err != nil {
			return nil, nil, err
		}
		if note != "" {
			notes = append(notes, note)
		}
	}

	if err := adjustCustomerBalance(tx, result.CustomerId, result.TotalAmount.Neg()); err != nil {
		return nil, nil, err
	}
	if err := tx.WithContext(ctx).Where("invoice_id = ?", result.ID).Delete(&CustomerInvoiceItem{}).Error; err != nil {
		return nil, nil, err
	}
	if err := tx.WithContext(ctx).Delete(&CustomerInvoice{}, result.ID).Error; err != nil {
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	config.LogNotes(config.GetLogger(), "customerInvoice", "DeleteCustomerInvoice", notes)
	return result, notes, nil
}

func GetCustomerInvoice(ctx context.Context, id int) (*CustomerInvoice, error) {
	return utils.FetchModel[CustomerInvoice](ctx, id, "Items")
}

func GetCustomerInvoices(ctx context.Context) ([]*CustomerInvoice, error) {
	return utils.FetchAllModels[CustomerInvoice](ctx, "Items")
}
