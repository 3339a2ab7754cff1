package models

import (
	"context"
	"fmt"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/shopspring/decimal"
)

// VendorInvoice is a direct purchase document for purchase-based
// vendors. Stock for purchased goods is entered separately as an
// inventory batch; the invoice itself has no stock linkage.
type VendorInvoice struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	VendorId      int                 `gorm:"index;not null" json:"vendor_id" binding:"required"`
	InvoiceNumber string              `gorm:"size:50;not null" json:"invoice_number"`
	SequenceNo    int64               `gorm:"index;default:0" json:"sequence_no"`
	InvoiceDate   time.Time           `gorm:"not null" json:"invoice_date"`
	TotalAmount   decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Items         []VendorInvoiceItem `gorm:"foreignKey:InvoiceId" json:"items"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type VendorInvoiceItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	InvoiceId int             `gorm:"index;not null" json:"invoice_id"`
	ItemId    int             `gorm:"index;not null" json:"item_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Weight    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight"`
	Rate      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendorInvoice struct {
	VendorId    int                    `json:"vendor_id" binding:"required" validate:"required"`
	InvoiceDate time.Time              `json:"invoice_date" binding:"required" validate:"required"`
	Items       []NewVendorInvoiceItem `json:"items" binding:"required" validate:"required,min=1,dive"`
}

type NewVendorInvoiceItem struct {
	ItemId   int             `json:"item_id" binding:"required" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Weight   decimal.Decimal `json:"weight"`
	Rate     decimal.Decimal `json:"rate"`
}

// buildVendorInvoiceItems recomputes every line amount server-side.
func buildVendorInvoiceItems(input []NewVendorInvoiceItem) ([]VendorInvoiceItem, decimal.Decimal) {
	items := make([]VendorInvoiceItem, 0, len(input))
	totalAmount := decimal.Zero
	for _, line := range input {
		amount := utils.Amount(line.Quantity, line.Weight, line.Rate)
		items = append(items, VendorInvoiceItem{
			ItemId:   line.ItemId,
			Quantity: line.Quantity,
			Weight:   line.Weight,
			Rate:     line.Rate,
			Amount:   amount,
		})
		totalAmount = totalAmount.Add(amount)
	}
	return items, totalAmount
}

func (input *NewVendorInvoice) validate(ctx context.Context) error {
	if err := utils.ValidateInput(input); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Vendor](ctx, input.VendorId); err != nil {
		return err
	}
	for _, line := range input.Items {
		if err := utils.ValidateResourceId[Item](ctx, line.ItemId); err != nil {
			return err
		}
	}
	return nil
}

func CreateVendorInvoice(ctx context.Context, input *NewVendorInvoice) (*VendorInvoice, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	items, totalAmount := buildVendorInvoiceItems(input.Items)
	if totalAmount.IsZero() {
		return nil, utils.NewValidationError("invoice has no valid lines")
	}

	invoice := VendorInvoice{
		VendorId:    input.VendorId,
		InvoiceDate: input.InvoiceDate,
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

	seqNo, err := utils.GetSequence[VendorInvoice](ctx)
	if err != nil {
		return nil, err
	}
	invoice.SequenceNo = seqNo
	invoice.InvoiceNumber = "PI-" + fmt.Sprint(seqNo)

	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	if err := adjustVendorBalance(tx, invoice.VendorId, invoice.TotalAmount); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func UpdateVendorInvoice(ctx context.Context, id int, input *NewVendorInvoice) (*VendorInvoice, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	original, err := utils.FetchModel[VendorInvoice](ctx, id, "Items")
	if err != nil {
		return nil, err
	}

	items, totalAmount := buildVendorInvoiceItems(input.Items)
	if totalAmount.IsZero() {
		return nil, utils.NewValidationError("invoice has no valid lines")
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

	if err := adjustVendorBalance(tx, original.VendorId, original.TotalAmount.Neg()); err != nil {
		return nil, err
	}

	if err := tx.WithContext(ctx).Where("invoice_id = ?", original.ID).Delete(&VendorInvoiceItem{}).Error; err != nil {
		return nil, err
	}
	for i := range items {
		items[i].InvoiceId = original.ID
	}
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&VendorInvoice{ID: original.ID}).
		Updates(map[string]interface{}{
			"VendorId":    input.VendorId,
			"InvoiceDate": input.InvoiceDate,
			"TotalAmount": totalAmount,
		}).Error; err != nil {
		return nil, err
	}

	if err := adjustVendorBalance(tx, input.VendorId, totalAmount); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[VendorInvoice](ctx, original.ID, "Items")
}

func DeleteVendorInvoice(ctx context.Context, id int) (*VendorInvoice, error) {
	result, err := utils.FetchModel[VendorInvoice](ctx, id, "Items")
	if err != nil {
		return nil, err
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

	if err := adjustVendorBalance(tx, result.VendorId, result.TotalAmount.Neg()); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("invoice_id = ?", result.ID).Delete(&VendorInvoiceItem{}).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&VendorInvoice{}, result.ID).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetVendorInvoice(ctx context.Context, id int) (*VendorInvoice, error) {
	return utils.FetchModel[VendorInvoice](ctx, id, "Items")
}

func GetVendorInvoices(ctx context.Context) ([]*VendorInvoice, error) {
	return utils.FetchAllModels[VendorInvoice](ctx, "Items")
}
