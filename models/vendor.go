package models

import (
	"context"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Vendor struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Name           string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Balance        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	Type           VendorType      `gorm:"type:enum('Local','Outsider');not null;default:'Local'" json:"type"`
	VendorCategory VendorCategory  `gorm:"type:enum('Commission Based','Purchase Based');not null;default:'Commission Based'" json:"vendor_category"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendor struct {
	Name           string          `json:"name" binding:"required" validate:"required"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Type           VendorType      `json:"type"`
	VendorCategory VendorCategory  `json:"vendor_category"`
}

func CreateVendor(ctx context.Context, input *NewVendor) (*Vendor, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if input.Type == "" {
		input.Type = VendorTypeLocal
	}
	if input.VendorCategory == "" {
		input.VendorCategory = VendorCategoryCommission
	}

	vendor := Vendor{
		Name:           input.Name,
		Balance:        input.OpeningBalance,
		Type:           input.Type,
		VendorCategory: input.VendorCategory,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func GetVendor(ctx context.Context, id int) (*Vendor, error) {
	return utils.FetchModel[Vendor](ctx, id)
}

func GetVendors(ctx context.Context) ([]*Vendor, error) {
	return utils.FetchAllModels[Vendor](ctx)
}

// adjustVendorBalance applies a signed delta as a single conditional
// update; the running balance is never read back first.
func adjustVendorBalance(tx *gorm.DB, vendorId int, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	result := tx.Exec("UPDATE vendors SET balance = balance + ? WHERE id = ?", delta, vendorId)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
