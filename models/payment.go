package models

import (
	"context"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/shopspring/decimal"
)

// VendorPayment settles part of what is owed to a vendor. Amount plus
// discount both reduce the vendor balance. Payments are independent of
// document deletion.
type VendorPayment struct {
	ID        int             `gorm:"primary_key" json:"id"`
	VendorId  int             `gorm:"index;not null" json:"vendor_id" binding:"required"`
	Date      time.Time       `gorm:"not null" json:"date"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Discount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Notes     string          `gorm:"type:text" json:"notes"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type CustomerPayment struct {
	ID         int             `gorm:"primary_key" json:"id"`
	CustomerId int             `gorm:"index;not null" json:"customer_id" binding:"required"`
	Date       time.Time       `gorm:"not null" json:"date"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Notes      string          `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendorPayment struct {
	VendorId int             `json:"vendor_id" binding:"required" validate:"required"`
	Date     time.Time       `json:"date" binding:"required" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Discount decimal.Decimal `json:"discount"`
	Notes    string          `json:"notes"`
}

type NewCustomerPayment struct {
	CustomerId int             `json:"customer_id" binding:"required" validate:"required"`
	Date       time.Time       `json:"date" binding:"required" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      string          `json:"notes"`
}

func CreateVendorPayment(ctx context.Context, input *NewVendorPayment) (*VendorPayment, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Vendor](ctx, input.VendorId); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("payment amount must be positive")
	}
	if input.Discount.IsNegative() {
		return nil, utils.NewValidationError("payment discount cannot be negative")
	}

	payment := VendorPayment{
		VendorId: input.VendorId,
		Date:     input.Date,
		Amount:   input.Amount,
		Discount: input.Discount,
		Notes:    input.Notes,
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

	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	if err := adjustVendorBalance(tx, payment.VendorId, payment.Amount.Add(payment.Discount).Neg()); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func DeleteVendorPayment(ctx context.Context, id int) (*VendorPayment, error) {
	result, err := utils.FetchModel[VendorPayment](ctx, id)
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

	if err := adjustVendorBalance(tx, result.VendorId, result.Amount.Add(result.Discount)); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&VendorPayment{}, result.ID).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func CreateCustomerPayment(ctx context.Context, input *NewCustomerPayment) (*CustomerPayment, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("payment amount must be positive")
	}

	payment := CustomerPayment{
		CustomerId: input.CustomerId,
		Date:       input.Date,
		Amount:     input.Amount,
		Notes:      input.Notes,
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

	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}
	if err := adjustCustomerBalance(tx, payment.CustomerId, payment.Amount.Neg()); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func DeleteCustomerPayment(ctx context.Context, id int) (*CustomerPayment, error) {
	result, err := utils.FetchModel[CustomerPayment](ctx, id)
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

	if err := adjustCustomerBalance(tx, result.CustomerId, result.Amount); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&CustomerPayment{}, result.ID).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}
