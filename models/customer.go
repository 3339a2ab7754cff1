package models

import (
	"context"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Customer struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Name      string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name           string          `json:"name" binding:"required" validate:"required"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	customer := Customer{
		Name:    input.Name,
		Balance: input.OpeningBalance,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	return utils.FetchModel[Customer](ctx, id)
}

func GetCustomers(ctx context.Context) ([]*Customer, error) {
	return utils.FetchAllModels[Customer](ctx)
}

func adjustCustomerBalance(tx *gorm.DB, customerId int, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	result := tx.Exec("UPDATE customers SET balance = balance + ? WHERE id = ?", delta, customerId)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
