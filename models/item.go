package models

import (
	"context"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/shopspring/decimal"
)

// Item is a catalog entry. DefaultRate is only a fallback price for
// document entry; persisted lines always carry their own rate.
type Item struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name" binding:"required"`
	DefaultRate decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_rate"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Name        string          `json:"name" binding:"required" validate:"required"`
	DefaultRate decimal.Decimal `json:"default_rate"`
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}

	item := Item{
		Name:        input.Name,
		DefaultRate: input.DefaultRate,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	return utils.FetchModel[Item](ctx, id)
}

func GetItems(ctx context.Context) ([]*Item, error) {
	return utils.FetchAllModels[Item](ctx)
}
