package models

import (
	"context"
	"fmt"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Inventory is one vendor delivery on one date. Vehicle and bardan
// charges apply to the whole batch.
type Inventory struct {
	ID             int             `gorm:"primary_key" json:"id"`
	VendorId       int             `gorm:"index;not null" json:"vendor_id" binding:"required"`
	DateReceived   time.Time       `gorm:"not null" json:"date_received"`
	VehicleCharges decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"vehicle_charges"`
	Bardan         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bardan"`
	Items          []InventoryItem `gorm:"foreignKey:InventoryId" json:"items"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Inventory) TableName() string { return "inventory" }

// InventoryItem is one item within a batch. QuantityReceived never
// changes after creation; RemainingStock is depleted by sales and
// restored by sale reversals.
type InventoryItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	InventoryId      int             `gorm:"index;not null" json:"inventory_id"`
	ItemId           int             `gorm:"index;not null" json:"item_id"`
	QuantityReceived decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_received"`
	RemainingStock   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"remaining_stock"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInventory struct {
	VendorId       int                `json:"vendor_id" binding:"required" validate:"required"`
	DateReceived   time.Time          `json:"date_received" binding:"required" validate:"required"`
	VehicleCharges decimal.Decimal    `json:"vehicle_charges"`
	Bardan         decimal.Decimal    `json:"bardan"`
	Items          []NewInventoryItem `json:"items" binding:"required" validate:"required,min=1,dive"`
}

type NewInventoryItem struct {
	ItemId           int             `json:"item_id" binding:"required" validate:"required"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
}

func CreateInventory(ctx context.Context, input *NewInventory) (*Inventory, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Vendor](ctx, input.VendorId); err != nil {
		return nil, err
	}

	items := make([]InventoryItem, 0, len(input.Items))
	for _, line := range input.Items {
		if err := utils.ValidateResourceId[Item](ctx, line.ItemId); err != nil {
			return nil, err
		}
		if !line.QuantityReceived.IsPositive() {
			return nil, utils.NewValidationError("quantity_received must be positive for item %d", line.ItemId)
		}
		items = append(items, InventoryItem{
			ItemId:           line.ItemId,
			QuantityReceived: line.QuantityReceived,
			RemainingStock:   line.QuantityReceived,
		})
	}

	batch := Inventory{
		VendorId:       input.VendorId,
		DateReceived:   input.DateReceived,
		VehicleCharges: input.VehicleCharges,
		Bardan:         input.Bardan,
		Items:          items,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func GetInventory(ctx context.Context, id int) (*Inventory, error) {
	return utils.FetchModel[Inventory](ctx, id, "Items")
}

func GetInventories(ctx context.Context) ([]*Inventory, error) {
	return utils.FetchAllModels[Inventory](ctx, "Items")
}

// ReserveInventoryStock depletes a stock line inside the caller's tx.
// The decrement is a single conditional update so two concurrent sales
// can never both consume the same remaining stock. A non-empty note
// means the line no longer exists and the caller proceeds without a
// stock adjustment.
func ReserveInventoryStock(tx *gorm.DB, inventoryItemId int, qty decimal.Decimal, itemName string) (string, error) {
	if !qty.IsPositive() {
		return "", nil
	}
	result := tx.Exec(
		"UPDATE inventory_items SET remaining_stock = remaining_stock - ? WHERE id = ? AND remaining_stock >= ?",
		qty, inventoryItemId, qty,
	)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected > 0 {
		return "", nil
	}

	var line InventoryItem
	err := tx.Where("id = ?", inventoryItemId).First(&line).Error
	if err == gorm.ErrRecordNotFound {
		return fmt.Sprintf("inventory line %d no longer exists; stock not adjusted for %s", inventoryItemId, itemName), nil
	}
	if err != nil {
		return "", err
	}
	return "", &utils.InsufficientStockError{
		ItemName:  itemName,
		Available: line.RemainingStock,
		Required:  qty,
	}
}

// ReleaseInventoryStock restores a stock line inside the caller's tx.
// The restore is clamped at quantity_received so repeated edits cannot
// inflate stock past what was delivered. A non-empty note means the
// line no longer exists.
func ReleaseInventoryStock(tx *gorm.DB, inventoryItemId int, qty decimal.Decimal) (string, error) {
	if !qty.IsPositive() {
		return "", nil
	}
	result := tx.Exec(
		"UPDATE inventory_items SET remaining_stock = LEAST(quantity_received, remaining_stock + ?) WHERE id = ?",
		qty, inventoryItemId,
	)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		// MySQL reports changed rows, not matched rows: a restore that
		// was fully clamped looks the same as a vanished line.
		var count int64
		if err := tx.Model(&InventoryItem{}).Where("id = ?", inventoryItemId).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return fmt.Sprintf("inventory line %d no longer exists; stock not restored", inventoryItemId), nil
		}
	}
	return "", nil
}
