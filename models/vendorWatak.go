package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ibrahim-bhat/billflow_backend/config"
	"github.com/ibrahim-bhat/billflow_backend/utils"
	"github.com/shopspring/decimal"
)

// VendorWatak is a commission settlement note: goods sold on a
// vendor's behalf, aggregated minus commission, labor and the flat
// batch charges. TotalAmount stores the rounded goods sale proceeds;
// the raw total is always reproducible from the lines.
type VendorWatak struct {
	ID                int             `gorm:"primary_key" json:"id"`
	VendorId          int             `gorm:"index;not null" json:"vendor_id" binding:"required"`
	WatakNumber       string          `gorm:"size:50;not null" json:"watak_number"`
	SequenceNo        int64           `gorm:"index;default:0" json:"sequence_no"`
	Date              time.Time       `gorm:"not null" json:"date"`
	InventoryDate     time.Time       `gorm:"not null" json:"inventory_date"`
	VehicleNumber     string          `gorm:"size:50" json:"vehicle_number"`
	ChalanNumber      string          `gorm:"size:50" json:"chalan_number"`
	VehicleCharges    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"vehicle_charges"`
	Bardan            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bardan"`
	OtherCharges      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"other_charges"`
	CommissionPercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"commission_percent"`
	LaborRate         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"labor_rate"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	TotalCommission   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_commission"`
	TotalLabor        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_labor"`
	NetPayable        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_payable"`
	Items             []WatakItem     `gorm:"foreignKey:WatakId" json:"items"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (VendorWatak) TableName() string { return "vendor_watak" }

type WatakItem struct {
	ID                int             `gorm:"primary_key" json:"id"`
	WatakId           int             `gorm:"index;not null" json:"watak_id"`
	ItemName          string          `gorm:"size:100;not null" json:"item_name"`
	Quantity          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Weight            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight"`
	Rate              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	CommissionPercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"commission_percent"`
	Labor             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"labor"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	// Explicit reference to the inventory line this settlement covers.
	// The sweep uses it instead of matching by vendor+date+name.
	InventoryItemId int       `gorm:"index;default:0" json:"inventory_item_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendorWatak struct {
	VendorId          int              `json:"vendor_id" binding:"required" validate:"required"`
	Date              time.Time        `json:"date" binding:"required" validate:"required"`
	InventoryDate     time.Time        `json:"inventory_date"`
	VehicleNumber     string           `json:"vehicle_number"`
	ChalanNumber      string           `json:"chalan_number"`
	VehicleCharges    decimal.Decimal  `json:"vehicle_charges"`
	Bardan            decimal.Decimal  `json:"bardan"`
	OtherCharges      decimal.Decimal  `json:"other_charges"`
	CommissionPercent *decimal.Decimal `json:"commission_percent"`
	LaborRate         *decimal.Decimal `json:"labor_rate"`
	Items             []NewWatakItem   `json:"items" binding:"required" validate:"required,min=1"`
}

type NewWatakItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Weight   decimal.Decimal `json:"weight"`
	Rate     decimal.Decimal `json:"rate"`
	// CustomerAmount carries the actual recorded sale amount; when
	// positive it overrides the theoretical quantity/weight price.
	CustomerAmount  *decimal.Decimal `json:"customer_amount"`
	InventoryItemId int              `json:"inventory_item_id"`
}

const watakLaborExemptName = "krade"

// buildWatakItems maps the input lines to persistable lines. Lines
// missing name, quantity or rate are dropped. Returns the raw amount
// total and the raw labor total alongside the lines.
func buildWatakItems(input []NewWatakItem, commissionPercent, laborRate decimal.Decimal) ([]WatakItem, decimal.Decimal, decimal.Decimal) {
	items := make([]WatakItem, 0, len(input))
	totalAmount := decimal.Zero
	totalLabor := decimal.Zero
	for _, line := range input {
		name := strings.TrimSpace(line.Name)
		if name == "" || !line.Quantity.IsPositive() || !line.Rate.IsPositive() {
			continue
		}

		amount := utils.Amount(line.Quantity, line.Weight, line.Rate)
		if line.CustomerAmount != nil && line.CustomerAmount.IsPositive() {
			amount = *line.CustomerAmount
		}

		labor := decimal.Zero
		if !strings.EqualFold(name, watakLaborExemptName) {
			labor = line.Quantity.Mul(laborRate)
		}

		items = append(items, WatakItem{
			ItemName:          name,
			Quantity:          line.Quantity,
			Weight:            line.Weight,
			Rate:              line.Rate,
			CommissionPercent: commissionPercent,
			Labor:             labor,
			Amount:            amount,
			InventoryItemId:   line.InventoryItemId,
		})
		totalAmount = totalAmount.Add(amount)
		totalLabor = totalLabor.Add(labor)
	}
	return items, totalAmount, totalLabor
}

// watakRates resolves the commission percent and labor rate, falling
// back to the vendor-type defaults.
func watakRates(vendor *Vendor, input *NewVendorWatak) (decimal.Decimal, decimal.Decimal) {
	commissionPercent := vendor.Type.DefaultCommissionPercent()
	if input.CommissionPercent != nil && input.CommissionPercent.IsPositive() {
		commissionPercent = *input.CommissionPercent
	}
	laborRate := vendor.Type.DefaultLaborRate()
	if input.LaborRate != nil && !input.LaborRate.IsNegative() {
		laborRate = *input.LaborRate
	}
	return commissionPercent, laborRate
}

func CreateVendorWatak(ctx context.Context, input *NewVendorWatak) (*VendorWatak, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	vendor, err := GetVendor(ctx, input.VendorId)
	if err != nil {
		return nil, err
	}

	commissionPercent, laborRate := watakRates(vendor, input)
	items, totalAmount, totalLabor := buildWatakItems(input.Items, commissionPercent, laborRate)
	if totalAmount.IsZero() {
		return nil, utils.NewValidationError("watak has no valid lines")
	}
	rounding := utils.RoundWatak(totalAmount, commissionPercent, totalLabor, input.VehicleCharges, input.Bardan, input.OtherCharges)

	inventoryDate := input.InventoryDate
	if inventoryDate.IsZero() {
		inventoryDate = input.Date
	}
	// Stored date-only so settlement and receipt dates compare exactly.
	inventoryDate = utils.DateOnly(inventoryDate)

	watak := VendorWatak{
		VendorId:          input.VendorId,
		Date:              input.Date,
		InventoryDate:     inventoryDate,
		VehicleNumber:     input.VehicleNumber,
		ChalanNumber:      input.ChalanNumber,
		VehicleCharges:    rounding.VehicleCharges,
		Bardan:            rounding.Bardan,
		OtherCharges:      rounding.OtherCharges,
		CommissionPercent: commissionPercent,
		LaborRate:         laborRate,
		TotalAmount:       rounding.GoodsSaleProceeds,
		TotalCommission:   rounding.Commission,
		TotalLabor:        rounding.Labor,
		NetPayable:        rounding.NetPayable,
		Items:             items,
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

	seqNo, err := utils.GetSequence[VendorWatak](ctx)
	if err != nil {
		return nil, err
	}
	watak.SequenceNo = seqNo
	watak.WatakNumber = "WTK-" + fmt.Sprint(seqNo)

	if err := tx.WithContext(ctx).Create(&watak).Error; err != nil {
		return nil, err
	}
	if err := adjustVendorBalance(tx, watak.VendorId, watak.NetPayable); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &watak, nil
}

func UpdateVendorWatak(ctx context.Context, id int, input *NewVendorWatak) (*VendorWatak, error) {
	if err := utils.ValidateInput(input); err != nil {
		return nil, err
	}
	original, err := utils.FetchModel[VendorWatak](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	vendor, err := GetVendor(ctx, input.VendorId)
	if err != nil {
		return nil, err
	}

	commissionPercent, laborRate := watakRates(vendor, input)
	items, totalAmount, totalLabor := buildWatakItems(input.Items, commissionPercent, laborRate)
	if totalAmount.IsZero() {
		return nil, utils.NewValidationError("watak has no valid lines")
	}
	rounding := utils.RoundWatak(totalAmount, commissionPercent, totalLabor, input.VehicleCharges, input.Bardan, input.OtherCharges)

	inventoryDate := input.InventoryDate
	if inventoryDate.IsZero() {
		inventoryDate = input.Date
	}
	// Stored date-only so settlement and receipt dates compare exactly.
	inventoryDate = utils.DateOnly(inventoryDate)

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	// back out the old settlement from the vendor balance
	if err := adjustVendorBalance(tx, original.VendorId, original.NetPayable.Neg()); err != nil {
		return nil, err
	}

	if err := tx.WithContext(ctx).Where("watak_id = ?", original.ID).Delete(&WatakItem{}).Error; err != nil {
		return nil, err
	}
	for i := range items {
		items[i].WatakId = original.ID
	}
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&VendorWatak{ID: original.ID}).
		Updates(map[string]interface{}{
			"VendorId":          input.VendorId,
			"Date":              input.Date,
			"InventoryDate":     inventoryDate,
			"VehicleNumber":     input.VehicleNumber,
			"ChalanNumber":      input.ChalanNumber,
			"VehicleCharges":    rounding.VehicleCharges,
			"Bardan":            rounding.Bardan,
			"OtherCharges":      rounding.OtherCharges,
			"CommissionPercent": commissionPercent,
			"LaborRate":         laborRate,
			"TotalAmount":       rounding.GoodsSaleProceeds,
			"TotalCommission":   rounding.Commission,
			"TotalLabor":        rounding.Labor,
			"NetPayable":        rounding.NetPayable,
		}).Error; err != nil {
		return nil, err
	}

	if err := adjustVendorBalance(tx, input.VendorId, rounding.NetPayable); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[VendorWatak](ctx, original.ID, "Items")
}

func DeleteVendorWatak(ctx context.Context, id int) (*VendorWatak, error) {
	result, err := utils.FetchModel[VendorWatak](ctx, id, "Items")
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

	if err := adjustVendorBalance(tx, result.VendorId, result.NetPayable.Neg()); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("watak_id = ?", result.ID).Delete(&WatakItem{}).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&VendorWatak{}, result.ID).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetVendorWatak(ctx context.Context, id int) (*VendorWatak, error) {
	return utils.FetchModel[VendorWatak](ctx, id, "Items")
}

func GetVendorWataks(ctx context.Context) ([]*VendorWatak, error) {
	return utils.FetchAllModels[VendorWatak](ctx, "Items")
}
