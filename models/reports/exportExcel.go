package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExcelContentType is the MIME type handlers should set on XLSX responses.
func ExcelContentType() string { return excelContentType }

func writeSheet(w io.Writer, headings []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	for col, h := range headings {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for i, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

// ExportStockSummaryExcel writes the stock summary rows as an XLSX workbook.
func ExportStockSummaryExcel(w io.Writer, data []*StockSummaryRow) error {
	headings := []string{"Vendor", "DateReceived", "Item", "QuantityReceived", "QuantitySold", "RemainingStock"}
	rows := make([][]interface{}, 0, len(data))
	for _, d := range data {
		rows = append(rows, []interface{}{
			d.VendorName,
			d.DateReceived.Format("2006-01-02"),
			d.ItemName,
			d.QuantityReceived.String(),
			d.QuantitySold.String(),
			d.RemainingStock.String(),
		})
	}
	return writeSheet(w, headings, rows)
}

func ExportVendorBalancesExcel(w io.Writer, data []*VendorBalanceRow) error {
	headings := []string{"Vendor", "Type", "WatakTotal", "InvoiceTotal", "PaidTotal", "Balance"}
	rows := make([][]interface{}, 0, len(data))
	for _, d := range data {
		rows = append(rows, []interface{}{
			d.VendorName,
			d.VendorType,
			d.WatakTotal.String(),
			d.InvoiceTotal.String(),
			d.PaidTotal.String(),
			d.Balance.String(),
		})
	}
	return writeSheet(w, headings, rows)
}

func ExportCustomerBalancesExcel(w io.Writer, data []*CustomerBalanceRow) error {
	headings := []string{"Customer", "InvoiceTotal", "PaidTotal", "Balance"}
	rows := make([][]interface{}, 0, len(data))
	for _, d := range data {
		rows = append(rows, []interface{}{
			d.CustomerName,
			d.InvoiceTotal.String(),
			d.PaidTotal.String(),
			d.Balance.String(),
		})
	}
	return writeSheet(w, headings, rows)
}

// ExcelFilename builds a dated attachment name like "stock-summary-2026-09-01.xlsx".
func ExcelFilename(prefix, date string) string {
	return fmt.Sprintf("%s-%s.xlsx", prefix, date)
}
