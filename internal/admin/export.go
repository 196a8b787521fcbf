package admin

import (
	"fmt"
	"io"

	"github.com/amogham/storefront/internal/backend"
	"github.com/tealeg/xlsx"
)

// ExportHeaders are the columns of the order export, in order.
var ExportHeaders = []string{
	"Order ID", "Customer Name", "Email", "Phone", "Delivery Address",
	"Total Amount", "Status", "Payment ID", "Date",
}

// ExportFilename is the download name for an export made on date (YYYY-MM-DD).
func ExportFilename(date string) string {
	return "orders_" + date + ".xlsx"
}

// ExportOrdersXLSX writes orders as an Excel workbook with one sheet.
func ExportOrdersXLSX(orders []backend.Order, w io.Writer) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range ExportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.ID.String())
		row.AddCell().SetValue(orNA(o.CustomerName))
		row.AddCell().SetValue(orNA(o.CustomerEmail))
		row.AddCell().SetValue(orNA(o.CustomerPhone))
		row.AddCell().SetValue(orNA(o.DeliveryAddress))
		row.AddCell().SetValue(o.TotalAmount.StringFixed(2))
		row.AddCell().SetValue(o.Status)
		row.AddCell().SetValue(orNA(o.PaymentID))
		date := "N/A"
		if !o.CreatedAt.IsZero() {
			date = o.CreatedAt.Format("02/01/2006")
		}
		row.AddCell().SetValue(date)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
