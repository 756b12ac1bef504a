// Package export renders catalog data as downloadable spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tealeg/xlsx"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

const (
	sheetName    = "Products"
	timestampFmt = "2006-01-02 15:04:05"
)

var productHeaders = []string{
	"ID", "Name", "Slug", "Description", "Price", "Color", "Size",
	"Total Stock", "Sold", "In Stock", "Tags", "Images", "Created At", "Updated At",
}

// XLSXExporter writes one row per product under a header row.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter { return &XLSXExporter{} }

func (XLSXExporter) WriteProducts(w io.Writer, products []*catalog.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("export: add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range productHeaders {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Slug)
		row.AddCell().SetString(p.Description)
		price, _ := catalog.MajorUnits(p.PriceCents).Float64()
		row.AddCell().SetFloatWithFormat(price, "0.00")
		row.AddCell().SetString(p.Color)
		row.AddCell().SetString(string(p.Size))
		row.AddCell().SetInt(p.TotalStock)
		row.AddCell().SetInt(p.SoldCount)
		row.AddCell().SetString(yesNo(p.InStock))
		row.AddCell().SetString(strings.Join(p.Tags, ","))
		row.AddCell().SetString(strings.Join(p.Images, ","))
		row.AddCell().SetString(formatTime(p.CreatedAt))
		row.AddCell().SetString(formatTime(p.UpdatedAt))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampFmt)
}
