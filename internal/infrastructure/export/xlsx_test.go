package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

func TestWriteProducts(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	products := []*catalog.Product{
		{
			ID: "p1", Name: "Linen Shirt", Slug: "linen-shirt", Description: "light",
			Tags: []string{"summer", "linen"}, PriceCents: 1999, Color: "white", Size: catalog.SizeMedium,
			TotalStock: 3, SoldCount: 2, InStock: true, CreatedAt: created, UpdatedAt: created,
		},
		{ID: "p2", Name: "Scarf", Slug: "scarf", PriceCents: 500, Color: "red", Size: catalog.SizeSmall},
	}

	var buf bytes.Buffer
	require.NoError(t, NewXLSXExporter().WriteProducts(&buf, products))

	book, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, book.Sheets, 1)
	sheet := book.Sheets[0]
	assert.Equal(t, "Products", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Name", sheet.Rows[0].Cells[1].String())
	first := sheet.Rows[1].Cells
	assert.Equal(t, "p1", first[0].String())
	assert.Equal(t, "linen-shirt", first[2].String())
	price, err := first[4].Float()
	require.NoError(t, err)
	assert.InDelta(t, 19.99, price, 0.0001)
	assert.Equal(t, "md", first[6].String())
	stock, err := first[7].Int()
	require.NoError(t, err)
	assert.Equal(t, 3, stock)
	assert.Equal(t, "yes", first[9].String())
	assert.Equal(t, "summer,linen", first[10].String())
	assert.Equal(t, "2024-05-01 12:30:00", first[12].String())

	second := sheet.Rows[2].Cells
	assert.Equal(t, "no", second[9].String())
	assert.Equal(t, "", second[12].String())
}

func TestWriteProductsEmptyCatalogHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXExporter().WriteProducts(&buf, nil))

	book, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, book.Sheets[0].Rows, 1)
}
