package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() Draft {
	return Draft{
		Name:        "Linen Shirt",
		Slug:        "linen-shirt",
		Description: "Breathable.",
		Tags:        []string{" summer", "linen", "summer", ""},
		PriceCents:  1999,
		Color:       "white",
		Size:        SizeMedium,
		TotalStock:  3,
	}
}

func TestNewDerivesInStock(t *testing.T) {
	p, err := New("p1", validDraft())
	require.NoError(t, err)
	assert.True(t, p.InStock)
	assert.Equal(t, []string{"summer", "linen"}, p.Tags)

	d := validDraft()
	d.TotalStock = 0
	p, err = New("p2", d)
	require.NoError(t, err)
	assert.False(t, p.InStock)
}

func TestNewValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Draft)
		want   error
	}{
		"name":  {func(d *Draft) { d.Name = " " }, ErrNameRequired},
		"desc":  {func(d *Draft) { d.Description = "" }, ErrDescriptionRequired},
		"color": {func(d *Draft) { d.Color = "" }, ErrColorRequired},
		"price": {func(d *Draft) { d.PriceCents = 0 }, ErrInvalidPrice},
		"size":  {func(d *Draft) { d.Size = "xxl" }, ErrInvalidSize},
		"stock": {func(d *Draft) { d.TotalStock = -1 }, ErrInvalidStock},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d := validDraft()
			tc.mutate(&d)
			_, err := New("p", d)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSellFloorsAtZero(t *testing.T) {
	p, err := New("p1", validDraft())
	require.NoError(t, err)

	require.NoError(t, p.Sell(2))
	assert.Equal(t, 1, p.TotalStock)
	assert.Equal(t, 2, p.SoldCount)
	assert.True(t, p.InStock)

	require.NoError(t, p.Sell(5))
	assert.Equal(t, 0, p.TotalStock)
	assert.Equal(t, 7, p.SoldCount)
	assert.False(t, p.InStock)

	assert.ErrorIs(t, p.Sell(0), ErrInvalidQuantity)
}

func TestParseSize(t *testing.T) {
	s, err := ParseSize(" LG ")
	require.NoError(t, err)
	assert.Equal(t, SizeLarge, s)

	_, err = ParseSize("huge")
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "linen-shirt", Slugify("Linen Shirt"))
	assert.Equal(t, "caf-au-lait", Slugify("Café au Lait!"))
	assert.Equal(t, "tee", SlugCandidate("tee", 1))
	assert.Equal(t, "tee-2", SlugCandidate("tee", 2))
}

func TestParsePrice(t *testing.T) {
	cents, err := ParsePrice("19.99")
	require.NoError(t, err)
	assert.Equal(t, int64(1999), cents)

	cents, err = ParsePrice("0.125")
	require.NoError(t, err)
	assert.Equal(t, int64(13), cents)

	_, err = ParsePrice("-1")
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = ParsePrice("abc")
	assert.ErrorIs(t, err, ErrInvalidPrice)

	assert.Equal(t, "19.99", MajorUnits(1999).StringFixed(2))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitTags("a, b ,a,,"))
}
