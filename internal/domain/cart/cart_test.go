package cart

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

func TestAddMergesSameVariant(t *testing.T) {
	c := New("c1", "u1")

	first, err := c.Add("i1", "p1", 2, "red", catalog.SizeMedium)
	require.NoError(t, err)
	merged, err := c.Add("i2", "p1", 3, "red", catalog.SizeMedium)
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)
	require.Len(t, c.Items, 1)

	_, err = c.Add("i3", "p1", 1, "blue", catalog.SizeMedium)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
}

func TestAddRejectsNonPositive(t *testing.T) {
	c := New("c1", "u1")
	_, err := c.Add("i1", "p1", 0, "red", catalog.SizeSmall)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestQuantityIsBounded(t *testing.T) {
	c := New("c1", "u1")
	_, err := c.Add("i1", "p1", math.MaxInt, "red", catalog.SizeSmall)
	assert.ErrorIs(t, err, ErrQuantityTooLarge)

	_, err = c.Add("i1", "p1", MaxQuantity-1, "red", catalog.SizeSmall)
	require.NoError(t, err)
	_, err = c.Add("i2", "p1", 2, "red", catalog.SizeSmall)
	assert.ErrorIs(t, err, ErrQuantityTooLarge)

	it, ok := c.Item("i1")
	require.True(t, ok)
	assert.Equal(t, MaxQuantity-1, it.Quantity)

	assert.ErrorIs(t, c.SetQuantity("i1", MaxQuantity+1), ErrQuantityTooLarge)
	require.NoError(t, c.SetQuantity("i1", MaxQuantity))
}

func TestSetQuantity(t *testing.T) {
	c := New("c1", "u1")
	_, _ = c.Add("i1", "p1", 2, "red", catalog.SizeSmall)

	require.NoError(t, c.SetQuantity("i1", 4))
	it, ok := c.Item("i1")
	require.True(t, ok)
	assert.Equal(t, 4, it.Quantity)

	require.NoError(t, c.SetQuantity("i1", 0))
	assert.True(t, c.IsEmpty())

	assert.ErrorIs(t, c.SetQuantity("missing", 1), ErrItemNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	c := New("c1", "u1")
	_, _ = c.Add("i1", "p1", 1, "red", catalog.SizeSmall)
	_, _ = c.Add("i2", "p2", 1, "red", catalog.SizeSmall)
	_, _ = c.Add("i3", "p1", 1, "blue", catalog.SizeSmall)

	assert.Equal(t, []string{"p1", "p2"}, c.ProductIDs())
	require.NoError(t, c.Remove("i2"))
	assert.ErrorIs(t, c.Remove("i2"), ErrItemNotFound)

	c.Clear()
	assert.True(t, c.IsEmpty())
	c.Clear()
	assert.True(t, c.IsEmpty())
}

func TestCloneIsIndependent(t *testing.T) {
	c := New("c1", "u1")
	_, _ = c.Add("i1", "p1", 1, "red", catalog.SizeSmall)
	cp := c.Clone()
	cp.Items[0].Quantity = 9
	assert.Equal(t, 1, c.Items[0].Quantity)
}
