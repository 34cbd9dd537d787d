package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

func TestResolveDefaultUnit(t *testing.T) {
	c := New()

	line, product, err := c.Resolve("tomatoes-1kg", "")
	require.NoError(t, err)
	assert.Equal(t, "1 kg", line.Unit)
	assert.Equal(t, types.Rupees(45), line.UnitPrice)
	assert.Equal(t, "Fresh Tomatoes", product.Name)
	assert.Zero(t, line.Quantity)
}

func TestResolveVariant(t *testing.T) {
	line, _, err := New().Resolve("tomatoes-1kg", "500 g")
	require.NoError(t, err)
	assert.Equal(t, "500 g", line.Unit)
	assert.Equal(t, types.Rupees(24), line.UnitPrice)
}

func TestResolveUnknownVariant(t *testing.T) {
	_, _, err := New().Resolve("tomatoes-1kg", "2 kg")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetUnknownProduct(t *testing.T) {
	_, err := New().Get("caviar")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListFiltersAndSorts(t *testing.T) {
	c := NewFrom(nil, []Product{
		{ID: "b", Name: "Bread", CategoryID: "bakery"},
		{ID: "a", Name: "Atta", CategoryID: "staples"},
		{ID: "c", Name: "Cake", CategoryID: "bakery"},
	})

	all := c.List("")
	require.Len(t, all, 3)
	assert.Equal(t, "Atta", all[0].Name)

	bakery := c.List("bakery")
	require.Len(t, bakery, 2)
	assert.Equal(t, "Bread", bakery[0].Name)
	assert.Equal(t, "Cake", bakery[1].Name)
}

func TestDiscountPercent(t *testing.T) {
	assert.Equal(t, 18, Product{Price: types.Rupees(45), MRP: types.Rupees(55)}.DiscountPercent())
	assert.Equal(t, 0, Product{Price: types.Rupees(45)}.DiscountPercent())
}
