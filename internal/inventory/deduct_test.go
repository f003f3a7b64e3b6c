package inventory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/models"
)

func variantProduct() *models.Product {
	p := &models.Product{
		ID:   primitive.NewObjectID(),
		Size: models.StringList{"S"},
		Type: models.StringList{"Red", "Blue"},
		Inventory: []models.InventoryLine{
			{Size: "S", Type: "Red", Quantity: 5},
			{Size: "S", Type: "Blue", Quantity: 3},
		},
	}
	Recount(p)
	return p
}

func quantities(p *models.Product) []int {
	out := make([]int, 0, len(p.Inventory))
	for _, l := range p.Inventory {
		out = append(out, l.Quantity)
	}
	return out
}

func assertConsistent(t *testing.T, p *models.Product) {
	t.Helper()
	sum := 0
	for _, l := range p.Inventory {
		assert.GreaterOrEqual(t, l.Quantity, 0)
		sum += l.Quantity
	}
	if len(p.Inventory) > 0 {
		assert.Equal(t, sum, p.CountInStock)
	}
	assert.GreaterOrEqual(t, p.CountInStock, 0)
}

func TestApplyExactVariant(t *testing.T) {
	p := variantProduct()

	d, err := Apply(p, Line{Size: "S", Type: "Red", Qty: 2}, Clamp)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3}, quantities(p))
	assert.Equal(t, 6, p.CountInStock)
	assert.Equal(t, 0, d.Index)
	assert.Equal(t, MatchSizeAndType, d.Rule)
	assert.Equal(t, 2, d.Applied)
	assert.Zero(t, d.Shortfall)
	assertConsistent(t, p)
}

func TestApplySizeOnlyClampsAtZero(t *testing.T) {
	p := variantProduct()

	d, err := Apply(p, Line{Size: "S", Qty: 10}, Clamp)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 3}, quantities(p))
	assert.Equal(t, 3, p.CountInStock)
	assert.Equal(t, 5, d.Applied)
	assert.Equal(t, 5, d.Shortfall)
	assertConsistent(t, p)
}

func TestApplyEmptyInventoryWithDeclaredVariants(t *testing.T) {
	p := &models.Product{
		ID:           primitive.NewObjectID(),
		Size:         models.StringList{"M"},
		Type:         models.StringList{"Plain"},
		CountInStock: 5,
	}

	d, err := Apply(p, Line{Qty: 2}, Clamp)
	require.NoError(t, err)

	assert.Equal(t, 3, p.CountInStock)
	assert.True(t, d.Direct())
}

func TestApplyNoVariantsClampsCountInStock(t *testing.T) {
	p := &models.Product{ID: primitive.NewObjectID(), CountInStock: 4}

	d, err := Apply(p, Line{Qty: 6}, Clamp)
	require.NoError(t, err)

	assert.Equal(t, 0, p.CountInStock)
	assert.Equal(t, 4, d.Applied)
	assert.Equal(t, 2, d.Shortfall)
}

func TestApplyFallbackWhenNothingStocked(t *testing.T) {
	p := &models.Product{
		ID:   primitive.NewObjectID(),
		Size: models.StringList{"S", "M"},
		Inventory: []models.InventoryLine{
			{Size: "S", Quantity: 0},
			{Size: "M", Quantity: -2},
		},
	}

	d, err := Apply(p, Line{Size: "XL", Qty: 1}, Clamp)
	require.NoError(t, err)

	assert.Equal(t, MatchFirstLine, d.Rule)
	assert.Equal(t, 0, d.Index)
	assert.Equal(t, 0, p.Inventory[0].Quantity)
	assert.Equal(t, 1, d.Shortfall)
}

func TestApplyNegativeQtyIsNoop(t *testing.T) {
	p := variantProduct()

	d, err := Apply(p, Line{Size: "S", Type: "Blue", Qty: -4}, Clamp)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 3}, quantities(p))
	assert.Zero(t, d.Requested)
}

func TestApplyRejectLeavesProductUntouched(t *testing.T) {
	p := variantProduct()

	_, err := Apply(p, Line{Size: "S", Type: "Blue", Qty: 4}, Reject)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, []int{5, 3}, quantities(p))
	assert.Equal(t, 8, p.CountInStock)
}

func TestApplyRejectWithoutVariants(t *testing.T) {
	p := &models.Product{ID: primitive.NewObjectID(), CountInStock: 1}

	_, err := Apply(p, Line{Qty: 2}, Reject)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 1, p.CountInStock)
}

func TestApplyTwiceSubtractsTwice(t *testing.T) {
	p := variantProduct()
	line := Line{Size: "S", Type: "Red", Qty: 2}

	_, err := Apply(p, line, Clamp)
	require.NoError(t, err)
	_, err = Apply(p, line, Clamp)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, quantities(p))
	assert.Equal(t, 4, p.CountInStock)
}

func TestRecountKeepsCountWithoutInventory(t *testing.T) {
	p := &models.Product{CountInStock: 9}
	Recount(p)
	assert.Equal(t, 9, p.CountInStock)

	p.Inventory = []models.InventoryLine{{Quantity: 2}, {Quantity: 1}}
	Recount(p)
	assert.Equal(t, 3, p.CountInStock)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, Reject, ParsePolicy(" Reject "))
	assert.Equal(t, Clamp, ParsePolicy("clamp"))
	assert.Equal(t, Clamp, ParsePolicy(""))
}

func TestApplyUnlabeledInventoryDeductsFromLine(t *testing.T) {
	p := &models.Product{
		ID:           primitive.NewObjectID(),
		Inventory:    []models.InventoryLine{{Quantity: 5}},
		CountInStock: 5,
	}
	require.False(t, p.HasVariants())

	d, err := Apply(p, Line{Qty: 2}, Clamp)
	require.NoError(t, err)

	assert.Equal(t, 0, d.Index)
	assert.Equal(t, MatchFirstStocked, d.Rule)
	assert.Equal(t, []int{3}, quantities(p))
	assert.Equal(t, 3, p.CountInStock)
	assert.Equal(t, p.TotalStock(), p.CountInStock)

	// a later recount on save must not undo the deduction
	Recount(p)
	assert.Equal(t, 3, p.CountInStock)
}
