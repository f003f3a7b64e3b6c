package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStringListDecodesLegacyString(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"name": "Tote", "size": " Large ", "type": bson.A{"Canvas", "Denim"}})
	require.NoError(t, err)

	var p Product
	require.NoError(t, bson.Unmarshal(raw, &p))
	assert.Equal(t, StringList{"Large"}, p.Size)
	assert.Equal(t, StringList{"Canvas", "Denim"}, p.Type)
	assert.True(t, p.HasVariants())
}

func TestStringListEncodesNilAsArray(t *testing.T) {
	raw, err := bson.Marshal(Product{Name: "Pen"})
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.IsType(t, bson.A{}, doc["size"])
	assert.Len(t, doc["size"], 0)
}

func TestStringListNormalize(t *testing.T) {
	assert.Equal(t, StringList{"S", "M"}, StringList{" S", "", "M", "S "}.Normalize())
	assert.Empty(t, StringList(nil).Normalize())
}

func TestTotalStockPrefersInventory(t *testing.T) {
	p := &Product{CountInStock: 99}
	assert.Equal(t, 99, p.TotalStock())

	p.Inventory = []InventoryLine{{Size: "S", Quantity: 2}, {Size: "M", Quantity: 0}}
	assert.Equal(t, 2, p.TotalStock())
}

func TestCloneIsDeep(t *testing.T) {
	p := &Product{Size: StringList{"S"}, Inventory: []InventoryLine{{Size: "S", Quantity: 1}}}
	cp := p.Clone()
	cp.Inventory[0].Quantity = 0
	cp.Size[0] = "XL"
	assert.Equal(t, 1, p.Inventory[0].Quantity)
	assert.Equal(t, "S", p.Size[0])
}
