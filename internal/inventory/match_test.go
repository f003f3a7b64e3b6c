package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coopstore/internal/models"
)

func sampleInventory() []models.InventoryLine {
	return []models.InventoryLine{
		{Size: "S", Type: "Red", Quantity: 5},
		{Size: "S", Type: "Blue", Quantity: 3},
		{Size: "M", Type: "Blue", Quantity: 0},
		{Size: "L", Type: "Green", Quantity: 7},
	}
}

func TestMatchLine(t *testing.T) {
	tests := []struct {
		name      string
		inventory []models.InventoryLine
		size, typ string
		wantIndex int
		wantRule  MatchRule
	}{
		{"size and type exact", sampleInventory(), "S", "Blue", 1, MatchSizeAndType},
		{"size only picks first exact", sampleInventory(), "S", "", 0, MatchSize},
		{"size only case-insensitive", sampleInventory(), "l", "", 3, MatchSizeFold},
		{"type only", sampleInventory(), "", "Green", 3, MatchType},
		{"type is case-sensitive", sampleInventory(), "", "green", 0, MatchFirstStocked},
		{"size and type is case-sensitive", sampleInventory(), "s", "Red", 0, MatchFirstStocked},
		{"unknown pair falls back to first stocked", sampleInventory(), "XL", "Red", 0, MatchFirstStocked},
		{"nothing requested falls back", sampleInventory(), "", "", 0, MatchFirstStocked},
		{
			"fallback skips empty buckets",
			[]models.InventoryLine{{Size: "S", Quantity: 0}, {Size: "M", Quantity: 2}},
			"XL", "", 1, MatchFirstStocked,
		},
		{
			"no stock anywhere picks first line",
			[]models.InventoryLine{{Size: "S", Quantity: 0}, {Size: "M", Quantity: 0}},
			"XL", "", 0, MatchFirstLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := MatchLine(tt.inventory, tt.size, tt.typ)
			require.True(t, ok)
			assert.Equal(t, tt.wantIndex, m.Index)
			assert.Equal(t, tt.wantRule, m.Rule, "rule %s", m.Rule)
		})
	}
}

func TestMatchLineEmptyInventory(t *testing.T) {
	_, ok := MatchLine(nil, "S", "Red")
	assert.False(t, ok)
}

func TestMatchFallback(t *testing.T) {
	assert.True(t, Match{Rule: MatchFirstStocked}.Fallback())
	assert.True(t, Match{Rule: MatchFirstLine}.Fallback())
	assert.False(t, Match{Rule: MatchSizeFold}.Fallback())
}
