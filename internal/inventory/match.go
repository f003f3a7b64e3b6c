// Package inventory applies order deductions to a product's per-variant stock
// and keeps the aggregate count consistent with it. It performs no I/O.
package inventory

import (
	"strings"

	"coopstore/internal/models"
)

// MatchRule names the lookup rule that selected an inventory line.
type MatchRule int

const (
	MatchSizeAndType MatchRule = iota + 1
	MatchSize
	MatchSizeFold
	MatchType
	MatchFirstStocked
	MatchFirstLine
)

func (r MatchRule) String() string {
	switch r {
	case MatchSizeAndType:
		return "size+type"
	case MatchSize:
		return "size"
	case MatchSizeFold:
		return "size(case-insensitive)"
	case MatchType:
		return "type"
	case MatchFirstStocked:
		return "first-stocked"
	case MatchFirstLine:
		return "first-line"
	default:
		return "none"
	}
}

// Match points at the inventory line chosen for an order line.
type Match struct {
	Index int
	Rule  MatchRule
}

// Fallback reports whether the line was picked without matching the
// requested size or type.
func (m Match) Fallback() bool {
	return m.Rule == MatchFirstStocked || m.Rule == MatchFirstLine
}

// MatchLine selects the inventory line an order line should draw from.
// Precedence, first hit wins:
//
//  1. size and type given: exact match on both
//  2. only size given: exact size, then case-insensitive size
//  3. only type given: exact type
//  4. the first line with stock, else the first line
//
// It returns false only when inventory is empty.
func MatchLine(inventory []models.InventoryLine, size, typ string) (Match, bool) {
	if len(inventory) == 0 {
		return Match{}, false
	}

	switch {
	case size != "" && typ != "":
		if i := indexOf(inventory, func(l models.InventoryLine) bool {
			return l.Size == size && l.Type == typ
		}); i >= 0 {
			return Match{Index: i, Rule: MatchSizeAndType}, true
		}
	case size != "":
		if i := indexOf(inventory, func(l models.InventoryLine) bool { return l.Size == size }); i >= 0 {
			return Match{Index: i, Rule: MatchSize}, true
		}
		if i := indexOf(inventory, func(l models.InventoryLine) bool { return strings.EqualFold(l.Size, size) }); i >= 0 {
			return Match{Index: i, Rule: MatchSizeFold}, true
		}
	case typ != "":
		if i := indexOf(inventory, func(l models.InventoryLine) bool { return l.Type == typ }); i >= 0 {
			return Match{Index: i, Rule: MatchType}, true
		}
	}

	if i := indexOf(inventory, func(l models.InventoryLine) bool { return l.Quantity > 0 }); i >= 0 {
		return Match{Index: i, Rule: MatchFirstStocked}, true
	}
	return Match{Index: 0, Rule: MatchFirstLine}, true
}

func indexOf(inventory []models.InventoryLine, pred func(models.InventoryLine) bool) int {
	for i, line := range inventory {
		if pred(line) {
			return i
		}
	}
	return -1
}
