package inventory

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/models"
)

// Policy decides what happens when a line asks for more than the matched
// stock holds.
type Policy int

const (
	// Clamp lets the order through and floors stock at zero.
	Clamp Policy = iota
	// Reject refuses the deduction and leaves the product untouched.
	Reject
)

// ParsePolicy maps a config value to a Policy. Unknown values fall back to Clamp.
func ParsePolicy(value string) Policy {
	if strings.EqualFold(strings.TrimSpace(value), "reject") {
		return Reject
	}
	return Clamp
}

func (p Policy) String() string {
	if p == Reject {
		return "reject"
	}
	return "clamp"
}

// Line is the part of an order line that reconciliation needs.
type Line struct {
	ProductID primitive.ObjectID
	Qty       int
	Size      string
	Type      string
}

// LineFromOrder converts a persisted order line.
func LineFromOrder(item models.OrderLine) Line {
	return Line{
		ProductID: item.Product,
		Qty:       item.Qty,
		Size:      strings.TrimSpace(item.Size),
		Type:      strings.TrimSpace(item.Type),
	}
}

// Deduction records what Apply did for one line.
type Deduction struct {
	ProductID primitive.ObjectID
	// Index is the inventory line drawn from, or -1 for a direct
	// CountInStock decrement.
	Index     int
	Rule      MatchRule
	Requested int
	Applied   int
	Shortfall int
}

// Direct reports whether the deduction bypassed the variant table.
func (d Deduction) Direct() bool {
	return d.Index < 0
}

type InsufficientStockError struct {
	ProductID primitive.ObjectID
	Size      string
	Type      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID.Hex(), e.Available, e.Requested)
}

// Apply deducts line.Qty from the stock bucket of p that the line resolves to
// and recounts CountInStock. Negative quantities are treated as zero. Stock
// never drops below zero: under Clamp the excess becomes Shortfall, under
// Reject an *InsufficientStockError is returned and p is left unchanged.
func Apply(p *models.Product, line Line, policy Policy) (Deduction, error) {
	qty := line.Qty
	if qty < 0 {
		qty = 0
	}
	d := Deduction{ProductID: p.ID, Index: -1, Requested: qty}

	// no inventory table: CountInStock is the only stock there is
	if len(p.Inventory) == 0 {
		available := p.CountInStock
		if available < 0 {
			available = 0
		}
		if qty > available && policy == Reject {
			return d, &InsufficientStockError{ProductID: p.ID, Available: available, Requested: qty}
		}
		d.Applied = min(qty, available)
		d.Shortfall = qty - d.Applied
		p.CountInStock = available - d.Applied
		return d, nil
	}

	match, _ := MatchLine(p.Inventory, line.Size, line.Type)
	bucket := &p.Inventory[match.Index]
	available := bucket.Quantity
	if available < 0 {
		available = 0
	}
	if qty > available && policy == Reject {
		return d, &InsufficientStockError{
			ProductID: p.ID,
			Size:      line.Size,
			Type:      line.Type,
			Available: available,
			Requested: qty,
		}
	}

	d.Index = match.Index
	d.Rule = match.Rule
	d.Applied = min(qty, available)
	d.Shortfall = qty - d.Applied
	bucket.Quantity = available - d.Applied
	Recount(p)
	return d, nil
}

// Recount sets CountInStock to the sum of the inventory quantities. Products
// without an inventory table keep their CountInStock.
func Recount(p *models.Product) {
	if len(p.Inventory) == 0 {
		return
	}
	p.CountInStock = p.TotalStock()
}
