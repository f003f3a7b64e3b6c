package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InventoryLine is the stock held for one size/type variant of a product.
type InventoryLine struct {
	Size     string `bson:"size" json:"size"`
	Type     string `bson:"type" json:"type"`
	Quantity int    `bson:"quantity" json:"quantity"`
}

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Slug         string             `bson:"slug,omitempty" json:"slug,omitempty"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Category     string             `bson:"category" json:"category"`
	Price        float64            `bson:"price" json:"price"`
	Image        string             `bson:"image,omitempty" json:"image,omitempty"`
	Size         StringList         `bson:"size" json:"size"`
	Type         StringList         `bson:"type" json:"type"`
	Inventory    []InventoryLine    `bson:"inventory" json:"inventory"`
	CountInStock int                `bson:"countInStock" json:"countInStock"`
	Version      int64              `bson:"version" json:"-"`
	IsDeleted    bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt    *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasVariants reports whether the product declares any size or type labels.
func (p *Product) HasVariants() bool {
	return len(p.Size) > 0 || len(p.Type) > 0
}

// TotalStock derives the sellable quantity. A non-empty inventory is always
// authoritative over the cached CountInStock.
func (p *Product) TotalStock() int {
	if len(p.Inventory) == 0 {
		return p.CountInStock
	}
	total := 0
	for _, line := range p.Inventory {
		total += line.Quantity
	}
	return total
}

// Clone returns a deep copy, so callers can mutate inventory without touching
// a shared snapshot.
func (p *Product) Clone() *Product {
	out := *p
	out.Size = append(StringList(nil), p.Size...)
	out.Type = append(StringList(nil), p.Type...)
	out.Inventory = append([]InventoryLine(nil), p.Inventory...)
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		out.DeletedAt = &t
	}
	return &out
}
