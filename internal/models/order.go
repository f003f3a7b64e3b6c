package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentGCash  = "gcash"
	PaymentPickup = "pickup"
)

// OrderLine is one product entry of an order, with a snapshot of the name,
// price and image the customer saw at checkout.
type OrderLine struct {
	Product primitive.ObjectID `bson:"product" json:"product"`
	Qty     int                `bson:"qty" json:"qty"`
	Size    string             `bson:"size,omitempty" json:"size,omitempty"`
	Type    string             `bson:"type,omitempty" json:"type,omitempty"`
	Name    string             `bson:"name" json:"name"`
	Price   float64            `bson:"price" json:"price"`
	Image   string             `bson:"image,omitempty" json:"image,omitempty"`
}

type ShippingAddress struct {
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// PaymentResult is the receipt reported by the payment gateway.
type PaymentResult struct {
	ID           string `bson:"id" json:"id"`
	Status       string `bson:"status" json:"status"`
	UpdateTime   string `bson:"update_time" json:"update_time"`
	EmailAddress string `bson:"email_address" json:"email_address"`
}

type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User              primitive.ObjectID `bson:"user" json:"user"`
	OrderItems        []OrderLine        `bson:"orderItems" json:"orderItems"`
	ShippingAddress   ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod     string             `bson:"paymentMethod" json:"paymentMethod"`
	TotalPrice        float64            `bson:"totalPrice" json:"totalPrice"`
	IsPaid            bool               `bson:"isPaid" json:"isPaid"`
	PaidAt            *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	PaymentResult     *PaymentResult     `bson:"paymentResult,omitempty" json:"paymentResult,omitempty"`
	IsDelivered       bool               `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt       *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	InventoryDeducted bool               `bson:"inventoryDeducted" json:"inventoryDeducted"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
