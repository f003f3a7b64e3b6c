package orders

import (
	"context"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/models"
)

type CreateOrderInput struct {
	User            primitive.ObjectID
	Items           []models.OrderLine
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	TotalPrice      float64
}

func (in CreateOrderInput) validate() error {
	if len(in.Items) == 0 {
		return invalid("no order items")
	}
	if in.User.IsZero() {
		return invalid("user is required")
	}
	switch in.PaymentMethod {
	case models.PaymentGCash, models.PaymentPickup:
	default:
		return invalid("invalid payment method")
	}
	for _, item := range in.Items {
		if item.Product.IsZero() {
			return invalid("product is required for every order item")
		}
		if item.Qty <= 0 {
			return invalid("qty must be greater than zero")
		}
	}
	return nil
}

// CreateOrder deducts stock for every line and persists the order in one
// transaction. gcash orders are paid up front, pickup orders are not.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if err := in.validate(); err != nil {
		return nil, err
	}

	total := in.TotalPrice
	if total <= 0 {
		for _, item := range in.Items {
			total += item.Price * float64(item.Qty)
		}
	}

	var order *models.Order
	err := s.unitOfWork(ctx, "create order", func(ctx context.Context) error {
		now := s.now()
		order = &models.Order{
			User:            in.User,
			OrderItems:      append([]models.OrderLine(nil), in.Items...),
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			TotalPrice:      total,
			IsPaid:          in.PaymentMethod == models.PaymentGCash,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if order.IsPaid {
			order.PaidAt = &now
		}

		if _, err := s.deductOrder(ctx, order); err != nil {
			return err
		}
		return s.repo.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ORDER] [INFO] order %s created for user %s (%d lines, %s)",
		order.ID.Hex(), order.User.Hex(), len(order.OrderItems), order.PaymentMethod)
	return order, nil
}
