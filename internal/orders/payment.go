package orders

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/models"
	"coopstore/internal/store"
)

// ConfirmPayment records the gateway receipt and marks the order paid. Stock
// is deducted here only for orders that were never reconciled at creation.
func (s *Service) ConfirmPayment(ctx context.Context, id primitive.ObjectID, receipt models.PaymentResult) (*models.Order, error) {
	var order *models.Order
	err := s.unitOfWork(ctx, "confirm payment", func(ctx context.Context) error {
		var err error
		order, err = s.repo.FindOrder(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		now := s.now()
		order.IsPaid = true
		order.PaidAt = &now
		order.PaymentResult = &receipt

		deductions, err := s.deductOrder(ctx, order)
		if err != nil {
			return err
		}
		if len(deductions) > 0 {
			log.Printf("[ORDER] [INFO] order %s: deducted %d lines at payment", order.ID.Hex(), len(deductions))
		}
		return s.repo.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ORDER] [INFO] order %s paid (receipt %s, status %s)", order.ID.Hex(), receipt.ID, receipt.Status)
	return order, nil
}
