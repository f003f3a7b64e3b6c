package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/models"
	"coopstore/internal/store"
)

// StatusUpdate carries the flags to set. A nil flag is left as is.
type StatusUpdate struct {
	IsPaid      *bool
	IsDelivered *bool
	Actor       models.Actor
}

// UpdateStatus flips the paid and delivered flags without touching stock.
// Only flags whose value actually changes are stamped and audited, one log
// entry per order line. A delivered transition sends one notification after
// the change is committed; a failed notification is logged, not returned.
func (s *Service) UpdateStatus(ctx context.Context, id primitive.ObjectID, update StatusUpdate) (*models.Order, error) {
	var (
		order     *models.Order
		delivered bool
	)
	err := s.unitOfWork(ctx, "update status", func(ctx context.Context) error {
		var err error
		order, err = s.repo.FindOrder(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		now := s.now()
		var entries []models.Log
		delivered = false

		if update.IsPaid != nil && *update.IsPaid != order.IsPaid {
			order.IsPaid = *update.IsPaid
			order.PaidAt = stamp(order.IsPaid, now)
			entries = append(entries, statusLogs(order, update.Actor, "paid", order.IsPaid, now)...)
		}
		if update.IsDelivered != nil && *update.IsDelivered != order.IsDelivered {
			order.IsDelivered = *update.IsDelivered
			order.DeliveredAt = stamp(order.IsDelivered, now)
			entries = append(entries, statusLogs(order, update.Actor, "delivered", order.IsDelivered, now)...)
			delivered = order.IsDelivered
		}

		if len(entries) == 0 {
			return nil
		}
		if err := s.repo.SaveOrder(ctx, order); err != nil {
			return err
		}
		return s.audit.AppendLogs(ctx, entries)
	})
	if err != nil {
		return nil, err
	}

	if delivered {
		s.notifyDelivered(ctx, order)
	}
	return order, nil
}

func stamp(set bool, now time.Time) *time.Time {
	if !set {
		return nil
	}
	return &now
}

func statusLogs(order *models.Order, actor models.Actor, flag string, value bool, now time.Time) []models.Log {
	state := flag
	if !value {
		state = "not " + flag
	}
	reason := fmt.Sprintf("Order %s marked as %s", order.ID.Hex(), state)

	entries := make([]models.Log, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		entries = append(entries, models.NewLog(actor, models.ActionUpdate, item.Product, reason, now))
	}
	return entries
}

func (s *Service) notifyDelivered(ctx context.Context, order *models.Order) {
	recipient, err := s.repo.FindUser(ctx, order.User)
	if err != nil {
		log.Printf("[NOTIFY] [ERROR] order %s: recipient %s: %v", order.ID.Hex(), order.User.Hex(), err)
		return
	}
	if err := s.notifier.OrderDelivered(ctx, order, recipient); err != nil {
		log.Printf("[NOTIFY] [ERROR] order %s: delivery notification failed: %v", order.ID.Hex(), err)
		return
	}
	log.Printf("[NOTIFY] [INFO] order %s: delivery notification sent to %s", order.ID.Hex(), recipient.Email)
}
