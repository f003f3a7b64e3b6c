// Package orders places orders, confirms payments and updates fulfillment
// status. Every stock change goes through a single reconciliation unit of
// work.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/inventory"
	"coopstore/internal/models"
	"coopstore/internal/store"
)

// Repository is the persistence the service needs. Calls made with the
// context passed into WithTransaction's fn belong to that transaction.
type Repository interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	SaveProduct(ctx context.Context, p *models.Product) error

	InsertOrder(ctx context.Context, o *models.Order) error
	FindOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	SaveOrder(ctx context.Context, o *models.Order) error
	DeleteOrder(ctx context.Context, id primitive.ObjectID) error
	ListOrders(ctx context.Context, user primitive.ObjectID, page, limit int64) ([]models.Order, int64, error)

	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// AuditLogger appends audit trail entries.
type AuditLogger interface {
	AppendLogs(ctx context.Context, entries []models.Log) error
}

// Notifier tells a customer their order was delivered.
type Notifier interface {
	OrderDelivered(ctx context.Context, order *models.Order, recipient *models.User) error
}

var ErrOrderNotFound = errors.New("order not found")

// ValidationError marks input the caller must fix.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

type Service struct {
	repo        Repository
	audit       AuditLogger
	notifier    Notifier
	policy      inventory.Policy
	maxAttempts int
	now         func() time.Time
}

type Option func(*Service)

// WithPolicy sets how oversold lines are handled. The default is Clamp.
func WithPolicy(p inventory.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithMaxAttempts bounds how often a unit of work is retried after a
// version conflict.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, audit AuditLogger, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		audit:       audit,
		notifier:    notifier,
		policy:      inventory.Clamp,
		maxAttempts: 3,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// unitOfWork runs fn in a transaction and reruns it from scratch when a
// product save loses a version race. fn must not keep state across attempts.
func (s *Service) unitOfWork(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.repo.WithTransaction(ctx, fn)
		if err == nil || !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		log.Printf("[ORDER] [WARN] %s: %v (attempt %d/%d)", op, err, attempt, s.maxAttempts)
	}
	return err
}

func (s *Service) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

// ListOrders pages through all orders, or one user's orders when user is set.
func (s *Service) ListOrders(ctx context.Context, user primitive.ObjectID, page, limit int64) ([]models.Order, int64, error) {
	return s.repo.ListOrders(ctx, user, page, limit)
}

// DeleteOrder removes an order and records one delete entry per line. Stock
// is not returned to inventory.
func (s *Service) DeleteOrder(ctx context.Context, id primitive.ObjectID, actor models.Actor) error {
	return s.repo.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.FindOrder(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if err := s.repo.DeleteOrder(ctx, id); err != nil {
			return err
		}

		now := s.now()
		reason := fmt.Sprintf("Order %s deleted", order.ID.Hex())
		entries := make([]models.Log, 0, len(order.OrderItems))
		for _, item := range order.OrderItems {
			entries = append(entries, models.NewLog(actor, models.ActionDelete, item.Product, reason, now))
		}
		return s.audit.AppendLogs(ctx, entries)
	})
}
