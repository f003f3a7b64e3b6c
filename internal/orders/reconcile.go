package orders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/inventory"
	"coopstore/internal/models"
	"coopstore/internal/store"
)

// reconciler applies the lines of one order against a per-call product cache.
// Each product is loaded at most once and saved at most once, after every
// line has been applied.
type reconciler struct {
	repo    Repository
	policy  inventory.Policy
	cache   map[primitive.ObjectID]*models.Product
	touched []primitive.ObjectID
}

func newReconciler(repo Repository, policy inventory.Policy) *reconciler {
	return &reconciler{
		repo:   repo,
		policy: policy,
		cache:  make(map[primitive.ObjectID]*models.Product),
	}
}

// load returns the cached product, fetching it on first use. A missing or
// archived product yields nil without error and is remembered as missing.
func (r *reconciler) load(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	if p, ok := r.cache[id]; ok {
		return p, nil
	}
	p, err := r.repo.FindProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		r.cache[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", id.Hex(), err)
	}
	r.cache[id] = p
	r.touched = append(r.touched, id)
	return p, nil
}

func (r *reconciler) apply(ctx context.Context, items []models.OrderLine) ([]inventory.Deduction, error) {
	deductions := make([]inventory.Deduction, 0, len(items))
	for _, item := range items {
		line := inventory.LineFromOrder(item)

		product, err := r.load(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			log.Printf("[INVENTORY] [WARN] product %s not found, line skipped", line.ProductID.Hex())
			continue
		}

		d, err := inventory.Apply(product, line, r.policy)
		if err != nil {
			return nil, err
		}
		if d.Shortfall > 0 {
			log.Printf("[INVENTORY] [WARN] product %s oversold by %d (requested %d)",
				product.ID.Hex(), d.Shortfall, d.Requested)
		}
		deductions = append(deductions, d)
	}
	return deductions, nil
}

func (r *reconciler) commit(ctx context.Context) error {
	for _, id := range r.touched {
		product := r.cache[id]
		inventory.Recount(product)
		if err := r.repo.SaveProduct(ctx, product); err != nil {
			return fmt.Errorf("save product %s: %w", id.Hex(), err)
		}
	}
	return nil
}

// deductOrder applies every line of order and marks it deducted. It is a
// no-op for an order whose inventory was already deducted, so any call site
// may invoke it without double counting.
func (s *Service) deductOrder(ctx context.Context, order *models.Order) ([]inventory.Deduction, error) {
	if order.InventoryDeducted {
		return nil, nil
	}
	r := newReconciler(s.repo, s.policy)
	deductions, err := r.apply(ctx, order.OrderItems)
	if err != nil {
		return nil, err
	}
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	order.InventoryDeducted = true
	return deductions, nil
}
