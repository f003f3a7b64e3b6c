// Package storetest provides an in-memory stand-in for the MongoDB store.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coopstore/internal/inventory"
	"coopstore/internal/models"
	"coopstore/internal/store"
)

// Memory keeps documents in maps. WithTransaction snapshots all state and
// restores it when fn fails, so tests can observe rollback.
type Memory struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
	orders   map[primitive.ObjectID]*models.Order
	users    map[primitive.ObjectID]*models.User
	logs     []models.Log

	// SaveProductErr makes SaveProduct fail for the given product.
	SaveProductErr map[primitive.ObjectID]error
	// InsertOrderErr makes InsertOrder fail.
	InsertOrderErr error
	// Conflicts makes the next N SaveProduct calls return ErrVersionConflict.
	Conflicts int

	ProductLoads int
	ProductSaves int
	Transactions int
}

func NewMemory() *Memory {
	return &Memory{
		products:       map[primitive.ObjectID]*models.Product{},
		orders:         map[primitive.ObjectID]*models.Order{},
		users:          map[primitive.ObjectID]*models.User{},
		SaveProductErr: map[primitive.ObjectID]error{},
	}
}

func (m *Memory) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.Transactions++
	products := make(map[primitive.ObjectID]*models.Product, len(m.products))
	for id, p := range m.products {
		products[id] = p.Clone()
	}
	orders := make(map[primitive.ObjectID]*models.Order, len(m.orders))
	for id, o := range m.orders {
		orders[id] = cloneOrder(o)
	}
	logs := append([]models.Log(nil), m.logs...)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.products = products
		m.orders = orders
		m.logs = logs
		m.mu.Unlock()
		return err
	}
	return nil
}

// PutProduct seeds a product, assigning an id and version when missing.
func (m *Memory) PutProduct(p *models.Product) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	inventory.Recount(p)
	m.products[p.ID] = p.Clone()
	return p
}

// Product returns a copy of the stored product, or nil.
func (m *Memory) Product(id primitive.ObjectID) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return p.Clone()
	}
	return nil
}

func (m *Memory) FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProductLoads++
	p, ok := m.products[id]
	if !ok || p.IsDeleted {
		return nil, store.ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Product
	for _, p := range m.products {
		if p.IsDeleted || p.Slug != slug {
			continue
		}
		if found == nil || p.CreatedAt.After(found.CreatedAt) {
			found = p
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found.Clone(), nil
}

func (m *Memory) FindAnyProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) InsertProduct(ctx context.Context, p *models.Product) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 0
	m.PutProduct(p)
	return nil
}

func (m *Memory) SaveProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.SaveProductErr[p.ID]; err != nil {
		return err
	}
	current, ok := m.products[p.ID]
	if m.Conflicts > 0 {
		m.Conflicts--
		if ok {
			current.Version++
		}
		return fmt.Errorf("product %s: %w", p.ID.Hex(), store.ErrVersionConflict)
	}
	if !ok || current.Version != p.Version {
		return fmt.Errorf("product %s: %w", p.ID.Hex(), store.ErrVersionConflict)
	}
	inventory.Recount(p)
	p.Version++
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p.Clone()
	m.ProductSaves++
	return nil
}

func (m *Memory) InsertOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertOrderErr != nil {
		return m.InsertOrderErr
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

// PutOrder seeds an order.
func (m *Memory) PutOrder(o *models.Order) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	m.orders[o.ID] = cloneOrder(o)
	return o
}

func (m *Memory) FindOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *Memory) SaveOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return store.ErrNotFound
	}
	o.UpdatedAt = time.Now()
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *Memory) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *Memory) ListOrders(ctx context.Context, user primitive.ObjectID, page, limit int64) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if user.IsZero() || o.User == user {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	return paginate(out, page, limit), total, nil
}

// Orders returns copies of every stored order.
func (m *Memory) Orders() []models.Order {
	out, _, _ := m.ListOrders(context.Background(), primitive.NilObjectID, 0, 0)
	return out
}

func (m *Memory) AppendLogs(ctx context.Context, entries []models.Log) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if e.ID.IsZero() {
			e.ID = primitive.NewObjectID()
		}
		m.logs = append(m.logs, e)
	}
	return nil
}

// Logs returns a copy of the audit trail in insertion order.
func (m *Memory) Logs() []models.Log {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Log(nil), m.logs...)
}

func (m *Memory) PutUser(u *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	m.users[u.ID] = &cp
	return u
}

func (m *Memory) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.OrderItems = append([]models.OrderLine(nil), o.OrderItems...)
	if o.PaymentResult != nil {
		pr := *o.PaymentResult
		cp.PaymentResult = &pr
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		cp.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		cp.DeliveredAt = &t
	}
	return &cp
}

func paginate[T any](items []T, page, limit int64) []T {
	if page <= 0 || limit <= 0 {
		return items
	}
	start := (page - 1) * limit
	if start >= int64(len(items)) {
		return []T{}
	}
	end := start + limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}

func (m *Memory) ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	category := strings.TrimSpace(f.Category)
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		if p.IsDeleted && !f.IncludeArchived {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := int64(len(out))
	return paginate(out, f.Page, f.Limit), total, nil
}

func (m *Memory) Categories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, p := range m.products {
		if p.IsDeleted || p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) ListLogs(ctx context.Context, action string, page, limit int64) ([]models.Log, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Log, 0, len(m.logs))
	for i := len(m.logs) - 1; i >= 0; i-- {
		if action == "" || string(m.logs[i].Action) == action {
			out = append(out, m.logs[i])
		}
	}
	total := int64(len(out))
	return paginate(out, page, limit), total, nil
}

func (m *Memory) InsertUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, err := m.FindUserByEmail(ctx, u.Email); err == nil {
		return store.ErrDuplicate
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.PutUser(u)
	return nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}
