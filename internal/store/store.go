// Package store persists products, orders, audit logs and users in MongoDB.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document was modified concurrently")
	ErrDuplicate       = errors.New("duplicate key")
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	logsCollection     = "logs"
	usersCollection    = "users"
)

type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// WithTransaction runs fn inside a MongoDB transaction. The context handed to
// fn carries the session, so every store call made with it joins the
// transaction. Transient transaction errors are retried by the driver.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return s.db.Client().Ping(checkCtx, readpref.Primary())
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}
