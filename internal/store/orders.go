package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coopstore/internal/models"
)

func (s *Store) InsertOrder(ctx context.Context, o *models.Order) error {
	res, err := s.db.Collection(ordersCollection).InsertOne(ctx, o)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = id
	}
	return nil
}

func (s *Store) FindOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := s.db.Collection(ordersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// SaveOrder replaces the whole order document.
func (s *Store) SaveOrder(ctx context.Context, o *models.Order) error {
	o.UpdatedAt = time.Now()
	res, err := s.db.Collection(ordersCollection).ReplaceOne(ctx, bson.M{"_id": o.ID}, o)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(ordersCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrders pages through orders, newest first. A zero user matches all users.
func (s *Store) ListOrders(ctx context.Context, user primitive.ObjectID, page, limit int64) ([]models.Order, int64, error) {
	filter := bson.M{}
	if !user.IsZero() {
		filter["user"] = user
	}
	coll := s.db.Collection(ordersCollection)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if page > 0 && limit > 0 {
		opts.SetSkip((page - 1) * limit).SetLimit(limit)
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
