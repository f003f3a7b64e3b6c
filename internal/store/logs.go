package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coopstore/internal/models"
)

func (s *Store) AppendLogs(ctx context.Context, entries []models.Log) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e)
	}
	_, err := s.db.Collection(logsCollection).InsertMany(ctx, docs)
	return err
}

func (s *Store) ListLogs(ctx context.Context, action string, page, limit int64) ([]models.Log, int64, error) {
	filter := bson.M{}
	if action != "" {
		filter["action"] = action
	}
	coll := s.db.Collection(logsCollection)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	logs := make([]models.Log, 0)
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
