package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureProductIndexes(db *mongo.Database) error {
	return ensureIndexes(db, "products", mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}, {Key: "isDeleted", Value: 1}},
		Options: options.Index().SetName("category_isDeleted"),
	}, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	}, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetName("slug_index"),
	})
}

func EnsureUserIndexes(db *mongo.Database) error {
	return ensureIndexes(db, "users", mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	})
}

func EnsureOrderIndexes(db *mongo.Database) error {
	return ensureIndexes(db, "orders", mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("user_createdAt"),
	})
}

func EnsureLogIndexes(db *mongo.Database) error {
	return ensureIndexes(db, "logs", mongo.IndexModel{
		Keys:    bson.D{{Key: "productId", Value: 1}},
		Options: options.Index().SetName("productId_index"),
	}, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	})
}

func ensureIndexes(db *mongo.Database, collection string, models ...mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Printf("EnsureIndexes: creating %d index(es) on %s", len(models), collection)
	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		log.Printf("EnsureIndexes: %s index error: %v", collection, err)
		return err
	}
	log.Printf("EnsureIndexes: %s indexes ready: %v", collection, names)
	return nil
}
