package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coopstore/internal/inventory"
	"coopstore/internal/models"
)

// ProductFilter narrows catalog listings. Zero values match everything.
type ProductFilter struct {
	Category        string
	Search          string
	IncludeArchived bool
	Page            int64
	Limit           int64
}

func (f ProductFilter) query() bson.M {
	filter := bson.M{}
	if !f.IncludeArchived {
		filter["isDeleted"] = bson.M{"$ne": true}
	}
	if category := strings.TrimSpace(f.Category); category != "" {
		filter["category"] = category
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		filter["$or"] = []bson.M{
			{"name": bson.M{"$regex": search, "$options": "i"}},
			{"description": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	return filter
}

// FindProduct loads a live product. Archived products are reported as
// ErrNotFound.
func (s *Store) FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.findProduct(ctx, bson.M{"_id": id, "isDeleted": bson.M{"$ne": true}})
}

// FindProductBySlug loads the most recently created live product with the
// given slug.
func (s *Store) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	filter := bson.M{"slug": slug, "isDeleted": bson.M{"$ne": true}}
	if err := s.db.Collection(productsCollection).FindOne(ctx, filter, opts).Decode(&product); err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// FindAnyProduct loads a product whether or not it is archived.
func (s *Store) FindAnyProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.findProduct(ctx, bson.M{"_id": id})
}

func (s *Store) findProduct(ctx context.Context, filter bson.M) (*models.Product, error) {
	var product models.Product
	if err := s.db.Collection(productsCollection).FindOne(ctx, filter).Decode(&product); err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := f.query()
	coll := s.db.Collection(productsCollection)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Page > 0 && f.Limit > 0 {
		opts.SetSkip((f.Page - 1) * f.Limit).SetLimit(f.Limit)
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Categories returns the distinct categories of live products.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	values, err := s.db.Collection(productsCollection).Distinct(ctx, "category", bson.M{"isDeleted": bson.M{"$ne": true}})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok && strings.TrimSpace(name) != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func (s *Store) InsertProduct(ctx context.Context, p *models.Product) error {
	now := time.Now()
	inventory.Recount(p)
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := s.db.Collection(productsCollection).InsertOne(ctx, p)
	if err != nil {
		return translate(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id
	}
	return nil
}

// SaveProduct replaces the whole product document. The write only lands if
// the stored version still equals p.Version; otherwise ErrVersionConflict is
// returned and p is unchanged. CountInStock is recounted before writing.
func (s *Store) SaveProduct(ctx context.Context, p *models.Product) error {
	filter := bson.M{"_id": p.ID, "version": p.Version}
	if p.Version == 0 {
		filter = bson.M{
			"_id": p.ID,
			"$or": []bson.M{
				{"version": 0},
				{"version": bson.M{"$exists": false}},
			},
		}
	}

	next := *p
	inventory.Recount(&next)
	next.Version = p.Version + 1
	next.UpdatedAt = time.Now()

	res, err := s.db.Collection(productsCollection).ReplaceOne(ctx, filter, &next)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", p.ID.Hex(), ErrVersionConflict)
	}

	*p = next
	return nil
}
