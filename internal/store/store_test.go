package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestProductFilterQuery(t *testing.T) {
	q := ProductFilter{}.query()
	assert.Equal(t, bson.M{"isDeleted": bson.M{"$ne": true}}, q)

	q = ProductFilter{Category: " Apparel ", Search: "shirt", IncludeArchived: true}.query()
	assert.NotContains(t, q, "isDeleted")
	assert.Equal(t, "Apparel", q["category"])
	assert.Len(t, q["$or"], 2)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("find: %w", mongo.ErrNoDocuments)), ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}
