package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// ProductRepository is a read-only view of the catalog.
type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(productsCollection)}
}

func (r *ProductRepository) FindProductByID(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	return decodeOne[models.Product](r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}))
}
