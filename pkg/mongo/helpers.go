package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

const (
	purchasesCollection  = "purchases"
	productsCollection   = "products"
	categoriesCollection = "categories"
	usersCollection      = "users"
)

// notFound maps the driver's empty-result error onto models.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNotFound
	}
	return err
}

func decodeOne[T any](res *mongo.SingleResult) (*T, error) {
	var out T
	if err := res.Decode(&out); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, collection *mongo.Collection, filter interface{}) ([]T, error) {
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []T
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func aggregate[T any](ctx context.Context, collection *mongo.Collection, pipeline interface{}) ([]T, error) {
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []T
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
