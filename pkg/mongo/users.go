package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(usersCollection)}
}

func (r *UserRepository) FindUserByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return decodeOne[models.User](r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}))
}

// UpdateUser applies the non-empty fields of update and returns the new document.
func (r *UserRepository) UpdateUser(ctx context.Context, id bson.ObjectID, update models.UserUpdate) (*models.User, error) {
	update.UpdatedAt = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	res := r.collection.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: update}}, opts)
	return decodeOne[models.User](res)
}

// SetPaymentMetadata replaces the cached payment intent of the user.
func (r *UserRepository) SetPaymentMetadata(ctx context.Context, id bson.ObjectID, meta models.PaymentMetadata) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "metadata", Value: meta},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	res, err := r.collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
