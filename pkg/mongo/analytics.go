package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// orderStatsPipeline groups a user's non-cart purchases by status.
func orderStatsPipeline(user bson.ObjectID) bson.A {
	return bson.A{
		bson.D{
			{Key: "$match", Value: ordersFilter(user, models.StatusAll)},
		},
		bson.D{
			{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$status"},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
				{Key: "items", Value: bson.D{{Key: "$sum", Value: "$buy_count"}}},
				{Key: "total_spent", Value: bson.D{{Key: "$sum", Value: bson.D{
					{Key: "$multiply", Value: bson.A{"$price", "$buy_count"}},
				}}}},
			}},
		},
		bson.D{
			{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}},
		},
	}
}

func (r *PurchaseRepository) OrderStats(ctx context.Context, user bson.ObjectID) ([]models.StatusStats, error) {
	return aggregate[models.StatusStats](ctx, r.collection, orderStatsPipeline(user))
}
