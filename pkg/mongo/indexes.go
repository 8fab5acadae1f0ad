package mongo

import (
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/con-plar/purchases/pkg/global"
	"julianmorley.ca/con-plar/purchases/pkg/models"
)

type IndexConfig struct {
	CollectionName string
	IndexModel     mongo.IndexModel
}

var requiredIndexes = []IndexConfig{
	// Purchases Collection Indexes
	// Index 1: one cart line per (user, product); only IN_CART records take part
	{
		CollectionName: purchasesCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "product", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("idx_cart_line_unique").
				SetPartialFilterExpression(bson.D{{Key: "status", Value: int(models.StatusInCart)}}),
		},
	},
	// Index 2: order history by status, newest first
	{
		CollectionName: purchasesCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_user_status_created"),
		},
	},

	// Users Collection Indexes
	{
		CollectionName: usersCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_user_email_unique"),
		},
	},

	// Products Collection Indexes
	{
		CollectionName: productsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("idx_category"),
		},
	},
}

func EnsureIndexes(db *mongo.Database) error {
	log.Println("Starting index creation...")

	for _, idxConfig := range requiredIndexes {
		if err := createIndex(db, idxConfig); err != nil {
			log.Printf("Error creating index on collection %s: %v",
				idxConfig.CollectionName, err)
			return err
		}
	}

	log.Println("All indexes created successfully!")
	return nil
}

func createIndex(db *mongo.Database, idxConfig IndexConfig) error {
	ctx, cancel := global.GetDefaultTimer()
	defer cancel()

	indexName, err := db.Collection(idxConfig.CollectionName).Indexes().CreateOne(ctx, idxConfig.IndexModel)
	if err != nil {
		return err
	}
	log.Printf("✓ Created index '%s' on collection '%s'", indexName, idxConfig.CollectionName)
	return nil
}

func EnsureIndexesOnStartup(db *mongo.Database) {
	if err := EnsureIndexes(db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
}
