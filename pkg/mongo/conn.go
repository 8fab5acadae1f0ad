package mongo

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/con-plar/purchases/pkg/global"
)

var (
	client       *mongo.Client
	databaseName = "shop"
)

// InitMongoDB connects once and verifies the connection. Later calls to
// GetMongoClient, GetDatabase and GetCollection share this client.
func InitMongoDB(uri, database string) *mongo.Client {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)

	clientOptions := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	c, err := mongo.Connect(clientOptions)
	if err != nil {
		log.Fatalf("Failed to create MongoDB client: %v", err)
	}

	ctx, cancel := global.GetDefaultTimer()
	defer cancel()

	// Ping the database to verify connection
	if err := c.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}

	client = c
	if database != "" {
		databaseName = database
	}
	log.Println("Connected to MongoDB successfully")
	return c
}

func GetMongoClient() *mongo.Client {
	if client == nil {
		log.Fatal("MongoDB client used before InitMongoDB")
	}
	return client
}

func GetDatabase() *mongo.Database {
	return GetMongoClient().Database(databaseName)
}

func GetCollection(collectionName string) *mongo.Collection {
	return GetDatabase().Collection(collectionName)
}

func Ping(ctx context.Context) error {
	return GetMongoClient().Ping(ctx, nil)
}

func Disconnect(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
