package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// ProductSource is the authoritative product lookup behind the cache.
type ProductSource interface {
	FindProductByID(ctx context.Context, id bson.ObjectID) (*models.Product, error)
}

// ProductCache is a read-through cache in front of a ProductSource. Redis
// failures are logged and the lookup falls through to the source.
type ProductCache struct {
	client *redisclient.Client
	source ProductSource
	ttl    time.Duration
}

// NewProductCache returns a cache holding entries for ttl. A ttl of zero or
// less disables caching.
func NewProductCache(client *redisclient.Client, source ProductSource, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, source: source, ttl: ttl}
}

func productKey(id bson.ObjectID) string {
	return fmt.Sprintf("product:%s", id.Hex())
}

func (c *ProductCache) FindProductByID(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	if c.ttl <= 0 || c.client == nil {
		return c.source.FindProductByID(ctx, id)
	}

	product, err := c.getProduct(ctx, id)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, redisclient.Nil) {
		log.Printf("[redis] product cache read %s: %v", id.Hex(), err)
	}

	product, err = c.source.FindProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.CacheSingleProduct(ctx, product); err != nil {
		log.Printf("[redis] product cache write %s: %v", id.Hex(), err)
	}
	return product, nil
}

func (c *ProductCache) getProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	productJSON, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(productJSON, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return &product, nil
}

// CacheSingleProduct stores product under product:{id} for the cache ttl.
func (c *ProductCache) CacheSingleProduct(ctx context.Context, product *models.Product) error {
	productJSON, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product %s: %w", product.ID.Hex(), err)
	}
	if err := c.client.Set(ctx, productKey(product.ID), productJSON, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache product %s: %w", product.ID.Hex(), err)
	}
	return nil
}

// RemoveProductFromCache drops the cached entry so the next read hits the source.
func (c *ProductCache) RemoveProductFromCache(ctx context.Context, id bson.ObjectID) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, productKey(id)).Err()
}
