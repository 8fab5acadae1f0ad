package redis

import (
	"context"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

type countingSource struct {
	products map[bson.ObjectID]*models.Product
	calls    int
}

func (s *countingSource) FindProductByID(_ context.Context, id bson.ObjectID) (*models.Product, error) {
	s.calls++
	p, ok := s.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func unreachableClient(t *testing.T) *redisclient.Client {
	t.Helper()
	client := redisclient.NewClient(&redisclient.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestProductKey(t *testing.T) {
	id := bson.NewObjectID()
	assert.Equal(t, "product:"+id.Hex(), productKey(id))
}

func TestProductCacheFallsThroughWhenRedisIsDown(t *testing.T) {
	product := &models.Product{ID: bson.NewObjectID(), Name: "lamp", Quantity: 4}
	source := &countingSource{products: map[bson.ObjectID]*models.Product{product.ID: product}}
	cache := NewProductCache(unreachableClient(t), source, time.Minute)

	got, err := cache.FindProductByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "lamp", got.Name)
	assert.Equal(t, 1, source.calls)

	_, err = cache.FindProductByID(context.Background(), bson.NewObjectID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProductCacheDisabled(t *testing.T) {
	product := &models.Product{ID: bson.NewObjectID()}
	source := &countingSource{products: map[bson.ObjectID]*models.Product{product.ID: product}}
	cache := NewProductCache(nil, source, 0)

	for i := 0; i < 3; i++ {
		_, err := cache.FindProductByID(context.Background(), product.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, source.calls)
	assert.NoError(t, cache.RemoveProductFromCache(context.Background(), product.ID))
}
