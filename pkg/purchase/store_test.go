package purchase

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// memStore is an in-memory Store with the same scoping rules as the Mongo repository.
type memStore struct {
	mu        sync.Mutex
	purchases []*models.Purchase
	products  map[bson.ObjectID]*models.Product
	insertErr error
	// beforeRestore runs at the start of Restore without the lock held.
	beforeRestore func()
}

func newMemStore(products ...*models.Product) *memStore {
	s := &memStore{products: map[bson.ObjectID]*models.Product{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) FindProductByID(_ context.Context, id bson.ObjectID) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) find(match func(p *models.Purchase) bool) *models.Purchase {
	for _, p := range s.purchases {
		if match(p) {
			return p
		}
	}
	return nil
}

func (s *memStore) inCart(user, product bson.ObjectID) *models.Purchase {
	return s.find(func(p *models.Purchase) bool {
		return p.User == user && p.Product == product && p.Status == models.StatusInCart
	})
}

func clone(p *models.Purchase) *models.Purchase {
	cp := *p
	return &cp
}

func (s *memStore) FindInCart(_ context.Context, user, product bson.ObjectID) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.inCart(user, product); p != nil {
		return clone(p), nil
	}
	return nil, models.ErrNotFound
}

func (s *memStore) IncrementInCart(_ context.Context, seed *models.Purchase) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.inCart(seed.User, seed.Product); p != nil {
		p.BuyCount += seed.BuyCount
		p.SetTimestamps()
		return clone(p), nil
	}
	s.purchases = append(s.purchases, clone(seed))
	return clone(seed), nil
}

func (s *memStore) SetCartBuyCount(_ context.Context, user, product bson.ObjectID, buyCount int) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.inCart(user, product)
	if p == nil {
		return nil, models.ErrNotFound
	}
	p.BuyCount = buyCount
	return clone(p), nil
}

func (s *memStore) CheckoutFromCart(_ context.Context, user, product bson.ObjectID, buyCount int) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.inCart(user, product)
	if p == nil {
		return nil, models.ErrNotFound
	}
	before := clone(p)
	p.BuyCount = buyCount
	p.Status = models.StatusWaitForConfirmation
	return before, nil
}

func (s *memStore) Insert(_ context.Context, p *models.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.purchases = append(s.purchases, clone(p))
	return nil
}

func (s *memStore) Restore(_ context.Context, p *models.Purchase) error {
	if s.beforeRestore != nil {
		s.beforeRestore()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Status == models.StatusInCart {
		if line := s.inCart(p.User, p.Product); line != nil && line.ID != p.ID {
			return models.ErrCartLineExists
		}
	}
	for i, cur := range s.purchases {
		if cur.ID == p.ID && cur.User == p.User {
			s.purchases[i] = clone(p)
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *memStore) Delete(_ context.Context, user, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.purchases {
		if cur.ID == id && cur.User == user {
			s.purchases = append(s.purchases[:i], s.purchases[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *memStore) detail(p *models.Purchase) models.PurchaseDetail {
	d := models.PurchaseDetail{
		ID:                  p.ID,
		User:                p.User,
		BuyCount:            p.BuyCount,
		Price:               p.Price,
		PriceBeforeDiscount: p.PriceBeforeDiscount,
		Status:              p.Status,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if prod, ok := s.products[p.Product]; ok {
		d.Product = models.ProductDetail{
			ID:       prod.ID,
			Name:     prod.Name,
			Image:    prod.Image,
			Images:   append([]string(nil), prod.Images...),
			Price:    prod.Price,
			Quantity: prod.Quantity,
		}
	}
	return d
}

func (s *memStore) Details(_ context.Context, ids []bson.ObjectID) ([]models.PurchaseDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PurchaseDetail, 0, len(ids))
	for _, id := range ids {
		if p := s.find(func(p *models.Purchase) bool { return p.ID == id }); p != nil {
			out = append(out, s.detail(p))
		}
	}
	return out, nil
}

func (s *memStore) list(match func(p *models.Purchase) bool) []models.PurchaseDetail {
	var out []models.PurchaseDetail
	for _, p := range s.purchases {
		if match(p) {
			out = append(out, s.detail(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memStore) ListOrders(_ context.Context, user bson.ObjectID, status models.PurchaseStatus) ([]models.PurchaseDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(p *models.Purchase) bool {
		if p.User != user || p.Status == models.StatusInCart {
			return false
		}
		return status == models.StatusAll || p.Status == status
	}), nil
}

func (s *memStore) ListCart(_ context.Context, user bson.ObjectID) ([]models.PurchaseDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(p *models.Purchase) bool {
		return p.User == user && p.Status == models.StatusInCart
	}), nil
}

func (s *memStore) DeleteInCart(_ context.Context, user bson.ObjectID, ids []bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[bson.ObjectID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var kept []*models.Purchase
	var n int64
	for _, p := range s.purchases {
		if p.User == user && p.Status == models.StatusInCart && want[p.ID] {
			n++
			continue
		}
		kept = append(kept, p)
	}
	s.purchases = kept
	return n, nil
}

func (s *memStore) FindByIDs(_ context.Context, user bson.ObjectID, ids []bson.ObjectID) ([]models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Purchase
	for _, id := range ids {
		if p := s.find(func(p *models.Purchase) bool { return p.ID == id && p.User == user }); p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) Transition(_ context.Context, user bson.ObjectID, ids []bson.ObjectID, from, to models.PurchaseStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		p := s.find(func(p *models.Purchase) bool { return p.ID == id && p.User == user && p.Status == from })
		if p != nil {
			p.Status = to
			n++
		}
	}
	return n, nil
}

func (s *memStore) OrderStats(_ context.Context, user bson.ObjectID) ([]models.StatusStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byStatus := map[models.PurchaseStatus]*models.StatusStats{}
	for _, p := range s.purchases {
		if p.User != user || p.Status == models.StatusInCart {
			continue
		}
		st, ok := byStatus[p.Status]
		if !ok {
			st = &models.StatusStats{Status: p.Status}
			byStatus[p.Status] = st
		}
		st.Count++
		st.Items += p.BuyCount
		st.TotalSpent += p.Subtotal()
	}
	out := make([]models.StatusStats, 0, len(byStatus))
	for _, st := range byStatus {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

// byStatus returns the stored records of user in status.
func (s *memStore) byStatus(user bson.ObjectID, status models.PurchaseStatus) []models.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Purchase
	for _, p := range s.purchases {
		if p.User == user && p.Status == status {
			out = append(out, *p)
		}
	}
	return out
}

type memUsers struct {
	mu   sync.Mutex
	meta map[bson.ObjectID]models.PaymentMetadata
}

func newMemUsers(ids ...bson.ObjectID) *memUsers {
	u := &memUsers{meta: map[bson.ObjectID]models.PaymentMetadata{}}
	for _, id := range ids {
		u.meta[id] = models.PaymentMetadata{}
	}
	return u
}

func (u *memUsers) SetPaymentMetadata(_ context.Context, user bson.ObjectID, meta models.PaymentMetadata) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.meta[user]; !ok {
		return models.ErrNotFound
	}
	u.meta[user] = meta
	return nil
}

type recordedEvent struct {
	Type    string
	Payload interface{}
}

type memPublisher struct {
	events []recordedEvent
}

func (p *memPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	p.events = append(p.events, recordedEvent{Type: eventType, Payload: payload})
	return nil
}
