package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// PurchaseRepository stores cart and order lines. Every query except Details
// is scoped to the owning user.
type PurchaseRepository struct {
	collection *mongo.Collection
}

func NewPurchaseRepository(db *mongo.Database) *PurchaseRepository {
	return &PurchaseRepository{collection: db.Collection(purchasesCollection)}
}

func cartLineFilter(user, product bson.ObjectID) bson.D {
	return bson.D{
		{Key: "user", Value: user},
		{Key: "product", Value: product},
		{Key: "status", Value: models.StatusInCart},
	}
}

// ordersFilter never matches IN_CART records. StatusAll matches every other status.
func ordersFilter(user bson.ObjectID, status models.PurchaseStatus) bson.D {
	filter := bson.D{{Key: "user", Value: user}}
	if status == models.StatusAll {
		return append(filter, bson.E{Key: "status", Value: bson.D{{Key: "$ne", Value: models.StatusInCart}}})
	}
	return append(filter, bson.E{Key: "status", Value: status})
}

func cartFilter(user bson.ObjectID) bson.D {
	return bson.D{
		{Key: "user", Value: user},
		{Key: "status", Value: models.StatusInCart},
	}
}

func idsIn(ids []bson.ObjectID) bson.D {
	return bson.D{{Key: "$in", Value: ids}}
}

// incrementUpdate adds seed.BuyCount to the line, and on insert snapshots the
// seed's id, prices and creation time.
func incrementUpdate(seed *models.Purchase, now time.Time) bson.D {
	return bson.D{
		{Key: "$inc", Value: bson.D{{Key: "buy_count", Value: seed.BuyCount}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "_id", Value: seed.ID},
			{Key: "price", Value: seed.Price},
			{Key: "price_before_discount", Value: seed.PriceBeforeDiscount},
			{Key: "created_at", Value: seed.CreatedAt},
		}},
	}
}

// detailPipeline joins the product and the product's category onto every
// matched purchase.
func detailPipeline(match bson.D, newestFirst bool) bson.A {
	pipeline := bson.A{bson.D{{Key: "$match", Value: match}}}
	if newestFirst {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}}})
	}
	return append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: productsCollection},
			{Key: "localField", Value: "product"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "product"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$product"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: categoriesCollection},
			{Key: "localField", Value: "product.category"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "product.category"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$product.category"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	)
}

func (r *PurchaseRepository) FindInCart(ctx context.Context, user, product bson.ObjectID) (*models.Purchase, error) {
	return decodeOne[models.Purchase](r.collection.FindOne(ctx, cartLineFilter(user, product)))
}

// IncrementInCart upserts the cart line in a single write. Two racing upserts
// can both miss and both insert; the partial unique index rejects the loser,
// whose retry then matches the winner's document.
func (r *PurchaseRepository) IncrementInCart(ctx context.Context, seed *models.Purchase) (*models.Purchase, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	upsert := func() (*models.Purchase, error) {
		res := r.collection.FindOneAndUpdate(ctx, cartLineFilter(seed.User, seed.Product), incrementUpdate(seed, time.Now().UTC()), opts)
		return decodeOne[models.Purchase](res)
	}

	merged, err := upsert()
	if mongo.IsDuplicateKeyError(err) {
		merged, err = upsert()
	}
	return merged, err
}

func (r *PurchaseRepository) SetCartBuyCount(ctx context.Context, user, product bson.ObjectID, buyCount int) (*models.Purchase, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "buy_count", Value: buyCount},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeOne[models.Purchase](r.collection.FindOneAndUpdate(ctx, cartLineFilter(user, product), update, opts))
}

func (r *PurchaseRepository) CheckoutFromCart(ctx context.Context, user, product bson.ObjectID, buyCount int) (*models.Purchase, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "buy_count", Value: buyCount},
		{Key: "status", Value: models.StatusWaitForConfirmation},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	return decodeOne[models.Purchase](r.collection.FindOneAndUpdate(ctx, cartLineFilter(user, product), update, opts))
}

func (r *PurchaseRepository) Insert(ctx context.Context, p *models.Purchase) error {
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}
	p.SetTimestamps()
	_, err := r.collection.InsertOne(ctx, p)
	return err
}

// Restore puts p back exactly as given. Restoring an IN_CART record while the
// user already has another cart line for the product fails with
// models.ErrCartLineExists.
func (r *PurchaseRepository) Restore(ctx context.Context, p *models.Purchase) error {
	res, err := r.collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: p.ID}, {Key: "user", Value: p.User}}, p)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrCartLineExists
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PurchaseRepository) Delete(ctx context.Context, user, id bson.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "user", Value: user}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Details returns the joined purchases in the order of ids. Unknown ids are skipped.
func (r *PurchaseRepository) Details(ctx context.Context, ids []bson.ObjectID) ([]models.PurchaseDetail, error) {
	if len(ids) == 0 {
		return []models.PurchaseDetail{}, nil
	}
	found, err := aggregate[models.PurchaseDetail](ctx, r.collection, detailPipeline(bson.D{{Key: "_id", Value: idsIn(ids)}}, false))
	if err != nil {
		return nil, err
	}
	byID := make(map[bson.ObjectID]models.PurchaseDetail, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}
	out := make([]models.PurchaseDetail, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *PurchaseRepository) ListOrders(ctx context.Context, user bson.ObjectID, status models.PurchaseStatus) ([]models.PurchaseDetail, error) {
	return aggregate[models.PurchaseDetail](ctx, r.collection, detailPipeline(ordersFilter(user, status), true))
}

func (r *PurchaseRepository) ListCart(ctx context.Context, user bson.ObjectID) ([]models.PurchaseDetail, error) {
	return aggregate[models.PurchaseDetail](ctx, r.collection, detailPipeline(cartFilter(user), true))
}

func (r *PurchaseRepository) DeleteInCart(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID) (int64, error) {
	filter := append(cartFilter(user), bson.E{Key: "_id", Value: idsIn(ids)})
	res, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *PurchaseRepository) FindByIDs(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID) ([]models.Purchase, error) {
	return findAll[models.Purchase](ctx, r.collection, bson.D{
		{Key: "user", Value: user},
		{Key: "_id", Value: idsIn(ids)},
	})
}

// Transition moves the user's records among ids from one status to another.
// Records not currently in from are left untouched.
func (r *PurchaseRepository) Transition(ctx context.Context, user bson.ObjectID, ids []bson.ObjectID, from, to models.PurchaseStatus) (int64, error) {
	filter := bson.D{
		{Key: "user", Value: user},
		{Key: "status", Value: from},
		{Key: "_id", Value: idsIn(ids)},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: to},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
