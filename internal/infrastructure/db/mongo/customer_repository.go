package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bizdesk/customer-service/internal/core/domain"
	"github.com/bizdesk/customer-service/internal/core/ports"
)

const (
	collectionCustomers = "customers"
	collectionCounters  = "counters"
	customerSequence    = "customers"

	// maxPrealloc bounds the slice capacity reserved for a page.
	maxPrealloc = 64
)

// CustomerRepository stores customers with integer IDs drawn from a
// counters collection.
type CustomerRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

var _ ports.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{
		col:      db.Collection(collectionCustomers),
		counters: db.Collection(collectionCounters),
		now:      time.Now,
	}
}

// nextID atomically increments and returns the customer sequence.
func (r *CustomerRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": customerSequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next customer id: %w", err)
	}
	return counter.Seq, nil
}

func (r *CustomerRepository) CreateCustomer(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	doc := *c
	doc.ID = id
	doc.CreatedAt = mongoTime(r.now())
	doc.UpdatedAt = doc.CreatedAt

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if uv, ok := duplicateKey(err, "customer"); ok {
			return nil, uv
		}
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return &doc, nil
}

func (r *CustomerRepository) FindCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c domain.Customer
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find customer %d: %w", id, err)
	}
	return normalize(&c), nil
}

func (r *CustomerRepository) ListCustomers(ctx context.Context, skip, take int) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(take))

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Customer, 0, min(take, maxPrealloc))
	for cur.Next(ctx) {
		var c domain.Customer
		if err := cur.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode customer: %w", err)
		}
		out = append(out, *normalize(&c))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

func (r *CustomerRepository) CountCustomers(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (r *CustomerRepository) UpdateCustomer(ctx context.Context, id int64, changes domain.CustomerChanges) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var updated domain.Customer
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": changeSet(changes, mongoTime(r.now()))},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		if uv, ok := duplicateKey(err, "customer"); ok {
			return nil, uv
		}
		return nil, fmt.Errorf("update customer %d: %w", id, err)
	}
	return normalize(&updated), nil
}

func (r *CustomerRepository) DeleteCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var deleted domain.Customer
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("delete customer %d: %w", id, err)
	}
	return normalize(&deleted), nil
}

// EnsureIndexes creates the unique contact indexes and the listing index.
func (r *CustomerRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uq_customers_email").SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetName("uq_customers_phone").SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func changeSet(changes domain.CustomerChanges, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if changes.Name != nil {
		set["name"] = *changes.Name
	}
	if changes.Email != nil {
		set["email"] = *changes.Email
	}
	if changes.Phone != nil {
		set["phone"] = *changes.Phone
	}
	if changes.Address != nil {
		set["address"] = *changes.Address
	}
	return set
}

func normalize(c *domain.Customer) *domain.Customer {
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}
