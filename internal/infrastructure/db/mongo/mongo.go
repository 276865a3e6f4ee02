// Package mongo implements the user and customer repositories on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bizdesk/customer-service/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// Pinger adapts a client to the readiness check.
type Pinger struct {
	Client *mongo.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}

// Unique index names match the SQL constraint names.
var uniqueIndexes = []struct {
	name   string
	entity string
	field  string
}{
	{"uq_users_email", "user", "email"},
	{"uq_customers_email", "customer", "email"},
	{"uq_customers_phone", "customer", "phone"},
}

// duplicateKey converts a duplicate key error into a
// *domain.UniqueViolationError and reports whether err was one.
func duplicateKey(err error, entity string) (*domain.UniqueViolationError, bool) {
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false
	}
	msg := err.Error()
	for _, idx := range uniqueIndexes {
		if strings.Contains(msg, idx.name) {
			return &domain.UniqueViolationError{Entity: idx.entity, Field: idx.field, Err: err}, true
		}
	}
	return &domain.UniqueViolationError{Entity: entity, Err: err}, true
}

// mongoTime truncates to the millisecond precision BSON dates keep.
func mongoTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
