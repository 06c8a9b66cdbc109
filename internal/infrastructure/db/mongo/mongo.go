// Package mongo is the document persistence backend: one collection per
// entity, numeric keys drawn from a counters collection, and optional
// multi-document transactions.
package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Collection names used by the catalog.
const (
	ItemsCollection      = "items"
	PropertiesCollection = "properties"
	UsersCollection      = "users"
	countersCollection   = "counters"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
	// Transactions requires a replica set or sharded cluster.
	Transactions bool
}

// Client bundles the driver client with the selected database.
type Client struct {
	*mongo.Client
	DB           *mongo.Database
	transactions bool
	logger       zerolog.Logger
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns it bound to the configured database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, errors.Wrap(err, "mongo ping")
	}

	logger.Info().Str("database", cfg.Database).Bool("transactions", cfg.Transactions).Msg("connected to MongoDB")
	return &Client{
		Client:       client,
		DB:           client.Database(cfg.Database),
		transactions: cfg.Transactions,
		logger:       logger,
	}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.Disconnect(ctx)
}

// EnsureIndexes creates the secondary indexes the catalog queries rely on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := c.DB.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return errors.Wrap(err, "users index")
	}

	if _, err := c.DB.Collection(PropertiesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}},
	}); err != nil {
		return errors.Wrap(err, "properties index")
	}
	return nil
}
