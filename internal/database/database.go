package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/insightboard/core/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned once the connector has been disconnected.
var ErrClosed = errors.New("database connector is closed")

// SetupFunc runs once against the database right after the first
// successful connection.
type SetupFunc func(ctx context.Context, db *mongo.Database) error

// Connector owns the process-lifetime MongoDB client. The client is created
// on first use; concurrent first callers share one connection attempt, and
// a failed attempt is not remembered so the next call retries.
type Connector struct {
	cfg    config.MongoRuntimeConfig
	logger *zap.Logger
	setup  []SetupFunc

	group  singleflight.Group
	mu     sync.RWMutex
	client *mongo.Client
	closed bool
}

// NewConnector creates a connector. No connection is made until the first
// call to Client or Database.
func NewConnector(cfg config.MongoRuntimeConfig, logger *zap.Logger, setup ...SetupFunc) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{cfg: cfg, logger: logger, setup: setup}
}

// Client returns the shared client, connecting if needed. ctx bounds only
// the wait; the shared attempt itself runs under the configured timeouts.
func (c *Connector) Client(ctx context.Context) (*mongo.Client, error) {
	c.mu.RLock()
	client, closed := c.client, c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if client != nil {
		return client, nil
	}

	ch := c.group.DoChan("connect", func() (interface{}, error) {
		return c.connect()
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Client), nil
	}
}

// Database returns the configured database handle.
func (c *Connector) Database(ctx context.Context) (*mongo.Database, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(c.cfg.Database), nil
}

// Disconnect closes the client if one was created.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.closed = true
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (c *Connector) connect() (*mongo.Client, error) {
	c.mu.RLock()
	if c.client != nil {
		client := c.client
		c.mu.RUnlock()
		return client, nil
	}
	c.mu.RUnlock()

	timeout := c.cfg.ServerSelectionTimeout() + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(c.cfg.URIValue()).
		SetMaxPoolSize(c.cfg.MaxPoolSize).
		SetServerSelectionTimeout(c.cfg.ServerSelectionTimeout()).
		SetSocketTimeout(c.cfg.SocketTimeout()).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(c.cfg.Database)
	for _, fn := range c.setup {
		if err := fn(ctx, db); err != nil {
			c.logger.Warn("database setup step failed", zap.Error(err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = client.Disconnect(context.Background())
		return nil, ErrClosed
	}
	c.client = client
	c.logger.Info("mongo connected", zap.String("database", c.cfg.Database))
	return client, nil
}
