package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	appName        = "rpm-portal"
)

// Config selects the audit database.
type Config struct {
	URI      string
	Database string
	// MaxPoolSize bounds concurrent audit writers; 0 keeps the driver default.
	MaxPoolSize uint64
	Timeout     time.Duration
}

// Conn bundles the client with the audit database so callers can close both.
type Conn struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials MongoDB and waits for the primary to answer before returning.
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = connectTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetServerSelectionTimeout(timeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &Conn{Client: client, DB: client.Database(cfg.Database)}, nil
}

// Close disconnects the client, waiting at most until ctx is done.
func (c *Conn) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}
