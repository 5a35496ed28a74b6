package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"autoblog/config"
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	mdb        *mongo.Database
)

// ErrMongoDisabled is returned by InitMongo when no URI is configured.
var ErrMongoDisabled = errors.New("mongo: no uri configured")

// InitMongo initializes the global Mongo client used for the ai_logs audit
// collection. The audit log is optional: with an empty URI it returns
// ErrMongoDisabled and the caller runs without it.
func InitMongo(ctx context.Context, cfg config.MongoConfig) error {
	if cfg.URI == "" {
		return ErrMongoDisabled
	}

	var initErr error
	clientOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		cl, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			initErr = err
			return
		}
		// Ping to verify connection
		if err := cl.Ping(ctx, readpref.Primary()); err != nil {
			_ = cl.Disconnect(context.Background())
			initErr = err
			return
		}
		client = cl
		mdb = client.Database(cfg.Database)

		if err := ensureIndexes(ctx, mdb); err != nil {
			initErr = err
			return
		}
		config.Logger.Info("MongoDB connected and indexes ensured")
	})
	return initErr
}

func MongoClient() *mongo.Client     { return client }
func MongoDatabase() *mongo.Database { return mdb }

// DisconnectMongo closes the global client if it was initialized.
func DisconnectMongo(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func ensureIndexes(ctx context.Context, d *mongo.Database) error {
	// ai_logs: requested_at desc for dashboards, (kind, success) for error rates
	if _, err := d.Collection("ai_logs").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "requested_at", Value: -1}},
		Options: options.Index().SetName("idx_requested_at_desc"),
	}); err != nil {
		return err
	}
	if _, err := d.Collection("ai_logs").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "success", Value: 1}},
		Options: options.Index().SetName("idx_kind_success"),
	}); err != nil {
		return err
	}
	return nil
}
