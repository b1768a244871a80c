package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	log "github.com/sirupsen/logrus"
)

// Collection name constants.
const (
	colAccounts     = "accounts"
	colTransactions = "transactions"
	colBroadcasts   = "broadcasts"
	colPayments     = "payments"
	colTopUpKeys    = "top_up_keys"
)

// Store owns the client and database handle. Multi-document units of work
// need a replica set or sharded cluster.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB and verifies the primary is reachable
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, wrapErr(err, "failed to ping mongo")
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

// Migrate creates indexes for all collections. An existing index with a
// conflicting definition is logged and kept.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		names, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if isIndexConflict(err) {
			log.WithError(err).WithField("collection", col).Warn("Keeping existing conflicting mongo index")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", col, err)
		}
		log.WithFields(log.Fields{
			"collection": col,
			"indexes":    names,
		}).Debug("Ensured mongo indexes")
	}
	return nil
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{
				Keys:    bson.D{{Key: "discord_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "discord_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colBroadcasts: {
			{Keys: bson.D{{Key: "discord_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "discord_id", Value: 1}, {Key: "status", Value: 1}}},
			{
				Keys: bson.D{{Key: "discord_id", Value: 1}, {Key: "amount", Value: 1}, {Key: "created_at", Value: 1}},
				Options: options.Index().SetPartialFilterExpression(bson.M{
					"status": "pending",
				}),
			},
		},
		colTopUpKeys: {
			{Keys: bson.D{{Key: "discord_id", Value: 1}}},
		},
	}
}

// IndexOptionsConflict and IndexKeySpecsConflict
func isIndexConflict(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == 85 || cmdErr.Code == 86
	}
	return false
}

// now truncates to the millisecond precision BSON dates store
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
