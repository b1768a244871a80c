package mongorepo

import (
	"context"
	"fmt"

	"broadcaster/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// TopUpKeyRepository implements the TopUpKeyRepository interface.
// The key is the document _id, so the primary index enforces uniqueness.
type TopUpKeyRepository struct {
	scope
}

// NewTopUpKeyRepository creates a top-up key repository outside any unit of work
func NewTopUpKeyRepository(store *Store) *TopUpKeyRepository {
	return &TopUpKeyRepository{scope{store: store}}
}

func (r *TopUpKeyRepository) Reserve(ctx context.Context, key string, discordID int64) (bool, error) {
	doc := models.TopUpKey{Key: key, DiscordID: discordID, CreatedAt: now()}

	_, err := r.collection(colTopUpKeys).InsertOne(r.ctx(ctx), doc)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err, "failed to reserve top-up key %q", key)
	}
	return true, nil
}

func (r *TopUpKeyRepository) Get(ctx context.Context, key string) (*models.TopUpKey, error) {
	var doc models.TopUpKey
	err := r.collection(colTopUpKeys).FindOne(r.ctx(ctx), bson.M{"_id": key}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get top-up key %q", key)
	}
	return &doc, nil
}

func (r *TopUpKeyRepository) AttachTransaction(ctx context.Context, key string, transactionID string) error {
	res, err := r.collection(colTopUpKeys).UpdateOne(r.ctx(ctx),
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"transaction_id": transactionID}},
	)
	if err != nil {
		return wrapErr(err, "failed to attach transaction to top-up key %q", key)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("top-up key %q not found", key)
	}
	return nil
}
