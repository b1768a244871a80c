package mongorepo

import (
	"context"

	"broadcaster/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// BroadcastRepository implements the BroadcastRepository interface
type BroadcastRepository struct {
	scope
}

// NewBroadcastRepository creates a broadcast repository outside any unit of work
func NewBroadcastRepository(store *Store) *BroadcastRepository {
	return &BroadcastRepository{scope{store: store}}
}

func (r *BroadcastRepository) Create(ctx context.Context, broadcast *models.Broadcast) error {
	broadcast.CreatedAt = now()
	doc := broadcastDoc{ID: bson.NewObjectID(), Broadcast: *broadcast}

	if _, err := r.collection(colBroadcasts).InsertOne(r.ctx(ctx), doc); err != nil {
		return wrapErr(err, "failed to create broadcast for %d", broadcast.DiscordID)
	}

	broadcast.ID = doc.ID.Hex()
	return nil
}

func (r *BroadcastRepository) ListByUser(ctx context.Context, discordID int64, limit int) ([]*models.Broadcast, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection(colBroadcasts).Find(r.ctx(ctx), bson.M{"discord_id": discordID}, opts)
	if err != nil {
		return nil, wrapErr(err, "failed to list broadcasts for %d", discordID)
	}

	var docs []broadcastDoc
	if err := cursor.All(r.ctx(ctx), &docs); err != nil {
		return nil, wrapErr(err, "failed to decode broadcasts")
	}

	broadcasts := make([]*models.Broadcast, len(docs))
	for i := range docs {
		broadcasts[i] = docs[i].model()
	}
	return broadcasts, nil
}

func (r *BroadcastRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection(colBroadcasts).CountDocuments(r.ctx(ctx), bson.M{})
	if err != nil {
		return 0, wrapErr(err, "failed to count broadcasts")
	}
	return count, nil
}
