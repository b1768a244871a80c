package mongorepo

import (
	"context"

	"broadcaster/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	scope
}

// NewAccountRepository creates an account repository outside any unit of work
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{scope{store: store}}
}

func (r *AccountRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Account, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var account models.Account
	err := r.collection(colAccounts).FindOneAndUpdate(r.ctx(ctx), filter, update, opts).Decode(&account)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Upsert creates the account or refreshes its username and avatar.
// Empty profile fields keep the stored value.
func (r *AccountRepository) Upsert(ctx context.Context, profile models.AccountProfile) (*models.Account, bool, error) {
	t := now()

	set := bson.M{"updated_at": t}
	setOnInsert := bson.M{
		"credits":             int64(0),
		"total_spent":         int64(0),
		"total_messages_sent": int64(0),
		"total_broadcasts":    int64(0),
		"is_admin":            false,
		"created_at":          t,
	}
	if profile.Username != "" {
		set["username"] = profile.Username
	} else {
		setOnInsert["username"] = ""
	}
	if profile.AvatarURL != "" {
		set["avatar_url"] = profile.AvatarURL
	} else {
		setOnInsert["avatar_url"] = ""
	}

	res, err := r.collection(colAccounts).UpdateOne(r.ctx(ctx),
		bson.M{"discord_id": profile.DiscordID},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return nil, false, wrapErr(err, "failed to upsert account %d", profile.DiscordID)
	}

	account, err := r.GetByDiscordID(ctx, profile.DiscordID)
	if err != nil {
		return nil, false, err
	}

	return account, res.UpsertedCount > 0, nil
}

// GetByDiscordID retrieves an account by its Discord ID
func (r *AccountRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error) {
	var account models.Account
	err := r.collection(colAccounts).FindOne(r.ctx(ctx), bson.M{"discord_id": discordID}).Decode(&account)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get account %d", discordID)
	}
	return &account, nil
}

func (r *AccountRepository) AddCredits(ctx context.Context, discordID int64, amount int64) (*models.Account, error) {
	account, err := r.findOneAndUpdate(ctx,
		bson.M{"discord_id": discordID},
		bson.M{
			"$inc": bson.M{"credits": amount},
			"$set": bson.M{"updated_at": now()},
		},
	)
	if err != nil {
		return nil, wrapErr(err, "failed to add %d credits to account %d", amount, discordID)
	}
	return account, nil
}

// DeductCredits decrements the balance only when it covers the amount.
// The filter and the update are applied atomically to the one document.
func (r *AccountRepository) DeductCredits(ctx context.Context, discordID int64, amount int64) (*models.Account, error) {
	account, err := r.findOneAndUpdate(ctx,
		bson.M{"discord_id": discordID, "credits": bson.M{"$gte": amount}},
		bson.M{
			"$inc": bson.M{"credits": -amount, "total_spent": amount},
			"$set": bson.M{"updated_at": now()},
		},
	)
	if err != nil {
		return nil, wrapErr(err, "failed to deduct %d credits from account %d", amount, discordID)
	}
	return account, nil
}

func (r *AccountRepository) IncrementBroadcastCounters(ctx context.Context, discordID int64, messagesSent int64) (*models.Account, error) {
	account, err := r.findOneAndUpdate(ctx,
		bson.M{"discord_id": discordID},
		bson.M{
			"$inc": bson.M{"total_messages_sent": messagesSent, "total_broadcasts": int64(1)},
			"$set": bson.M{"updated_at": now()},
		},
	)
	if err != nil {
		return nil, wrapErr(err, "failed to update broadcast counters for account %d", discordID)
	}
	return account, nil
}

// List returns accounts newest first
func (r *AccountRepository) List(ctx context.Context, limit, skip int) ([]*models.Account, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "discord_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cursor, err := r.collection(colAccounts).Find(r.ctx(ctx), bson.M{}, opts)
	if err != nil {
		return nil, wrapErr(err, "failed to list accounts")
	}

	var accounts []*models.Account
	if err := cursor.All(r.ctx(ctx), &accounts); err != nil {
		return nil, wrapErr(err, "failed to decode accounts")
	}
	return accounts, nil
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection(colAccounts).CountDocuments(r.ctx(ctx), bson.M{})
	if err != nil {
		return 0, wrapErr(err, "failed to count accounts")
	}
	return count, nil
}

func (r *AccountRepository) SumCredits(ctx context.Context) (int64, error) {
	pipeline := bson.A{
		bson.M{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$credits"}}},
	}

	cursor, err := r.collection(colAccounts).Aggregate(r.ctx(ctx), pipeline)
	if err != nil {
		return 0, wrapErr(err, "failed to sum credits")
	}

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(r.ctx(ctx), &rows); err != nil {
		return 0, wrapErr(err, "failed to decode credit sum")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}
