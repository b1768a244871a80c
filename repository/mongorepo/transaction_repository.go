package mongorepo

import (
	"context"
	"fmt"

	"broadcaster/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// TransactionRepository implements the TransactionRepository interface.
// Documents are only ever inserted.
type TransactionRepository struct {
	scope
}

// NewTransactionRepository creates a transaction repository outside any unit of work
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{scope{store: store}}
}

func (r *TransactionRepository) Append(ctx context.Context, tx *models.Transaction) (string, error) {
	if !tx.Type.IsValid() {
		return "", fmt.Errorf("invalid transaction type %q", tx.Type)
	}
	if tx.Amount <= 0 {
		return "", fmt.Errorf("transaction amount must be positive, got %d", tx.Amount)
	}

	tx.CreatedAt = now()
	doc := transactionDoc{ID: bson.NewObjectID(), Transaction: *tx}

	if _, err := r.collection(colTransactions).InsertOne(r.ctx(ctx), doc); err != nil {
		return "", wrapErr(err, "failed to append %s transaction for %d", tx.Type, tx.DiscordID)
	}

	tx.ID = doc.ID.Hex()
	return tx.ID, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}

	var doc transactionDoc
	err := r.collection(colTransactions).FindOne(r.ctx(ctx), bson.M{"_id": oid}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get transaction %s", id)
	}
	return doc.model(), nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, discordID int64, limit int) ([]*models.Transaction, error) {
	return r.list(ctx, bson.M{"discord_id": discordID}, limit, 0)
}

func (r *TransactionRepository) ListAll(ctx context.Context, limit, skip int) ([]*models.Transaction, error) {
	return r.list(ctx, bson.M{}, limit, skip)
}

func (r *TransactionRepository) list(ctx context.Context, filter bson.M, limit, skip int) ([]*models.Transaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cursor, err := r.collection(colTransactions).Find(r.ctx(ctx), filter, opts)
	if err != nil {
		return nil, wrapErr(err, "failed to list transactions")
	}

	var docs []transactionDoc
	if err := cursor.All(r.ctx(ctx), &docs); err != nil {
		return nil, wrapErr(err, "failed to decode transactions")
	}

	txs := make([]*models.Transaction, len(docs))
	for i := range docs {
		txs[i] = docs[i].model()
	}
	return txs, nil
}

func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection(colTransactions).CountDocuments(r.ctx(ctx), bson.M{})
	if err != nil {
		return 0, wrapErr(err, "failed to count transactions")
	}
	return count, nil
}

func (r *TransactionRepository) SumsByUser(ctx context.Context, discordID int64) (int64, int64, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"discord_id": discordID}},
		bson.M{"$group": bson.M{"_id": "$type", "total": bson.M{"$sum": "$amount"}}},
	}

	cursor, err := r.collection(colTransactions).Aggregate(r.ctx(ctx), pipeline)
	if err != nil {
		return 0, 0, wrapErr(err, "failed to sum transactions for %d", discordID)
	}

	var rows []struct {
		Type  models.TransactionType `bson:"_id"`
		Total int64                  `bson:"total"`
	}
	if err := cursor.All(r.ctx(ctx), &rows); err != nil {
		return 0, 0, wrapErr(err, "failed to decode transaction sums")
	}

	var credited, spent int64
	for _, row := range rows {
		if row.Type.IsInflow() {
			credited += row.Total
		} else {
			spent += row.Total
		}
	}
	return credited, spent, nil
}
