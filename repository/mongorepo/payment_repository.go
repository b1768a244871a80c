package mongorepo

import (
	"context"
	"time"

	"broadcaster/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PaymentRepository implements the PaymentRepository interface
type PaymentRepository struct {
	scope
}

// NewPaymentRepository creates a payment repository outside any unit of work
func NewPaymentRepository(store *Store) *PaymentRepository {
	return &PaymentRepository{scope{store: store}}
}

func activeFilter(discordID int64, amount int64, at time.Time) bson.M {
	return bson.M{
		"discord_id": discordID,
		"amount":     amount,
		"status":     models.PaymentStatusPending,
		"expires_at": bson.M{"$gt": at},
	}
}

var oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now()
	}

	doc := paymentDoc{ID: bson.NewObjectID(), Payment: *payment}
	if _, err := r.collection(colPayments).InsertOne(r.ctx(ctx), doc); err != nil {
		return wrapErr(err, "failed to create payment for %d", payment.DiscordID)
	}

	payment.ID = doc.ID.Hex()
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}

	var doc paymentDoc
	err := r.collection(colPayments).FindOne(r.ctx(ctx), bson.M{"_id": oid}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get payment %s", id)
	}
	return doc.model(), nil
}

func (r *PaymentRepository) FindActive(ctx context.Context, discordID int64, amount int64, at time.Time) (*models.Payment, error) {
	var doc paymentDoc
	err := r.collection(colPayments).FindOne(r.ctx(ctx),
		activeFilter(discordID, amount, at),
		options.FindOne().SetSort(oldestFirst),
	).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to find active payment for %d", discordID)
	}
	return doc.model(), nil
}

func (r *PaymentRepository) MarkConfirmed(ctx context.Context, id string, at time.Time) (bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return false, nil
	}

	res, err := r.collection(colPayments).UpdateOne(r.ctx(ctx),
		bson.M{"_id": oid, "status": models.PaymentStatusPending},
		bson.M{"$set": bson.M{"status": models.PaymentStatusConfirmed, "confirmed_at": at}},
	)
	if err != nil {
		return false, wrapErr(err, "failed to confirm payment %s", id)
	}
	return res.ModifiedCount == 1, nil
}

// Claim confirms the oldest active match with a single findAndModify, so two
// watchers racing on the same expectation cannot both win it.
func (r *PaymentRepository) Claim(ctx context.Context, discordID int64, amount int64, at time.Time) (*models.Payment, error) {
	opts := options.FindOneAndUpdate().
		SetSort(oldestFirst).
		SetReturnDocument(options.After)

	var doc paymentDoc
	err := r.collection(colPayments).FindOneAndUpdate(r.ctx(ctx),
		activeFilter(discordID, amount, at),
		bson.M{"$set": bson.M{"status": models.PaymentStatusConfirmed, "confirmed_at": at}},
		opts,
	).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to claim payment for %d", discordID)
	}
	return doc.model(), nil
}
