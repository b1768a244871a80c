package mongorepo

import (
	"broadcaster/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Accounts and top-up keys are stored with their model tags directly.
// Log rows get an ObjectID whose hex form is the model ID.

type transactionDoc struct {
	ID                 bson.ObjectID `bson:"_id"`
	models.Transaction `bson:",inline"`
}

func (d *transactionDoc) model() *models.Transaction {
	tx := d.Transaction
	tx.ID = d.ID.Hex()
	return &tx
}

type broadcastDoc struct {
	ID               bson.ObjectID `bson:"_id"`
	models.Broadcast `bson:",inline"`
}

func (d *broadcastDoc) model() *models.Broadcast {
	b := d.Broadcast
	b.ID = d.ID.Hex()
	return &b
}

type paymentDoc struct {
	ID             bson.ObjectID `bson:"_id"`
	models.Payment `bson:",inline"`
}

func (d *paymentDoc) model() *models.Payment {
	p := d.Payment
	p.ID = d.ID.Hex()
	return &p
}

// objectID reports false for ids that are not ObjectID hex strings
func objectID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, false
	}
	return oid, true
}
