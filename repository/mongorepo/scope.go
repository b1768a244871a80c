package mongorepo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// scope binds repository calls to the unit of work's session, if any
type scope struct {
	store   *Store
	session *mongo.Session
}

func (s scope) ctx(ctx context.Context) context.Context {
	if s.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, s.session)
}

func (s scope) collection(name string) *mongo.Collection {
	return s.store.collection(name)
}
