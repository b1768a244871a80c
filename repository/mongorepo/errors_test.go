package mongorepo

import (
	"errors"
	"testing"

	"broadcaster/service"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestWrapErr_TagsTransientTransactionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		err          error
		wantConflict bool
	}{
		{
			name:         "write conflict",
			err:          mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}},
			wantConflict: true,
		},
		{
			name:         "unknown commit result",
			err:          mongo.CommandError{Code: 50, Name: "MaxTimeMSExpired", Labels: []string{"UnknownTransactionCommitResult"}},
			wantConflict: false,
		},
		{
			name:         "duplicate key",
			err:          mongo.CommandError{Code: 11000, Name: "DuplicateKey"},
			wantConflict: false,
		},
		{
			name:         "plain error",
			err:          errors.New("boom"),
			wantConflict: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := wrapErr(tt.err, "failed to deduct credits for %d", 42)

			assert.Equal(t, tt.wantConflict, errors.Is(wrapped, service.ErrWriteConflict))
			assert.Contains(t, wrapped.Error(), "failed to deduct credits for 42")
		})
	}
}
