package infrastructure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameSubjects(t *testing.T) {
	assert.True(t, sameSubjects([]string{"a", "b"}, []string{"b", "a"}))
	assert.False(t, sameSubjects([]string{"a"}, []string{"a", "b"}))
	assert.False(t, sameSubjects([]string{"a", "c"}, []string{"a", "b"}))
}

func TestNATSClient_NotConnected(t *testing.T) {
	client := NewNATSClient("nats://127.0.0.1:4222")

	assert.False(t, client.IsConnected())
	assert.ErrorIs(t, client.Publish(context.Background(), "broadcaster.x", []byte("{}"), ""), errNotConnected)
	assert.ErrorIs(t, client.ensureStream(StreamName, []string{"broadcaster.x"}), errNotConnected)
	assert.NoError(t, client.Close())
}
