package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()

	msg, err := newMessage("profiles.ingested", map[string]any{"job_id": "j1", "count": 2})
	require.NoError(t, err)
	assert.Equal(t, "profiles.ingested", msg.Attributes[EventAttribute])
	assert.JSONEq(t, `{"job_id":"j1","count":2}`, string(msg.Data))

	_, err = newMessage("bad", make(chan int))
	assert.Error(t, err)
}

func TestNewRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil, "p", "t")
	assert.Error(t, err)
}

func TestUnconfiguredPublisher(t *testing.T) {
	t.Parallel()

	var p *Publisher
	_, err := p.Publish(context.Background(), "e", 1)
	assert.Error(t, err)
	p.Stop()
}
