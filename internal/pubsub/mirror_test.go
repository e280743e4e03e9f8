package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/streamhub/internal/keypath"
	"github.com/nfrund/streamhub/internal/pubsub"
	"github.com/nfrund/streamhub/internal/registry"
)

func TestRegistryMirrorsThroughBridge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := pubsub.NewWatermillBridge()
	defer bridge.Close()

	received := make(chan pubsub.Message, 4)
	require.NoError(t, bridge.Subscribe(ctx, "scores.home", func(ctx context.Context, msg pubsub.Message) error {
		received <- msg
		return nil
	}))

	reg := registry.New[string](registry.WithMirror(bridge))
	path := keypath.New("scores", "home")
	require.NoError(t, reg.Initialize(path, 0))
	require.NoError(t, reg.Publish(ctx, path, 3))

	select {
	case msg := <-received:
		var v int
		require.NoError(t, json.Unmarshal(msg.Payload, &v))
		assert.Equal(t, 3, v)
		assert.Equal(t, "scores.home", msg.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mirrored value")
	}
}
