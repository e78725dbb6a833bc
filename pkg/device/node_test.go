package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshnode/meshnode-go/pkg/models/onoff"
	"github.com/meshnode/meshnode-go/pkg/wire"
)

// echoModel answers every Get with a Status.
func echoModel(ctx context.Context, dc Context) error {
	for {
		p, err := Receive(ctx, dc)
		if err != nil {
			return err
		}
		if mp, ok := p.(MessagePayload); ok {
			if _, isGet := mp.Message.(onoff.Get); isGet {
				if err := dc.Publish(ctx, onoff.Status{Present: onoff.On}); err != nil {
					return err
				}
			}
		}
	}
}

func TestNodeRunsModels(t *testing.T) {
	sink := &captureSink{}
	r := NewRouter(DefaultRouterConfig(), sink.send)
	node, err := NewNode(r, nil,
		Element{Name: "a", Location: 0, Model: ModelFunc(echoModel), Parser: onoff.Parser},
		Element{Name: "b", Location: 1, Model: ModelFunc(echoModel), Parser: onoff.Parser},
	)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint16{0, 1}, r.Locations())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- node.Run(ctx) }()

	require.NoError(t, r.Deliver(ctx, wire.MustEncodeRaw(onoff.Get{}, 1, nil)))
	assert.Eventually(t, func() bool { return len(sink.messages()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, uint16(1), sink.messages()[0].Location)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("node did not stop")
	}
}

func TestNodeModelFailureStopsOthers(t *testing.T) {
	boom := errors.New("boom")
	r := NewRouter(DefaultRouterConfig(), nil)
	node, err := NewNode(r, nil,
		Element{Name: "ok", Location: 0, Model: ModelFunc(echoModel), Parser: onoff.Parser},
		Element{Name: "bad", Location: 1, Parser: onoff.Parser, Model: ModelFunc(func(context.Context, Context) error {
			return boom
		})},
	)
	require.NoError(t, err)

	err = node.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestNewNodeDuplicateLocation(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), nil)
	_, err := NewNode(r, nil,
		Element{Location: 0, Model: ModelFunc(echoModel), Parser: onoff.Parser},
		Element{Location: 0, Model: ModelFunc(echoModel), Parser: onoff.Parser},
	)
	assert.ErrorIs(t, err, ErrDuplicateLocation)
}
