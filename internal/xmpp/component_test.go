package xmpp

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingStream runs until stopped.
type blockingStream struct {
	runs    atomic.Int32
	stopped chan struct{}
	once    atomic.Bool
}

func newBlockingStream() *blockingStream {
	return &blockingStream{stopped: make(chan struct{})}
}

func (b *blockingStream) Run() error {
	b.runs.Add(1)
	<-b.stopped
	return nil
}

func (b *blockingStream) Stop() {
	if b.once.CompareAndSwap(false, true) {
		close(b.stopped)
	}
}

func testComponent(sm streamRunner) *Component {
	return &Component{domain: "itsupport.localhost", sm: sm, handler: NewHandler(nil, nil, nil), done: make(chan struct{})}
}

func TestComponent_StopBeforeStart(t *testing.T) {
	sm := newBlockingStream()
	c := testComponent(sm)

	c.Stop()
	require.NoError(t, c.Start(context.Background()))
	assert.Zero(t, sm.runs.Load())
	assert.ErrorIs(t, c.Ready(context.Background()), ErrDisconnected)
}

func TestComponent_StopWhileRunning(t *testing.T) {
	sm := newBlockingStream()
	c := testComponent(sm)
	c.connected.Store(true)
	require.NoError(t, c.Ready(context.Background()))

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(context.Background()) }()

	c.Stop()
	c.Stop()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	assert.ErrorIs(t, c.Ready(context.Background()), ErrDisconnected)
}

func TestComponent_ContextCancelStopsStream(t *testing.T) {
	sm := newBlockingStream()
	c := testComponent(sm)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.Eventually(t, func() bool { return sm.once.Load() }, time.Second, 10*time.Millisecond)
}
