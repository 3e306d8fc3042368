package xmpp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"gosrc.io/xmpp"

	"github.com/sampurna/itsupport/internal/config"
)

// ErrDisconnected is returned by Ready while the component has no stream.
var ErrDisconnected = errors.New("xmpp component not connected")

// streamRunner is the part of xmpp.StreamManager the component drives.
type streamRunner interface {
	Run() error
	Stop()
}

// Component owns the server connection and the stanza handler.
type Component struct {
	domain    string
	sm        streamRunner
	handler   *Handler
	connected atomic.Bool
	done      chan struct{}
	stopOnce  sync.Once
}

func NewComponent(cfg config.XMPPConfig, handler *Handler) (*Component, error) {
	c := &Component{domain: cfg.ComponentName, handler: handler, done: make(chan struct{})}

	router := xmpp.NewRouter()
	router.HandleFunc("message", handler.HandleMessage)
	router.HandleFunc("presence", handler.HandlePresence)

	opts := xmpp.ComponentOptions{
		TransportConfiguration: xmpp.TransportConfiguration{
			Address: cfg.ComponentAddr(),
			Domain:  cfg.ComponentName,
		},
		Domain:   cfg.ComponentName,
		Secret:   cfg.ComponentSecret,
		Name:     "IT Support",
		Category: "gateway",
		Type:     "service",
	}

	comp, err := xmpp.NewComponent(opts, router, func(err error) {
		c.connected.Store(false)
		slog.Error("XMPP component error", "error", err, "domain", cfg.ComponentName)
	})
	if err != nil {
		return nil, err
	}

	c.sm = xmpp.NewStreamManager(comp, func(xmpp.Sender) {
		c.connected.Store(true)
		slog.Info("XMPP component connected", "domain", cfg.ComponentName, "addr", cfg.ComponentAddr())
	})
	return c, nil
}

// Start blocks until ctx is cancelled, Stop is called or the stream manager
// gives up.
func (c *Component) Start(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.sm.Run()
	}()

	select {
	case <-ctx.Done():
		c.sm.Stop()
		return nil
	case <-c.done:
		return nil
	case err := <-errCh:
		c.connected.Store(false)
		return err
	}
}

// Ready reports whether the component currently holds a stream.
func (c *Component) Ready(context.Context) error {
	if !c.connected.Load() {
		return ErrDisconnected
	}
	return nil
}

// Stop disconnects and waits for answers already in progress. Their replies
// are dropped if the stream is gone. It is safe to call before Start and
// more than once.
func (c *Component) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.sm.Stop()
		c.connected.Store(false)
		c.handler.Wait()
		slog.Info("XMPP component stopped", "domain", c.domain)
	})
}
