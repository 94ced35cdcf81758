// Package radio talks to the device over a Bluetooth Low Energy UART bridge
// (HM-10 style, one service with one writable characteristic).
package radio

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"quizbuzzer/internal/device"
	"quizbuzzer/internal/device/transport"
)

// Target identifies the peripheral and characteristic to write to.
type Target struct {
	Service        string
	Characteristic string
	// Name optionally matches the advertised local name instead of the service.
	Name string
}

// Link is a resolved, writable characteristic on a connected peripheral.
type Link interface {
	Write(p []byte) (int, error)
	Disconnect() error
}

// Dialer discovers and connects to a peripheral. onLost is called when the
// link drops without Disconnect being called.
type Dialer interface {
	Dial(ctx context.Context, target Target, onLost func()) (Link, error)
}

// Transport is the radio implementation of transport.Transport.
type Transport struct {
	dialer Dialer
	target Target

	mu   sync.Mutex
	sess *session
	gen  uint64 // orders racing Connect and Close calls
}

// session is one established link. Loss callbacks are bound to it, so a
// failed or superseded dial never detaches the observer of the live link.
type session struct {
	link Link
}

func New(dialer Dialer, target Target) *Transport {
	return &Transport{
		dialer: dialer,
		target: target,
	}
}

func (t *Transport) Kind() transport.Kind {
	return transport.KindRadio
}

// Connect succeeds only once the characteristic is resolved.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	sess := &session{}
	link, err := t.dialer.Dial(ctx, t.target, func() { t.lost(sess) })
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.describe(), err)
	}
	sess.link = link

	t.mu.Lock()
	if t.gen != gen {
		// a newer Connect or Close won the race
		t.mu.Unlock()
		link.Disconnect()
		return fmt.Errorf("connection to %s superseded", t.describe())
	}
	prev := t.sess
	t.sess = sess
	t.mu.Unlock()

	if prev != nil {
		if err := prev.link.Disconnect(); err != nil {
			logrus.WithError(err).Warn("failed to drop previous radio link")
		}
	}
	return nil
}

// Send writes the raw command bytes, without a terminator.
func (t *Transport) Send(ctx context.Context, cmd device.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	sess := t.sess
	t.mu.Unlock()

	if sess == nil {
		return transport.ErrNotConnected
	}

	if _, err := sess.link.Write(cmd.Bytes()); err != nil {
		return fmt.Errorf("failed to write characteristic: %w", err)
	}
	return nil
}

func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess != nil
}

func (t *Transport) Close(context.Context) error {
	t.mu.Lock()
	sess := t.sess
	t.sess = nil
	t.gen++
	t.mu.Unlock()

	if sess == nil {
		return transport.ErrNotConnected
	}
	if err := sess.link.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	return nil
}

func (t *Transport) lost(sess *session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sess != sess {
		return
	}
	t.sess = nil
	logrus.WithField("transport", transport.KindRadio).Warn("radio link lost")
}

func (t *Transport) describe() string {
	if t.target.Name != "" {
		return t.target.Name
	}
	return t.target.Service
}
