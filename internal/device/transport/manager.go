package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"quizbuzzer/internal/device"
)

// Manager exposes one command surface over the radio and wired transports.
// Every fault is logged and reported as false; nothing above the manager
// sees a transport error.
type Manager struct {
	radio Transport
	wired Transport

	mu     sync.RWMutex
	active Kind
}

func NewManager(radio, wired Transport) *Manager {
	return &Manager{
		radio: radio,
		wired: wired,
	}
}

func (m *Manager) ConnectRadio(ctx context.Context) bool {
	return m.connect(ctx, m.radio)
}

func (m *Manager) ConnectWired(ctx context.Context) bool {
	return m.connect(ctx, m.wired)
}

// Connect dispatches to ConnectRadio or ConnectWired.
func (m *Manager) Connect(ctx context.Context, kind Kind) bool {
	switch kind {
	case KindRadio:
		return m.ConnectRadio(ctx)
	case KindWired:
		return m.ConnectWired(ctx)
	default:
		logrus.WithField("transport", kind).Error("unknown transport")
		return false
	}
}

// SendCommand writes cmd to the wired transport when it is open, otherwise to
// the radio transport. It returns false without any I/O when neither is open.
func (m *Manager) SendCommand(ctx context.Context, cmd device.Command) bool {
	log := logrus.WithField("command", cmd.String())

	if err := cmd.Validate(); err != nil {
		log.WithError(err).Error("refusing to send command")
		return false
	}

	t := m.route()
	if t == nil {
		log.Error("no device connected")
		return false
	}

	log = log.WithField("transport", t.Kind())
	if err := send(ctx, t, cmd); err != nil {
		log.WithError(err).Error("failed to send command")
		return false
	}

	log.Debug("command sent")
	return true
}

// ConnectionType is the kind of the most recent successful connect.
func (m *Manager) ConnectionType() Kind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Connected reports whether any transport is open.
func (m *Manager) Connected() bool {
	return m.route() != nil
}

func (m *Manager) DisconnectRadio(ctx context.Context) bool {
	return m.disconnect(ctx, m.radio)
}

func (m *Manager) DisconnectWired(ctx context.Context) bool {
	return m.disconnect(ctx, m.wired)
}

// Close releases every open transport.
func (m *Manager) Close(ctx context.Context) {
	for _, t := range []Transport{m.wired, m.radio} {
		if t != nil && t.IsOpen() {
			m.disconnect(ctx, t)
		}
	}
}

func (m *Manager) route() Transport {
	if m.wired != nil && m.wired.IsOpen() {
		return m.wired
	}
	if m.radio != nil && m.radio.IsOpen() {
		return m.radio
	}
	return nil
}

func (m *Manager) connect(ctx context.Context, t Transport) (ok bool) {
	if t == nil {
		logrus.Error("transport not configured")
		return false
	}

	log := logrus.WithField("transport", t.Kind())

	// driver stacks may panic on platform faults
	defer func() {
		if r := recover(); r != nil {
			log.WithError(fmt.Errorf("panic: %v", r)).Error("connection failed")
			ok = false
		}
	}()

	if err := t.Connect(ctx); err != nil {
		log.WithError(err).Error("connection failed")
		return false
	}

	m.mu.Lock()
	m.active = t.Kind()
	m.mu.Unlock()

	log.Info("connected")
	return true
}

func (m *Manager) disconnect(ctx context.Context, t Transport) bool {
	if t == nil {
		return false
	}

	log := logrus.WithField("transport", t.Kind())
	if err := t.Close(ctx); err != nil {
		log.WithError(err).Warn("disconnect failed")
		return false
	}

	log.Info("disconnected")
	return true
}

// send converts a driver panic in the write path into an error.
func send(ctx context.Context, t Transport, cmd device.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Send(ctx, cmd)
}
