// Package transport routes device commands over whichever hardware link is
// open.
package transport

import (
	"context"
	"errors"

	"quizbuzzer/internal/device"
)

var ErrNotConnected = errors.New("transport not connected")

// Kind identifies a transport.
type Kind int

const (
	KindNone Kind = iota
	KindRadio
	KindWired
)

func (k Kind) String() string {
	switch k {
	case KindRadio:
		return "radio"
	case KindWired:
		return "wired"
	default:
		return "none"
	}
}

// ParseKind accepts the names used on the command line.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "radio", "bluetooth", "ble":
		return KindRadio, true
	case "wired", "serial", "usb":
		return KindWired, true
	default:
		return KindNone, false
	}
}

// Transport is one physical connection to the device. Each implementation
// owns its handle exclusively.
type Transport interface {
	Kind() Kind
	Connect(ctx context.Context) error
	Send(ctx context.Context, cmd device.Command) error
	IsOpen() bool
	// Close releases the handle, returning ErrNotConnected when nothing is open.
	Close(ctx context.Context) error
}
