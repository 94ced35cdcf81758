// Package wired talks to the device over a USB serial port.
package wired

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"quizbuzzer/internal/device"
	"quizbuzzer/internal/device/transport"
)

var ErrNoPort = errors.New("no serial port available")

// PortConfig is the line framing requested when the port is opened.
type PortConfig struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string
	FlowControl string
}

// DefaultPortConfig is 9600-8-N-1 without flow control, as the firmware expects.
var DefaultPortConfig = PortConfig{
	BaudRate:    9600,
	DataBits:    8,
	StopBits:    1,
	Parity:      "none",
	FlowControl: "none",
}

// Mode converts the framing to the serial driver's representation. The
// driver never enables hardware flow control, so FlowControl "none" needs no
// field.
func (c PortConfig) Mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}

	switch c.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits: %d", c.StopBits)
	}

	switch c.Parity {
	case "none", "":
		mode.Parity = serial.NoParity
	case "even":
		mode.Parity = serial.EvenParity
	case "odd":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity: %s", c.Parity)
	}

	if c.FlowControl != "none" && c.FlowControl != "" {
		return nil, fmt.Errorf("unsupported flow control: %s", c.FlowControl)
	}

	return mode, nil
}

// Port is the part of an open serial port the transport uses.
type Port interface {
	io.Writer
	Close() error
}

// OpenFunc opens the named port with the given framing.
type OpenFunc func(name string, config PortConfig) (Port, error)

// SelectFunc picks the port to open.
type SelectFunc func(ctx context.Context) (string, error)

type Option func(*Transport)

func WithOpener(open OpenFunc) Option {
	return func(t *Transport) { t.open = open }
}

func WithSelector(sel SelectFunc) Option {
	return func(t *Transport) { t.selectPort = sel }
}

// Transport is the wired implementation of transport.Transport.
type Transport struct {
	open       OpenFunc
	selectPort SelectFunc

	// mu doubles as the writer lock, held for the whole of a write
	mu   sync.Mutex
	port Port
	name string
}

// New returns a wired transport. portName pins the port; when empty the
// first USB serial port is used.
func New(portName string, opts ...Option) *Transport {
	t := &Transport{
		open:       openSerial,
		selectPort: PortSelector(portName),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) Kind() transport.Kind {
	return transport.KindWired
}

func (t *Transport) Connect(ctx context.Context) error {
	name, err := t.selectPort(ctx)
	if err != nil {
		return fmt.Errorf("failed to select serial port: %w", err)
	}

	port, err := t.open(name, DefaultPortConfig)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	t.mu.Lock()
	prev := t.port
	t.port = port
	t.name = name
	t.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			logrus.WithError(err).Warn("failed to close previous serial port")
		}
	}

	logrus.WithFields(logrus.Fields{
		"port": name,
		"baud": DefaultPortConfig.BaudRate,
	}).Debug("serial port open")
	return nil
}

// Send writes the command followed by a newline.
func (t *Transport) Send(ctx context.Context, cmd device.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return transport.ErrNotConnected
	}

	data := append(cmd.Bytes(), '\n')
	n, err := t.port.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to %s: %w", t.name, err)
	}
	if n != len(data) {
		return fmt.Errorf("failed to write to %s: %w", t.name, io.ErrShortWrite)
	}
	return nil
}

func (t *Transport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Close closes the port. It is a no-op returning ErrNotConnected when idle.
func (t *Transport) Close(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return transport.ErrNotConnected
	}

	err := t.port.Close()
	t.port = nil
	t.name = ""
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

func openSerial(name string, config PortConfig) (Port, error) {
	mode, err := config.Mode()
	if err != nil {
		return nil, err
	}
	return serial.Open(name, mode)
}

// PortSelector returns name when set, otherwise the first USB serial port.
func PortSelector(name string) SelectFunc {
	return func(context.Context) (string, error) {
		if name != "" {
			return name, nil
		}

		ports, err := Ports()
		if err != nil {
			return "", err
		}
		for _, p := range ports {
			if p.IsUSB {
				return p.Name, nil
			}
		}
		return "", ErrNoPort
	}
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name    string
	IsUSB   bool
	VID     string
	PID     string
	Product string
}

// Ports lists the serial ports found on the host.
func Ports() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:    d.Name,
			IsUSB:   d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Product: d.Product,
		})
	}
	return ports, nil
}
