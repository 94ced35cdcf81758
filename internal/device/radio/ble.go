package radio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

var errScanStopped = errors.New("scan stopped before a device was found")

// BLEDialer connects through the host Bluetooth adapter.
type BLEDialer struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	mu       sync.Mutex
	watching *bleLink
}

func NewBLEDialer() *BLEDialer {
	return &BLEDialer{adapter: bluetooth.DefaultAdapter}
}

func (d *BLEDialer) Dial(ctx context.Context, target Target, onLost func()) (Link, error) {
	if err := d.enable(); err != nil {
		return nil, fmt.Errorf("failed to enable bluetooth adapter: %w", err)
	}

	serviceUUID, err := bluetooth.ParseUUID(target.Service)
	if err != nil {
		return nil, fmt.Errorf("invalid service uuid %q: %w", target.Service, err)
	}
	charUUID, err := bluetooth.ParseUUID(target.Characteristic)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic uuid %q: %w", target.Characteristic, err)
	}

	result, err := d.scan(ctx, target, serviceUUID)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"address": result.Address.String(),
		"name":    result.LocalName(),
	})
	log.Debug("found peripheral, connecting")

	dev, err := d.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	services, err := dev.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		dev.Disconnect()
		return nil, fmt.Errorf("service %s not found: %w", target.Service, orNotFound(err))
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		dev.Disconnect()
		return nil, fmt.Errorf("characteristic %s not found: %w", target.Characteristic, orNotFound(err))
	}

	link := &bleLink{
		dialer:  d,
		address: result.Address.String(),
		device:  dev,
		char:    chars[0],
		onLost:  onLost,
	}

	d.mu.Lock()
	d.watching = link
	d.mu.Unlock()

	log.Debug("characteristic ready")
	return link, nil
}

func (d *BLEDialer) enable() error {
	d.enableOnce.Do(func() {
		d.enableErr = d.adapter.Enable()
		if d.enableErr == nil {
			d.adapter.SetConnectHandler(d.connectionChanged)
		}
	})
	return d.enableErr
}

// scan blocks until a matching peripheral advertises or ctx ends.
func (d *BLEDialer) scan(ctx context.Context, target Target, service bluetooth.UUID) (bluetooth.ScanResult, error) {
	found := make(chan bluetooth.ScanResult, 1)
	errc := make(chan error, 1)

	go func() {
		errc <- d.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if !matches(r, target, service) {
				return
			}
			select {
			case found <- r:
				a.StopScan()
			default:
			}
		})
	}()

	select {
	case r := <-found:
		<-errc
		return r, nil
	case err := <-errc:
		if err == nil {
			err = errScanStopped
		}
		return bluetooth.ScanResult{}, fmt.Errorf("scan failed: %w", err)
	case <-ctx.Done():
		d.adapter.StopScan()
		<-errc
		return bluetooth.ScanResult{}, fmt.Errorf("scan aborted: %w", ctx.Err())
	}
}

func matches(r bluetooth.ScanResult, target Target, service bluetooth.UUID) bool {
	if target.Name != "" {
		return r.LocalName() == target.Name
	}
	return r.HasServiceUUID(service)
}

func (d *BLEDialer) connectionChanged(device bluetooth.Device, connected bool) {
	if connected {
		return
	}

	d.mu.Lock()
	var onLost func()
	if l := d.watching; l != nil && device.Address.String() == l.address {
		onLost = l.onLost
		d.watching = nil
	}
	d.mu.Unlock()

	if onLost != nil {
		onLost()
	}
}

// unwatch stops observing l, leaving any newer link watched.
func (d *BLEDialer) unwatch(l *bleLink) {
	d.mu.Lock()
	if d.watching == l {
		d.watching = nil
	}
	d.mu.Unlock()
}

type bleLink struct {
	dialer  *BLEDialer
	address string
	device  interface{ Disconnect() error }
	char    bluetooth.DeviceCharacteristic
	onLost  func()
}

func (l *bleLink) Write(p []byte) (int, error) {
	return l.char.WriteWithoutResponse(p)
}

func (l *bleLink) Disconnect() error {
	l.dialer.unwatch(l)
	return l.device.Disconnect()
}

func orNotFound(err error) error {
	if err != nil {
		return err
	}
	return errors.New("not advertised by peripheral")
}
