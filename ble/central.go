// Package ble implements hid.Central over tinygo.org/x/bluetooth. The same
// code path serves the nRF52840 SoftDevice build and a Linux/BlueZ
// development host.
package ble

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"adbridge/hid"
)

// ErrBondsUnsupported is returned by ClearBonds where the underlying stack
// keeps bond storage to itself.
var ErrBondsUnsupported = errors.New("ble: bond management is owned by the platform stack")

var hidServiceUUID = bluetooth.ServiceUUIDHumanInterfaceDevice

// Central adapts a bluetooth.Adapter to the hid.Central interface.
type Central struct {
	adapter *bluetooth.Adapter

	mu        sync.Mutex
	connected map[string]bool // live link state by peer address
	handler   func(addr string, connected bool)
}

// NewCentral wraps the default adapter.
func NewCentral() *Central {
	return New(bluetooth.DefaultAdapter)
}

// New wraps the given adapter.
func New(adapter *bluetooth.Adapter) *Central {
	return &Central{
		adapter:   adapter,
		connected: make(map[string]bool),
	}
}

// Enable powers on the radio and hooks link-state tracking.
func (c *Central) Enable() error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}

	c.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		addr := device.Address.String()
		c.mu.Lock()
		c.connected[addr] = connected
		fn := c.handler
		c.mu.Unlock()
		if fn != nil {
			fn(addr, connected)
		}
	})
	return nil
}

// SetConnectHandler registers the host's link-state callback.
func (c *Central) SetConnectHandler(fn func(addr string, connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// Scan streams advertisements until StopScan. Blocks; run on its own
// goroutine.
func (c *Central) Scan(onResult func(hid.Advertisement)) error {
	err := c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		onResult(hid.Advertisement{
			Addr:   result.Address.String(),
			Name:   result.LocalName(),
			HasHID: result.HasServiceUUID(hidServiceUUID),
		})
	})
	if err != nil {
		return fmt.Errorf("ble: scan: %w", err)
	}
	return nil
}

// StopScan ends a running scan.
func (c *Central) StopScan() error {
	return c.adapter.StopScan()
}

// Connect establishes a link to the peer.
func (c *Central) Connect(addr string, timeout time.Duration) (hid.Peer, error) {
	var address bluetooth.Address
	address.Set(addr)

	device, err := c.adapter.Connect(address, bluetooth.ConnectionParams{
		ConnectionTimeout: bluetooth.NewDuration(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("ble: connect to %s: %w", addr, err)
	}

	c.mu.Lock()
	c.connected[addr] = true
	c.mu.Unlock()

	return &peer{central: c, device: device, addr: addr}, nil
}

// ClearBonds: tinygo.org/x/bluetooth gives no portable access to the bond
// store (BlueZ and the SoftDevice each keep their own).
func (c *Central) ClearBonds() error {
	return ErrBondsUnsupported
}

func (c *Central) isConnected(addr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected[addr]
}

// ─── Peer ───────────────────────────────────────────────────────────────────

type peer struct {
	central *Central
	device  bluetooth.Device
	addr    string
}

func (p *peer) Address() string { return p.addr }

func (p *peer) Connected() bool {
	return p.central.isConnected(p.addr)
}

func (p *peer) Disconnect() error {
	return p.device.Disconnect()
}

// Secure relies on the stack: BlueZ pairs through its agent on the first
// secured read, the SoftDevice re-encrypts bonded links on connect. There
// is no portable pairing trigger in tinygo.org/x/bluetooth, so this is the
// seam where one would go.
func (p *peer) Secure() error {
	return nil
}

func (p *peer) DiscoverHID() (hid.Service, error) {
	svcs, err := p.device.DiscoverServices([]bluetooth.UUID{hidServiceUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}
	if len(svcs) == 0 {
		return nil, errors.New("ble: HID service not found")
	}

	chars, err := svcs[0].DiscoverCharacteristics(nil)
	if err != nil {
		return nil, fmt.Errorf("ble: discover characteristics: %w", err)
	}

	svc := &service{}
	for i, chr := range chars {
		var uuid16 hid.CharUUID
		if u := chr.UUID(); u.Is16Bit() {
			uuid16 = hid.CharUUID(u.Get16Bit())
		}
		svc.chars = append(svc.chars, &characteristic{
			char: chr,
			uuid: uuid16,
			// The library hides ATT handles; a discovery ordinal is
			// enough for the per-characteristic diagnostics.
			handle: uint16(i + 1),
		})
	}
	return svc, nil
}

// ─── Service / characteristics ──────────────────────────────────────────────

type service struct {
	chars []*characteristic
}

func (s *service) Characteristic(uuid hid.CharUUID) (hid.Characteristic, bool) {
	for _, c := range s.chars {
		if c.uuid == uuid {
			return c, true
		}
	}
	return nil, false
}

func (s *service) Characteristics() []hid.Characteristic {
	out := make([]hid.Characteristic, len(s.chars))
	for i, c := range s.chars {
		out[i] = c
	}
	return out
}

type characteristic struct {
	char   bluetooth.DeviceCharacteristic
	uuid   hid.CharUUID
	handle uint16
}

func (c *characteristic) UUID() hid.CharUUID { return c.uuid }
func (c *characteristic) Handle() uint16     { return c.handle }

func (c *characteristic) Read() ([]byte, error) {
	buf := make([]byte, 512)
	n, err := c.char.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (c *characteristic) Write(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}

func (c *characteristic) Notify(fn func(data []byte)) error {
	return c.char.EnableNotifications(func(buf []byte) {
		fn(buf)
	})
}
