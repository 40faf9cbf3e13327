// Package hid turns BLE HID notifications into the bridge's input events.
// It owns the per-slot connection state machine, device classification,
// report parsing, and the USB→ADB keycode translation.
//
// The radio is abstracted behind the Central interface so the state machine
// is testable without hardware; package ble provides the real
// implementation.
package hid

import "time"

// CharUUID is a 16-bit GATT UUID.
type CharUUID uint16

// HID service and characteristic UUIDs consumed by the bridge.
const (
	ServiceHID            CharUUID = 0x1812
	CharReport            CharUUID = 0x2A4D
	CharBootKeyboardInput CharUUID = 0x2A22
	CharBootMouseInput    CharUUID = 0x2A33
	CharReportMap         CharUUID = 0x2A4B
	CharProtocolMode      CharUUID = 0x2A4E
)

// Advertisement is one scan result, pre-filtered down to what slot
// management needs.
type Advertisement struct {
	Addr   string
	Name   string
	HasHID bool // advertises the HID service UUID
}

// Central abstracts the BLE Central role.
type Central interface {
	// Enable powers on the radio.
	Enable() error

	// Scan streams advertisements to onResult until StopScan is called.
	// It blocks for the duration of the scan; run it on its own goroutine.
	Scan(onResult func(Advertisement)) error

	// StopScan ends a running Scan.
	StopScan() error

	// Connect establishes a link to the given peer address.
	Connect(addr string, timeout time.Duration) (Peer, error)

	// SetConnectHandler registers a callback fired on link state changes
	// observed by the stack.
	SetConnectHandler(fn func(addr string, connected bool))

	// ClearBonds erases stored bond keys. Not every stack exposes this;
	// an error means the bonds stay.
	ClearBonds() error
}

// Peer is an established (or previously established) connection.
type Peer interface {
	Address() string

	// Connected reports the live link state; the host polls this to catch
	// silent disconnects the stack never surfaced.
	Connected() bool

	Disconnect() error

	// Secure forces encryption using stored or freshly exchanged bond
	// keys. HID devices silently drop notifications on unencrypted links,
	// so this runs before any subscription.
	Secure() error

	// DiscoverHID discovers the HID service and its characteristics.
	DiscoverHID() (Service, error)
}

// Service is a discovered HID service.
type Service interface {
	// Characteristic returns the first characteristic with the given UUID.
	Characteristic(uuid CharUUID) (Characteristic, bool)

	// Characteristics returns all characteristics in discovery order.
	Characteristics() []Characteristic
}

// Characteristic is one discovered GATT characteristic.
type Characteristic interface {
	UUID() CharUUID

	// Handle returns the ATT handle, used only for diagnostics.
	Handle() uint16

	Read() ([]byte, error)
	Write(data []byte) error

	// Notify subscribes to notifications. Returns an error when the
	// characteristic does not support them.
	Notify(fn func(data []byte)) error
}
