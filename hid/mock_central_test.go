package hid

import (
	"errors"
	"sync"
	"time"
)

// Mock BLE central for exercising the host state machine without a radio.

type mockChar struct {
	uuid       CharUUID
	handle     uint16
	value      []byte
	readErr    error
	writable   bool
	notifiable bool

	mu       sync.Mutex
	writes   [][]byte
	notifyFn func([]byte)
}

func (c *mockChar) UUID() CharUUID { return c.uuid }
func (c *mockChar) Handle() uint16 { return c.handle }

func (c *mockChar) Read() ([]byte, error) {
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.value, nil
}

func (c *mockChar) Write(data []byte) error {
	if !c.writable {
		return errors.New("mock: not writable")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *mockChar) Notify(fn func([]byte)) error {
	if !c.notifiable {
		return errors.New("mock: notifications unsupported")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyFn = fn
	return nil
}

// notify delivers a fake notification to the subscriber.
func (c *mockChar) notify(data []byte) bool {
	c.mu.Lock()
	fn := c.notifyFn
	c.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(data)
	return true
}

type mockService struct {
	chars []*mockChar
}

func (s *mockService) Characteristic(uuid CharUUID) (Characteristic, bool) {
	for _, c := range s.chars {
		if c.uuid == uuid {
			return c, true
		}
	}
	return nil, false
}

func (s *mockService) Characteristics() []Characteristic {
	out := make([]Characteristic, len(s.chars))
	for i, c := range s.chars {
		out[i] = c
	}
	return out
}

type mockPeer struct {
	addr string
	svc  *mockService

	mu        sync.Mutex
	connected bool
	secured   bool

	discoverErr error
	secureErr   error
}

func (p *mockPeer) Address() string { return p.addr }

func (p *mockPeer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *mockPeer) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *mockPeer) dropLink() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
}

func (p *mockPeer) Secure() error {
	if p.secureErr != nil {
		return p.secureErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secured = true
	return nil
}

func (p *mockPeer) DiscoverHID() (Service, error) {
	if p.discoverErr != nil {
		return nil, p.discoverErr
	}
	return p.svc, nil
}

type mockCentral struct {
	mu          sync.Mutex
	enabled     bool
	peers       map[string]*mockPeer
	connectErr  map[string]error
	connects    []string
	scanFn      func(Advertisement)
	scanStop    chan struct{}
	connHandler func(addr string, connected bool)
	bondsClears int
}

func newMockCentral() *mockCentral {
	return &mockCentral{
		peers:      make(map[string]*mockPeer),
		connectErr: make(map[string]error),
	}
}

func (c *mockCentral) Enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
	return nil
}

func (c *mockCentral) Scan(onResult func(Advertisement)) error {
	c.mu.Lock()
	c.scanFn = onResult
	stop := make(chan struct{})
	c.scanStop = stop
	c.mu.Unlock()
	<-stop
	c.mu.Lock()
	c.scanFn = nil
	c.mu.Unlock()
	return nil
}

func (c *mockCentral) StopScan() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scanStop != nil {
		close(c.scanStop)
		c.scanStop = nil
	}
	return nil
}

// advertise injects a scan result, as the radio would.
func (c *mockCentral) advertise(adv Advertisement) bool {
	c.mu.Lock()
	fn := c.scanFn
	c.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(adv)
	return true
}

func (c *mockCentral) scanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanFn != nil
}

func (c *mockCentral) Connect(addr string, timeout time.Duration) (Peer, error) {
	c.mu.Lock()
	c.connects = append(c.connects, addr)
	err := c.connectErr[addr]
	peer := c.peers[addr]
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if peer == nil {
		return nil, errors.New("mock: no such peer")
	}
	peer.mu.Lock()
	peer.connected = true
	peer.mu.Unlock()
	return peer, nil
}

func (c *mockCentral) connectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.connects)
}

func (c *mockCentral) SetConnectHandler(fn func(addr string, connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connHandler = fn
}

func (c *mockCentral) reportDisconnect(addr string) {
	c.mu.Lock()
	fn := c.connHandler
	c.mu.Unlock()
	if fn != nil {
		fn(addr, false)
	}
}

func (c *mockCentral) ClearBonds() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bondsClears++
	return nil
}

// ─── Canned peripherals ─────────────────────────────────────────────────────

func bootKeyboardPeer(addr string) *mockPeer {
	return &mockPeer{
		addr: addr,
		svc: &mockService{chars: []*mockChar{
			{uuid: CharProtocolMode, handle: 10, writable: true},
			{uuid: CharBootKeyboardInput, handle: 11, notifiable: true},
			{uuid: CharReport, handle: 12, notifiable: true},
			{uuid: CharReportMap, handle: 13, value: []byte{0x05, 0x01, 0x09, 0x06}},
		}},
	}
}

func reportMousePeer(addr string) *mockPeer {
	return &mockPeer{
		addr: addr,
		svc: &mockService{chars: []*mockChar{
			{uuid: CharBootMouseInput, handle: 20, notifiable: true},
			{uuid: CharReport, handle: 21, notifiable: true},
			{uuid: CharReportMap, handle: 22, value: []byte{0x05, 0x01, 0x09, 0x02}},
		}},
	}
}
