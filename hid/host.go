package hid

import (
	"strconv"
	"sync"
	"time"

	"adbridge/diag"
	"adbridge/events"
)

// SlotState is the per-slot connection lifecycle state.
type SlotState uint8

const (
	StateDisconnected SlotState = iota
	StateScanning
	StateConnecting
	StateDiscovering
	StateConnected
	StateReconnecting
)

func (s SlotState) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateDiscovering:
		return "discovering"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Config bounds the host's timing behavior.
type Config struct {
	ConnectTimeout   time.Duration // per connect/reconnect attempt
	ReconnectInitial time.Duration // first backoff delay
	ReconnectMax     time.Duration // backoff cap
	ReconnectCap     int           // attempts before giving the slot up
	RescanDelay      time.Duration // pause before restarting a scan
	TickInterval     time.Duration // idle loop period
}

// DefaultConfig mirrors the firmware's tuning.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:   5 * time.Second,
		ReconnectInitial: time.Second,
		ReconnectMax:     30 * time.Second,
		ReconnectCap:     10,
		RescanDelay:      2 * time.Second,
		TickInterval:     100 * time.Millisecond,
	}
}

// Slot tracks one of the two peer positions (keyboard, mouse).
type Slot struct {
	label string
	kind  DeviceKind // role this slot fills when occupied

	state SlotState
	peer  Peer
	name  string

	// Reconnection identity: bonded peer address plus the device type
	// learned on first connect.
	bondedAddr string

	backoff     time.Duration
	nextAttempt time.Time
	attempts    int

	// Parser state, owned by the notification callback
	kb keyboardState
}

// SlotStatus is a read-only snapshot for displays and diagnostics.
type SlotStatus struct {
	State      SlotState
	Name       string
	BondedAddr string
	Attempts   int
}

// Host drives the BLE Central: it fills the keyboard slot and the mouse
// slot, keeps them subscribed, and feeds parsed events into the queues.
// It is the soft-real-time half of the bridge and never touches ADB
// device state.
type Host struct {
	central Central
	cfg     Config

	keyQ   *events.Queue[events.KeyEvent]
	mouseQ *events.Queue[events.MouseEvent]

	mu       sync.Mutex
	keyboard Slot
	mouse    Slot
	scanning bool

	// Pending connection: the scan callback only records the target; the
	// loop does the connecting so the radio is free.
	pendingAddr    string
	pendingName    string
	pendingConnect bool

	rescanAt time.Time

	// now is replaceable for tests.
	now func() time.Time
}

// NewHost creates a host over the given central.
func NewHost(central Central, keyQ *events.Queue[events.KeyEvent], mouseQ *events.Queue[events.MouseEvent], cfg Config) *Host {
	h := &Host{
		central: central,
		cfg:     cfg,
		keyQ:    keyQ,
		mouseQ:  mouseQ,
		now:     time.Now,
	}
	h.keyboard = Slot{label: "KBD", kind: KindKeyboard}
	h.mouse = Slot{label: "MOU", kind: KindMouse}
	return h
}

// Start enables the radio and begins scanning. Call once before Run.
func (h *Host) Start() error {
	if err := h.central.Enable(); err != nil {
		return err
	}
	h.central.SetConnectHandler(h.onConnectChanged)
	h.startScan()
	return nil
}

// Run ticks the state machine until stop is closed.
func (h *Host) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.Tick()
		}
	}
}

// KeyboardStatus returns a snapshot of the keyboard slot.
func (h *Host) KeyboardStatus() SlotStatus { return h.status(&h.keyboard) }

// MouseStatus returns a snapshot of the mouse slot.
func (h *Host) MouseStatus() SlotStatus { return h.status(&h.mouse) }

func (h *Host) status(s *Slot) SlotStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return SlotStatus{
		State:      s.state,
		Name:       s.name,
		BondedAddr: s.bondedAddr,
		Attempts:   s.attempts,
	}
}

// ClearBonds forwards to the central.
func (h *Host) ClearBonds() error { return h.central.ClearBonds() }

// ─── Scanning ───────────────────────────────────────────────────────────────

func (h *Host) startScan() {
	h.mu.Lock()
	if h.scanning {
		h.mu.Unlock()
		return
	}
	h.scanning = true
	for _, s := range []*Slot{&h.keyboard, &h.mouse} {
		if s.state == StateDisconnected {
			s.state = StateScanning
		}
	}
	h.mu.Unlock()

	diag.Println("[BLE] Scanning for HID devices...")
	go func() {
		_ = h.central.Scan(h.onScanResult)
		h.mu.Lock()
		h.scanning = false
		for _, s := range []*Slot{&h.keyboard, &h.mouse} {
			if s.state == StateScanning {
				s.state = StateDisconnected
			}
		}
		h.mu.Unlock()
	}()
}

func (h *Host) stopScanLocked() {
	if h.scanning {
		_ = h.central.StopScan()
	}
}

// onScanResult runs on the scan goroutine. It never connects — it records
// the target and stops the scan; Tick picks it up.
func (h *Host) onScanResult(adv Advertisement) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Scan directive: a bonded peer showing up while its slot is in
	// backoff gets an immediate reconnect attempt.
	for _, s := range []*Slot{&h.keyboard, &h.mouse} {
		if s.state == StateReconnecting && s.bondedAddr == adv.Addr {
			diag.Println("[BLE] [" + s.label + "] Bonded device seen in scan, reconnecting now")
			s.nextAttempt = h.now()
			h.stopScanLocked()
			return
		}
	}

	if !adv.HasHID {
		return
	}
	if h.pendingConnect {
		return
	}

	needKbd := h.keyboard.state == StateDisconnected || h.keyboard.state == StateScanning
	needMouse := h.mouse.state == StateDisconnected || h.mouse.state == StateScanning
	if !needKbd && !needMouse {
		h.stopScanLocked()
		return
	}

	h.pendingAddr = adv.Addr
	h.pendingName = adv.Name
	h.pendingConnect = true
	diag.Println("[BLE] Found HID device: " + adv.Name + " (" + adv.Addr + ")")

	// Stop scanning to free the radio for the connection attempt
	h.stopScanLocked()
}

// ─── Link state changes ─────────────────────────────────────────────────────

// onConnectChanged runs on the stack's event goroutine.
func (h *Host) onConnectChanged(addr string, connected bool) {
	if connected {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range []*Slot{&h.keyboard, &h.mouse} {
		if s.state == StateConnected && s.peer != nil && s.peer.Address() == addr {
			diag.Println("[BLE] [" + s.label + "] Disconnected from " + s.name)
			h.enterReconnectingLocked(s)
		}
	}
}

// enterReconnectingLocked moves a connected slot into backoff, preserving
// its identity and zeroing in-flight input state so no key or button stays
// stuck across the reconnect.
func (h *Host) enterReconnectingLocked(s *Slot) {
	s.kb.zero()
	if s.peer != nil {
		s.bondedAddr = s.peer.Address()
	}
	s.backoff = h.cfg.ReconnectInitial
	s.nextAttempt = h.now().Add(s.backoff)
	s.attempts = 0
	s.state = StateReconnecting
}

// ─── Main tick ──────────────────────────────────────────────────────────────

// Tick runs one pass of the state machine. Run calls it every
// TickInterval; tests call it directly.
func (h *Host) Tick() {
	// Deferred connection from the scan callback
	h.mu.Lock()
	pending := h.pendingConnect
	addr, name := h.pendingAddr, h.pendingName
	h.pendingConnect = false
	h.mu.Unlock()

	if pending {
		h.tryConnect(addr, name)

		h.mu.Lock()
		needMore := h.slotFreeLocked(&h.keyboard) || h.slotFreeLocked(&h.mouse)
		h.mu.Unlock()
		if needMore {
			// Pause before re-scan so the fresh link settles
			h.rescanAt = h.now().Add(h.cfg.RescanDelay)
		}
	}

	// Silent-disconnect poll: the stack does not always deliver a
	// disconnect event
	h.mu.Lock()
	for _, s := range []*Slot{&h.keyboard, &h.mouse} {
		if s.state == StateConnected && s.peer != nil && !s.peer.Connected() {
			diag.Println("[BLE] [" + s.label + "] Silent disconnect detected")
			h.enterReconnectingLocked(s)
		}
	}
	h.mu.Unlock()

	h.handleReconnection(&h.keyboard)
	h.handleReconnection(&h.mouse)

	// Restart scanning for any empty slot
	h.mu.Lock()
	wantScan := !h.scanning && !h.pendingConnect &&
		(h.slotFreeLocked(&h.keyboard) || h.slotFreeLocked(&h.mouse)) &&
		!h.now().Before(h.rescanAt)
	h.mu.Unlock()
	if wantScan {
		h.startScan()
	}
}

func (h *Host) slotFreeLocked(s *Slot) bool {
	return s.state == StateDisconnected || s.state == StateScanning
}

// ─── Connecting ─────────────────────────────────────────────────────────────

func (h *Host) tryConnect(addr, name string) {
	h.mu.Lock()
	needKbd := h.slotFreeLocked(&h.keyboard)
	needMouse := h.slotFreeLocked(&h.mouse)
	h.mu.Unlock()
	if !needKbd && !needMouse {
		return
	}

	diag.Println("[BLE] Connecting to " + name + "...")
	peer, err := h.central.Connect(addr, h.cfg.ConnectTimeout)
	if err != nil {
		diag.Println("[BLE] Connection failed to " + name)
		return
	}

	svc, err := peer.DiscoverHID()
	if err != nil {
		diag.Println("[BLE] HID discovery failed: " + err.Error())
		_ = peer.Disconnect()
		return
	}

	kind := Classify(svc)

	var target *Slot
	switch {
	case kind == KindKeyboard && needKbd:
		target = &h.keyboard
	case kind == KindMouse && needMouse:
		target = &h.mouse
	default:
		// The detected kind's slot is occupied: skip the peer rather
		// than misassign it to the free slot.
		diag.Println("[BLE] Already have a " + kind.String() + ", skipping")
		_ = peer.Disconnect()
		return
	}

	h.mu.Lock()
	target.state = StateDiscovering
	target.name = name
	target.peer = peer
	h.mu.Unlock()

	// Encrypt before subscribing: HID devices silently drop
	// notifications on open links
	if err := peer.Secure(); err != nil {
		diag.Println("[BLE] WARNING: failed to secure connection: " + err.Error())
	}

	var subscribed bool
	if kind == KindKeyboard {
		subscribed = h.subscribeKeyboard(svc, target)
	} else {
		subscribed = h.subscribeMouse(svc, target)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !subscribed || !peer.Connected() {
		diag.Println("[BLE] No subscribable HID reports on " + name)
		_ = peer.Disconnect()
		target.state = StateDisconnected
		target.peer = nil
		target.name = ""
		return
	}

	target.state = StateConnected
	target.bondedAddr = peer.Address()
	target.attempts = 0
	diag.Println("[BLE] " + kind.String() + " ready: " + name)
}

// subscribeKeyboard implements the keyboard subscription policy: put the
// device in Boot Protocol and take Boot Keyboard Input when Protocol Mode
// is writable; otherwise stay in Report Protocol and take HID Report
// characteristics. Never both — duplicate reports waste host-stack time.
func (h *Host) subscribeKeyboard(svc Service, s *Slot) bool {
	bootMode := false
	if pm, ok := svc.Characteristic(CharProtocolMode); ok {
		if err := pm.Write([]byte{0}); err == nil { // 0 = Boot Protocol
			bootMode = true
			diag.Println("[BLE] Set Boot Protocol mode")
		} else {
			diag.Println("[BLE] Protocol Mode read-only, staying in Report Protocol")
		}
	}

	if bootMode {
		if boot, ok := svc.Characteristic(CharBootKeyboardInput); ok {
			if err := boot.Notify(h.keyboardReportHandler(s, boot.Handle())); err == nil {
				diag.Println("[BLE] Subscribed keyboard to Boot Keyboard Input")
				return true
			}
		}
	}

	// Report Protocol fallback: subscribe the HID Report characteristics;
	// consumer/vendor reports are filtered by the length check in the
	// callback.
	subscribed := false
	for _, chr := range svc.Characteristics() {
		if chr.UUID() != CharReport {
			continue
		}
		if err := chr.Notify(h.keyboardReportHandler(s, chr.Handle())); err == nil {
			subscribed = true
			diag.Println("[BLE] Subscribed keyboard to HID Report")
		}
	}
	return subscribed
}

// subscribeMouse implements the mouse subscription policy: the first
// notifiable HID Report (Report Protocol carries full 16-bit deltas), with
// Boot Mouse Input as the fallback.
func (h *Host) subscribeMouse(svc Service, s *Slot) bool {
	for _, chr := range svc.Characteristics() {
		if chr.UUID() != CharReport {
			continue
		}
		if err := chr.Notify(h.mouseReportHandler(chr.Handle())); err == nil {
			diag.Println("[BLE] Subscribed mouse to HID Report")
			return true // one HID Report is enough
		}
	}

	if boot, ok := svc.Characteristic(CharBootMouseInput); ok {
		if err := boot.Notify(h.mouseReportHandler(boot.Handle())); err == nil {
			diag.Println("[BLE] Subscribed mouse to Boot Mouse Input")
			return true
		}
	}
	return false
}

// ─── Notification handlers ──────────────────────────────────────────────────

func (h *Host) keyboardReportHandler(s *Slot, handle uint16) func([]byte) {
	return func(data []byte) {
		diag.Bridge.KbdCallbacks.Add(1)
		diag.Bridge.KbdLastMS.Store(uint32(h.now().UnixMilli()))
		diag.TrackKbdHandle(handle)

		ok := s.kb.parse(data, func(evt events.KeyEvent) {
			if !h.keyQ.Push(evt) {
				diag.Bridge.KbdQueueDrops.Add(1)
			}
		})
		if ok {
			diag.Bridge.KbdUsed.Add(1)
		} else {
			diag.Bridge.KbdDropped.Add(1)
		}
	}
}

func (h *Host) mouseReportHandler(handle uint16) func([]byte) {
	return func(data []byte) {
		diag.Bridge.MouseCallbacks.Add(1)
		diag.Bridge.MouseLastMS.Store(uint32(h.now().UnixMilli()))
		diag.TrackMouseHandle(handle)

		evt, ok := parseMouseReport(data)
		if !ok {
			return
		}
		if !h.mouseQ.Push(evt) {
			diag.Bridge.MouseQueueDrops.Add(1)
		}
	}
}

// ─── Reconnection ───────────────────────────────────────────────────────────

func (h *Host) handleReconnection(s *Slot) {
	h.mu.Lock()
	if s.state != StateReconnecting || h.now().Before(s.nextAttempt) {
		h.mu.Unlock()
		return
	}
	addr := s.bondedAddr
	attempt := s.attempts + 1
	h.mu.Unlock()

	diag.Println("[BLE] [" + s.label + "] Reconnect attempt " + strconv.Itoa(attempt))

	if h.tryReconnect(s, addr) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	s.attempts++
	if s.attempts >= h.cfg.ReconnectCap {
		diag.Println("[BLE] [" + s.label + "] Giving up reconnection")
		// Free the slot: a fresh scan may find a different device
		if s.peer != nil {
			_ = s.peer.Disconnect()
		}
		s.peer = nil
		s.name = ""
		s.bondedAddr = ""
		s.state = StateDisconnected
		return
	}

	s.backoff *= 2
	if s.backoff > h.cfg.ReconnectMax {
		s.backoff = h.cfg.ReconnectMax
	}
	s.nextAttempt = h.now().Add(s.backoff)
}

// tryReconnect re-establishes a dropped link using the stored bond:
// connect, re-encrypt, rediscover, resubscribe with the same policy as
// the initial connect. The device type is already known.
func (h *Host) tryReconnect(s *Slot, addr string) bool {
	peer, err := h.central.Connect(addr, h.cfg.ConnectTimeout)
	if err != nil {
		diag.Println("[BLE] [" + s.label + "] Reconnect failed")
		return false
	}

	if err := peer.Secure(); err != nil {
		diag.Println("[BLE] [" + s.label + "] WARNING: failed to secure reconnection")
	}

	svc, err := peer.DiscoverHID()
	if err != nil {
		diag.Println("[BLE] [" + s.label + "] Service rediscovery failed")
		_ = peer.Disconnect()
		return false
	}

	h.mu.Lock()
	s.peer = peer
	h.mu.Unlock()

	var subscribed bool
	if s.kind == KindKeyboard {
		subscribed = h.subscribeKeyboard(svc, s)
	} else {
		subscribed = h.subscribeMouse(svc, s)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !subscribed || !peer.Connected() {
		diag.Println("[BLE] [" + s.label + "] Reconnect subscription failed")
		_ = peer.Disconnect()
		s.peer = nil
		return false
	}

	s.state = StateConnected
	s.bondedAddr = peer.Address()
	s.attempts = 0
	diag.Println("[BLE] [" + s.label + "] Reconnected and ready")
	return true
}
