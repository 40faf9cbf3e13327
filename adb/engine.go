package adb

import (
	"time"

	"adbridge/diag"
)

// Engine runs the device side of the bus: it waits for host attention,
// decodes commands, arbitrates SRQ, and dispatches to the registered
// device emulators. One Engine owns the line and all device state; every
// device method is invoked from the bus loop context only.
type Engine struct {
	devices []Device

	// Yield hands the CPU back to the scheduler for one tick. The bus
	// loop calls it when the bus has been quiet for ~10ms and every 256
	// non-quiet loop passes (frames, noise, resets), never between
	// attention and response.
	Yield func()

	yieldCounter uint32
}

// NewEngine creates an engine serving the given devices.
func NewEngine(devices ...Device) *Engine {
	return &Engine{
		devices: devices,
		Yield:   func() { time.Sleep(time.Millisecond) },
	}
}

// Outcomes of one pass through the bus loop.
type loopOutcome uint8

const (
	outMissedStart loopOutcome = iota // line was already low; waited for idle
	outQuiet                          // no bus activity for ~10ms
	outReset                          // global reset pulse handled
	outNoise                          // low pulse outside attention window
	outNoSync                         // attention not followed by sync high
	outBadCommand                     // command byte receive failed
	outHandled                        // command dispatched
)

// resetAll restores every device to power-on defaults.
func (e *Engine) resetAll() {
	for _, d := range e.devices {
		d.HandleReset()
	}
}

// deviceAt returns the device currently answering to addr, if any.
func (e *Engine) deviceAt(addr uint8) Device {
	for _, d := range e.devices {
		if d.Address() == addr {
			return d
		}
	}
	return nil
}

// pendingOther reports whether any device other than skip has data.
// A nil skip checks all devices.
func (e *Engine) pendingOther(skip Device) bool {
	for _, d := range e.devices {
		if d != skip && d.HasData() {
			return true
		}
	}
	return false
}

// runOnce performs one pass: idle check, attention classification, command
// receive, dispatch. Interrupts are masked from the first command bit
// through the stop-bit consumption, and again around any data-frame
// transmission; both windows are bounded by the frame timings.
func (e *Engine) runOnce() loopOutcome {
	// Always start from an idle (high) line, then detect the falling
	// edge. This ensures we measure the full attention pulse and don't
	// catch a partial one already in progress.
	if !line.ReadPin() {
		line.WaitForState(true, ResetMinUS+500)
		return outMissedStart
	}

	// Line is high — wait for the falling edge (attention start)
	if line.WaitForState(false, 10000) == 0 {
		return outQuiet
	}

	// Falling edge detected — measure the full low pulse duration
	lowStart := line.Now()
	line.WaitForState(true, ResetMinUS+500)
	lowDuration := line.Now() - lowStart

	if lowDuration >= ResetMinUS {
		// Global reset — both devices back to default addresses
		e.resetAll()
		diag.Bridge.GlobalResets.Add(1)
		diag.RecordBus(diag.EvtGlobalReset, lowDuration)
		return outReset
	}

	if lowDuration < AttnMinUS || lowDuration > AttnMaxUS {
		diag.RecordBus(diag.EvtNoise, lowDuration)
		return outNoise
	}

	// Valid attention pulse — line is now high (sync period)
	diag.RecordBus(diag.EvtAttention, lowDuration)
	syncStart := line.Now()
	line.WaitForState(false, SyncNominalUS+30)
	sync := line.Now() - syncStart
	if sync == 0 {
		return outNoSync
	}

	// Line just went low again: first bit of the command byte. Interrupts
	// stay masked through the stop bit (handleCommand restores them).
	state := disableInterrupts()
	cmd := receiveCommand()
	if !cmd.Valid {
		restoreInterrupts(state)
		diag.Bridge.FrameErrors.Add(1)
		diag.RecordBus(diag.EvtBadCommand, 0)
		return outBadCommand
	}

	e.handleCommand(cmd, state)
	return outHandled
}

// handleCommand consumes the command's stop bit (with SRQ when another
// device wants polling), restores interrupts, and dispatches. Called with
// interrupts masked; every path restores them.
func (e *Engine) handleCommand(cmd Command, state intState) {
	diag.Bridge.AdbPolls.Add(1)

	target := e.deviceAt(cmd.Address)

	if target == nil {
		// Not addressed to us — assert SRQ during the stop bit if any
		// emulated device has data
		srq := e.pendingOther(nil)
		consumeStopBit(srq)
		restoreInterrupts(state)
		if srq {
			diag.RecordBus(diag.EvtSRQ, uint32(cmd.Address))
		}
		return
	}

	// Addressed to one of ours — SRQ if the *other* device has pending
	// data. The polled device communicates through its response.
	srq := e.pendingOther(target)
	consumeStopBit(srq)
	restoreInterrupts(state)
	if srq {
		diag.RecordBus(diag.EvtSRQ, uint32(cmd.Address))
	}

	switch cmd.Cmd {
	case CmdTalk:
		data, ok := target.HandleTalk(cmd.Reg)
		if !ok {
			// No data = no response; the bus stays idle per ADB spec
			return
		}

		// Wait Tlt (stop-to-start), then transmit the whole frame with
		// interrupts masked
		line.Delay(TltUS)
		st := disableInterrupts()
		sendData(data)
		restoreInterrupts(st)
		diag.Bridge.TalkResponses.Add(1)

	case CmdListen:
		// The host controls Tlt — wait for its start-bit falling edge
		// rather than using a fixed delay
		if line.WaitForState(false, TltMaxUS+100) == 0 {
			diag.RecordBus(diag.EvtListenLost, uint32(cmd.Address))
			return
		}

		st := disableInterrupts()
		data, err := receiveData()
		restoreInterrupts(st)

		if err != nil {
			diag.Bridge.FrameErrors.Add(1)
			return
		}
		target.HandleListen(cmd.Reg, data)

	case CmdFlush:
		target.HandleFlush()

	case CmdReset:
		target.HandleReset()
	}
}

// BusLoop runs the bus engine forever. Pin it to the high-priority
// execution context; it never blocks on the BLE side.
func (e *Engine) BusLoop() {
	MustLine()

	for {
		if e.runOnce() == outQuiet {
			// No bus activity for 10ms — safe to yield a tick
			e.Yield()
			continue
		}

		// Periodic yield keeps the idle task fed. Never yield per frame:
		// the host sends keyboard and mouse polls back-to-back with a
		// gap as small as ~200µs, and a millisecond yield would
		// consistently miss the second poll.
		e.yieldCounter++
		if e.yieldCounter >= 256 {
			e.yieldCounter = 0
			e.Yield()
		}
	}
}
