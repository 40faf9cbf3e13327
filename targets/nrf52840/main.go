//go:build nrf52840

package main

import (
	"machine"
	"strconv"
	"time"

	"tinygo.org/x/drivers/ssd1306"

	"adbridge/adb"
	"adbridge/ble"
	"adbridge/diag"
	"adbridge/display"
	"adbridge/events"
	"adbridge/hid"
)

// Board wiring.
const (
	bondClearPin  = machine.P1_06 // hold at boot to clear BLE bonds
	bondClearHold = 3 * time.Second

	oledAddr = 0x3C

	statusInterval = 5 * time.Second
)

// Build-time mode switches, in the spirit of the usual -ldflags overrides.
var (
	selfTest   = "0"
	busMonitor = "0"
)

func main() {
	time.Sleep(time.Second) // let the serial monitor attach

	diag.SetDebugWriter(func(s string) { println(s) })
	diag.SetDebugEnabled(true)
	diag.Println("[INIT] BLE-ADB bridge starting")

	// 1. Event queues — other modules push into them
	keyQ := events.NewQueue[events.KeyEvent](events.KeyQueueDepth)
	mouseQ := events.NewQueue[events.MouseEvent](events.MouseQueueDepth)

	// 2. Display
	machine.I2C0.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz})
	oled := ssd1306.NewI2C(machine.I2C0)
	oled.Configure(ssd1306.Config{Address: oledAddr, Width: 128, Height: 64})
	oled.ClearDisplay()
	disp := display.New(&oled)
	disp.ShowSplash("nrf52840")

	// 3. ADB line, devices, engine
	adb.SetLineDriver(NewLine())
	kbd := adb.NewKeyboard(keyQ)
	mouse := adb.NewMouse(mouseQ)
	engine := adb.NewEngine(kbd, mouse)

	if selfTest == "1" {
		adb.SelfTest()
	}

	// 4. BLE central + HID host
	central := ble.NewCentral()
	host := hid.NewHost(central, keyQ, mouseQ, hid.DefaultConfig())

	// 5. Bond clear: hold the button through the countdown
	checkBondClear(disp, host)

	if err := host.Start(); err != nil {
		diag.Println("[INIT] BLE start failed: " + err.Error())
	}

	stop := make(chan struct{})
	go host.Run(stop)
	go disp.Loop(host, stop)
	go statusLoop(host, keyQ, mouseQ)

	diag.Println("[INIT] entering bus loop")
	if busMonitor == "1" {
		adb.Monitor(func() { time.Sleep(time.Millisecond) })
	}

	// The bus loop owns this goroutine forever. The nRF52840 has a single
	// core: the loop's yield points are the only places the BLE stack and
	// the display get CPU time, and the interrupt-masked windows inside
	// the engine are short enough for the SoftDevice.
	engine.BusLoop()
}

func checkBondClear(disp *display.StatusDisplay, host *hid.Host) {
	btn := bondClearPin
	btn.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	if btn.Get() { // active low
		return
	}

	diag.Println("[INIT] bond-clear button held")
	start := time.Now()
	for time.Since(start) < bondClearHold {
		if btn.Get() {
			diag.Println("[INIT] button released early, bonds kept")
			return
		}
		remaining := bondClearHold - time.Since(start)
		tenths := int(remaining / (100 * time.Millisecond))
		disp.ShowMessage("Hold to clear bonds",
			strconv.Itoa(tenths/10)+"."+strconv.Itoa(tenths%10)+"s remaining...")
		time.Sleep(100 * time.Millisecond)
	}

	if err := host.ClearBonds(); err != nil {
		diag.Println("[INIT] bond clear failed: " + err.Error())
		disp.ShowMessage("Bond clear failed", err.Error())
	} else {
		diag.Println("[INIT] bonds cleared")
		disp.ShowMessage("Bonds cleared!", "")
	}
	time.Sleep(1500 * time.Millisecond)
}

// statusLoop emits the one-line counter dump that host/cmd/adbmon parses.
func statusLoop(host *hid.Host, keyQ *events.Queue[events.KeyEvent], mouseQ *events.Queue[events.MouseEvent]) {
	u := func(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
	for {
		time.Sleep(statusInterval)
		println("[STATUS]" +
			" kbd=" + host.KeyboardStatus().State.String() +
			" mouse=" + host.MouseStatus().State.String() +
			" polls=" + u(diag.Bridge.AdbPolls.Load()) +
			" resp=" + u(diag.Bridge.TalkResponses.Load()) +
			" resets=" + u(diag.Bridge.GlobalResets.Load()) +
			" kcb=" + u(diag.Bridge.KbdCallbacks.Load()) +
			" kused=" + u(diag.Bridge.KbdUsed.Load()) +
			" kdrop=" + u(diag.Bridge.KbdDropped.Load()) +
			" mcb=" + u(diag.Bridge.MouseCallbacks.Load()) +
			" kqd=" + u(keyQ.Drops()) +
			" mqd=" + u(mouseQ.Drops()) +
			" kq=" + strconv.Itoa(keyQ.Len()) +
			" mq=" + strconv.Itoa(mouseQ.Len()))
	}
}
