// Package display renders the bridge's status page on a small monochrome
// screen (the SSD1306 on the reference board). It is a read-only observer:
// everything it shows comes from slot snapshots and the diag counters.
package display

import (
	"image/color"
	"strconv"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"adbridge/diag"
	"adbridge/hid"
)

// UpdateInterval is the refresh cadence; 4Hz is plenty for counters.
const UpdateInterval = 250 * time.Millisecond

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// StatusDisplay draws on any drivers.Displayer.
type StatusDisplay struct {
	dev  drivers.Displayer
	font tinyfont.Fonter

	lastPolls uint32
}

// New creates a status display for the given device.
func New(dev drivers.Displayer) *StatusDisplay {
	return &StatusDisplay{
		dev:  dev,
		font: &proggy.TinySZ8pt7b,
	}
}

func (d *StatusDisplay) clear() {
	w, h := d.dev.Size()
	for y := int16(0); y < h; y++ {
		for x := int16(0); x < w; x++ {
			d.dev.SetPixel(x, y, black)
		}
	}
}

// ShowSplash draws the boot screen.
func (d *StatusDisplay) ShowSplash(version string) {
	d.clear()
	tinyfont.WriteLine(d.dev, d.font, 10, 20, "BLE-ADB Bridge", white)
	tinyfont.WriteLine(d.dev, d.font, 10, 36, version, white)
	d.dev.Display()
}

// ShowMessage draws a two-line message screen (bond-clear countdown and
// the like).
func (d *StatusDisplay) ShowMessage(line1, line2 string) {
	d.clear()
	tinyfont.WriteLine(d.dev, d.font, 4, 24, line1, white)
	if line2 != "" {
		tinyfont.WriteLine(d.dev, d.font, 4, 40, line2, white)
	}
	d.dev.Display()
}

// Update redraws the status page from the given slot snapshots and the
// global counters.
func (d *StatusDisplay) Update(kbd, mouse hid.SlotStatus) {
	d.clear()

	polls := diag.Bridge.AdbPolls.Load()
	busMark := " "
	if polls != d.lastPolls {
		busMark = "*" // host is polling
	}
	d.lastPolls = polls

	tinyfont.WriteLine(d.dev, d.font, 0, 10, "ADB"+busMark+" polls:"+strconv.FormatUint(uint64(polls), 10), white)
	tinyfont.WriteLine(d.dev, d.font, 0, 26, "KBD "+slotLine(kbd), white)
	tinyfont.WriteLine(d.dev, d.font, 0, 42, "MOU "+slotLine(mouse), white)
	tinyfont.WriteLine(d.dev, d.font, 0, 58,
		"tx:"+strconv.FormatUint(uint64(diag.Bridge.TalkResponses.Load()), 10)+
			" k:"+strconv.FormatUint(uint64(diag.Bridge.KbdCallbacks.Load()), 10)+
			" m:"+strconv.FormatUint(uint64(diag.Bridge.MouseCallbacks.Load()), 10),
		white)

	d.dev.Display()
}

func slotLine(s hid.SlotStatus) string {
	switch s.State {
	case hid.StateConnected:
		name := s.Name
		if name == "" {
			name = s.BondedAddr
		}
		if len(name) > 14 {
			name = name[:14]
		}
		return name
	case hid.StateReconnecting:
		return "reconnect #" + strconv.Itoa(s.Attempts+1)
	default:
		return s.State.String()
	}
}

// Loop refreshes the status page until stop is closed.
func (d *StatusDisplay) Loop(host *hid.Host, stop <-chan struct{}) {
	ticker := time.NewTicker(UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.Update(host.KeyboardStatus(), host.MouseStatus())
		}
	}
}
