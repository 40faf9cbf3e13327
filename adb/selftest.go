package adb

import (
	"strconv"

	"adbridge/diag"
)

// SelfTest exercises the bit-timing primitives and logs the measured
// durations through the diag writer. Run it before BusLoop when bringing
// up a new board; with a scope (or the line looped back through the
// pull-up) it verifies the driver's cell timing end to end.
func SelfTest() {
	MustLine()
	diag.Println("[ADB] === Timing Self-Test ===")

	testBit := func(name string, lowUS, highUS uint32) {
		diag.Println("[ADB] Testing '" + name + "' bit timing:")
		for i := 0; i < 10; i++ {
			start := line.Now()
			st := disableInterrupts()
			line.DriveLow()
			line.Delay(lowUS)
			mid := line.Now()
			line.Release()
			line.Delay(highUS)
			end := line.Now()
			restoreInterrupts(st)

			diag.Println("  [" + strconv.Itoa(i) + "] low=" +
				strconv.FormatUint(uint64(mid-start), 10) + "us high=" +
				strconv.FormatUint(uint64(end-mid), 10) + "us total=" +
				strconv.FormatUint(uint64(end-start), 10) + "us")
		}
	}

	testBit("1", Bit1LowUS, Bit1HighUS)
	testBit("0", Bit0LowUS, Bit0HighUS)

	// Line-state checks: released line must read high via the pull-up,
	// driven line must read low.
	logState := func(label string, want bool) {
		got := line.ReadPin()
		state := "LOW"
		if got {
			state = "HIGH"
		}
		expect := "LOW"
		if want {
			expect = "HIGH"
		}
		diag.Println("  " + label + ": " + state + " (expect " + expect + ")")
	}

	line.Release()
	line.Delay(100)
	logState("Idle state", true)

	line.DriveLow()
	line.Delay(50)
	logState("Driven low", false)

	line.Release()
	line.Delay(50)
	logState("Released", true)

	diag.Println("[ADB] === Self-Test Complete ===")
}
