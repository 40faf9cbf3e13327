package adb

import (
	"strconv"

	"adbridge/diag"
)

// Monitor passively decodes and logs all bus traffic without emulating any
// device. Debugging aid for running alongside a real host and real
// peripherals; never returns.
func Monitor(yield func()) {
	MustLine()
	diag.Println("[ADB] === Bus Monitor Mode ===")
	diag.Println("[ADB] Passively listening to ADB bus traffic...")

	for {
		if line.ReadPin() {
			yield()
			continue
		}

		lowDuration := line.MeasurePulse(false, ResetMinUS+500)

		if lowDuration >= ResetMinUS {
			diag.Println("[MON] Global Reset (" + us(lowDuration) + ")")
			line.WaitForState(true, 5000)
			continue
		}

		if lowDuration < AttnMinUS || lowDuration > AttnMaxUS {
			continue
		}

		sync := line.MeasurePulse(true, 200)

		b, err := receiveByte()
		if err != nil {
			continue
		}
		cmd := parseCommandByte(b)

		msg := "[MON] Attn=" + us(lowDuration) + " Sync=" + us(sync) +
			" Cmd=0x" + hex8(b) +
			" [Addr:" + strconv.Itoa(int(cmd.Address)) +
			" " + cmdName(cmd.Cmd) +
			" R" + strconv.Itoa(int(cmd.Reg)) + "]"

		// Consume the stop bit
		receiveBit()

		switch cmd.Cmd {
		case CmdTalk:
			// Watch for a device response within Tlt + frame margin
			waitStart := line.Now()
			responded := false
			for line.Now()-waitStart < 500 {
				if !line.ReadPin() {
					data, err := receiveData()
					if err == nil {
						msg += " -> 0x" + hex16(data)
						responded = true
					}
					break
				}
			}
			if !responded {
				msg += " (no response)"
			}

		case CmdListen:
			line.Delay(TltUS)
			data, err := receiveData()
			if err == nil {
				msg += " <- 0x" + hex16(data)
			}
		}

		diag.Println(msg)
	}
}

func us(v uint32) string {
	return strconv.FormatUint(uint64(v), 10) + "us"
}

func hex8(v uint8) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[v>>4], digits[v&0x0F]})
}

func hex16(v uint16) string {
	return hex8(uint8(v>>8)) + hex8(uint8(v))
}
