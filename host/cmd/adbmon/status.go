package main

import (
	"strconv"
	"strings"
)

// statusPrefix starts every periodic counter dump from the firmware.
const statusPrefix = "[STATUS]"

// Status is one parsed firmware status line.
type Status struct {
	Kbd   string // keyboard slot state name
	Mouse string // mouse slot state name

	Polls      uint64 // ADB commands seen
	Responses  uint64 // Talk responses sent
	Resets     uint64 // global resets
	KbdCb      uint64 // keyboard notification callbacks
	KbdUsed    uint64 // keyboard reports accepted
	KbdDropped uint64 // keyboard reports rejected by length
	MouseCb    uint64 // mouse notification callbacks
	KbdQDrops  uint64 // key events lost to a full queue
	MouseQDrop uint64 // mouse events lost to a full queue
	KbdQLen    uint64 // current key queue depth
	MouseQLen  uint64 // current mouse queue depth
}

// parseStatus decodes a "[STATUS] key=value ..." line. Unknown keys are
// ignored so firmware and monitor can evolve independently.
func parseStatus(line string) (Status, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), statusPrefix)
	if !ok {
		return Status{}, false
	}

	var st Status
	for _, field := range strings.Fields(rest) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "kbd":
			st.Kbd = value
		case "mouse":
			st.Mouse = value
		default:
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				continue
			}
			switch key {
			case "polls":
				st.Polls = n
			case "resp":
				st.Responses = n
			case "resets":
				st.Resets = n
			case "kcb":
				st.KbdCb = n
			case "kused":
				st.KbdUsed = n
			case "kdrop":
				st.KbdDropped = n
			case "mcb":
				st.MouseCb = n
			case "kqd":
				st.KbdQDrops = n
			case "mqd":
				st.MouseQDrop = n
			case "kq":
				st.KbdQLen = n
			case "mq":
				st.MouseQLen = n
			}
		}
	}
	return st, true
}
