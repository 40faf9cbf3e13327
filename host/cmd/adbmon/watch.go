package main

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/smallnest/ringbuffer"
	"github.com/spf13/cobra"

	"adbridge/host/serial"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the bridge's status lines",
	Long: `Follow the firmware's periodic [STATUS] dumps and render slot states
and counter rates. Non-status output is shown only with --verbose.`,
	RunE: runWatch,
}

var (
	stateConnected    = color.New(color.FgGreen)
	stateReconnecting = color.New(color.FgYellow)
	stateOther        = color.New(color.FgRed)
	dimText           = color.New(color.Faint)
)

func runWatch(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	port, err := serial.Open(&serial.Config{Device: cfg.Device, Baud: cfg.Baud})
	if err != nil {
		return err
	}
	defer port.Close()
	logger.WithField("device", cfg.Device).Info("watching bridge diagnostics")

	// Decouple the serial reader from parsing/rendering: the reader
	// drains the port into a ring buffer, the scanner consumes lines at
	// its own pace.
	rb := ringbuffer.New(16 * 1024).SetBlocking(true)
	go func() {
		_, err := io.Copy(rb, port)
		if err != nil {
			logger.WithError(err).Debug("serial reader stopped")
		}
		rb.CloseWriter()
	}()

	var prev *Status
	var prevAt time.Time

	scanner := bufio.NewScanner(rb)
	for scanner.Scan() {
		line := scanner.Text()
		st, ok := parseStatus(line)
		if !ok {
			logger.Debug(line)
			continue
		}

		now := time.Now()
		renderStatus(st, prev, now.Sub(prevAt))
		prevCopy := st
		prev = &prevCopy
		prevAt = now
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", cfg.Device, err)
	}
	return nil
}

func renderStatus(st Status, prev *Status, dt time.Duration) {
	fmt.Printf("%s  KBD %-13s MOU %-13s",
		time.Now().Format("15:04:05"),
		colorState(st.Kbd), colorState(st.Mouse))

	if prev != nil && dt > 0 {
		pollRate := float64(st.Polls-prev.Polls) / dt.Seconds()
		fmt.Printf("  polls %s (%.0f/s)  resp %s",
			dimText.Sprintf("%d", st.Polls), pollRate,
			dimText.Sprintf("%d", st.Responses))
	} else {
		fmt.Printf("  polls %s  resp %s",
			dimText.Sprintf("%d", st.Polls), dimText.Sprintf("%d", st.Responses))
	}

	fmt.Printf("  cb k:%d m:%d  q k:%d m:%d", st.KbdCb, st.MouseCb, st.KbdQLen, st.MouseQLen)

	if drops := st.KbdDropped + st.KbdQDrops + st.MouseQDrop; drops > 0 {
		fmt.Printf("  %s", stateOther.Sprintf("drops:%d", drops))
	}
	if st.Resets > 0 {
		fmt.Printf("  resets:%d", st.Resets)
	}
	fmt.Println()
}

func colorState(state string) string {
	switch state {
	case "connected":
		return stateConnected.Sprint(state)
	case "reconnecting":
		return stateReconnecting.Sprint(state)
	default:
		return stateOther.Sprint(state)
	}
}
