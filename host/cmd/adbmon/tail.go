package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"adbridge/host/serial"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Dump the raw serial log",
	RunE:  runTail,
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	port, err := serial.Open(&serial.Config{Device: cfg.Device, Baud: cfg.Baud})
	if err != nil {
		return err
	}
	defer port.Close()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	return scanner.Err()
}
