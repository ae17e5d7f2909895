package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/padctl/padctl/ble"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE devices",
	Long: `Scan for and display Bluetooth Low Energy devices in the vicinity.

Devices are listed with their names and addresses. A Steam Controller in
pairing mode advertises the name "SteamController".`,
	RunE: runScan,
}

var scanDuration time.Duration

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration (0 for indefinite)")
}

type scanEntry struct {
	name     string
	addr     string
	lastSeen time.Time
}

func runScan(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	host, err := newHost(logger)
	if err != nil {
		return err
	}
	stack, err := ble.NewStack(host, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			logger.WithField("error", err).Warn("Stack close failed")
		}
	}()

	scanner := ble.NewScanner(stack)
	found, err := scanner.Start()
	if err != nil {
		return err
	}
	defer func() {
		if err := scanner.Stop(); err != nil {
			logger.WithField("error", err).Warn("Scan stop failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var deadline <-chan time.Time
	if scanDuration > 0 {
		t := time.NewTimer(scanDuration)
		defer t.Stop()
		deadline = t.C
	}

	color.New(color.FgCyan).Println("Scanning for BLE devices... (Ctrl+C to stop)")

	devices := make(map[string]scanEntry)
collect:
	for {
		select {
		case <-sigCh:
			fmt.Println("\nCtrl+C pressed, stopping scan...")
			break collect
		case <-deadline:
			break collect
		case dev, ok := <-found:
			if !ok {
				break collect
			}
			addr := dev.Addr().String()
			devices[addr] = scanEntry{name: dev.Name(), addr: addr, lastSeen: time.Now()}
		}
	}

	return displayScanTable(devices)
}

func displayScanTable(devices map[string]scanEntry) error {
	if len(devices) == 0 {
		fmt.Println("No devices discovered")
		return nil
	}

	entries := make([]scanEntry, 0, len(devices))
	for _, e := range devices {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].name != entries[j].name {
			return entries[i].name > entries[j].name
		}
		return entries[i].addr < entries[j].addr
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tLAST SEEN")
	fmt.Fprintln(w, strings.Repeat("-", 50))
	for _, e := range entries {
		name := e.name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s ago\n", name, e.addr, time.Since(e.lastSeen).Truncate(time.Second))
	}
	return w.Flush()
}
