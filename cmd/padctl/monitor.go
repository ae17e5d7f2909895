package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/padctl/padctl/ble"
	"github.com/padctl/padctl/steamctl"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Connect to a Steam Controller and stream its input events",
	Long: `Scan for a Steam Controller, connect, and print decoded input events.

On the first run put the controller into pairing mode (hold the right bumper
while powering on). The address is remembered afterwards, so later runs
reconnect to the powered-on controller directly. The command retries
indefinitely until interrupted.`,
	RunE: runMonitor,
}

var monitorConfigPath string

func init() {
	monitorCmd.Flags().StringVarP(&monitorConfigPath, "config", "c", "", "Path to YAML config file")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadMonitorConfig(monitorConfigPath)
	if err != nil {
		return err
	}

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\nCtrl+C pressed, shutting down...")
		cancel()
	}()

	driver := steamctl.NewDriver(stack, newBondedCache(cfg.BondedCache), steamctl.Config{
		DeviceName: cfg.DeviceName,
		RetryDelay: cfg.RetryDelay,
	})

	color.New(color.FgCyan).Println("Waiting for controller... (Ctrl+C to stop)")
	err = driver.Run(ctx, printControllerEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var (
	connColor   = color.New(color.FgGreen, color.Bold)
	buttonColor = color.New(color.FgYellow)
	axisColor   = color.New(color.FgBlue)
)

func printControllerEvent(ev steamctl.Event) {
	switch ev.Kind {
	case steamctl.Connected:
		connColor.Println("Controller connected")
	case steamctl.Disconnected:
		connColor.Println("Controller disconnected")
	case steamctl.ButtonChanged:
		buttonColor.Printf("%-14s %.2f\n", ev.Button, ev.Value)
	case steamctl.AxisChanged:
		axisColor.Printf("%-14s %+.3f\n", ev.Axis, ev.Value)
	}
}
