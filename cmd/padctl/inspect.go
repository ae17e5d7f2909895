package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/padctl/padctl/ble"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <address>",
	Short: "Inspect a device's GATT database",
	Long: `Connect to a device and dump its services, characteristics, and
descriptors with handles and properties, in discovery order.

The address is the colon-separated form shown by 'padctl scan'.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var inspectScanTimeout time.Duration

func init() {
	inspectCmd.Flags().DurationVar(&inspectScanTimeout, "scan-timeout", 30*time.Second, "How long to scan for the device")
}

// chrReport is one characteristic with its descriptors, in discovery order.
type chrReport struct {
	chr  ble.Characteristic
	dscs []ble.Descriptor
}

func runInspect(cmd *cobra.Command, args []string) error {
	target := strings.ToUpper(args[0])

	logger, err := configureLogger(cmd)
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

	dev, err := findByAddress(stack, target, inspectScanTimeout)
	if err != nil {
		return err
	}

	client := ble.NewClient(stack)
	if err := client.Connect(dev); err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(dev.Addr()); err != nil {
			logger.WithField("error", err).Warn("Disconnect failed")
		}
	}()

	// Walk the full cascade first so the report is not interleaved with
	// connection logging.
	report := orderedmap.New[string, []chrReport]()
	svcs, err := dev.Services()
	if err != nil {
		return err
	}
	for i := range svcs {
		chrs, err := svcs[i].Characteristics()
		if err != nil {
			return err
		}
		reports := make([]chrReport, 0, len(chrs))
		for j := range chrs {
			dscs, err := chrs[j].Descriptors()
			if err != nil {
				return err
			}
			reports = append(reports, chrReport{chr: chrs[j], dscs: dscs})
		}
		key := fmt.Sprintf("%s [%#04x-%#04x]", describeUUID(svcs[i].UUID()), svcs[i].StartHandle, svcs[i].EndHandle)
		report.Set(key, reports)
	}

	printInspectReport(dev, report)
	return nil
}

// findByAddress scans until the target address shows up.
func findByAddress(stack *ble.Stack, target string, timeout time.Duration) (ble.Device, error) {
	scanner := ble.NewScanner(stack)
	found, err := scanner.Start()
	if err != nil {
		return ble.Device{}, err
	}
	defer scanner.Stop() //nolint:errcheck

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-deadline.C:
			return ble.Device{}, fmt.Errorf("device %s not found within %s", target, timeout)
		case dev, ok := <-found:
			if !ok {
				return ble.Device{}, fmt.Errorf("scan for %s: %w", target, ble.ErrClosed)
			}
			if dev.Addr().String() == target {
				return dev, nil
			}
		}
	}
}

func printInspectReport(dev ble.Device, report *orderedmap.OrderedMap[string, []chrReport]) {
	svcColor := color.New(color.FgGreen, color.Bold)
	chrColor := color.New(color.FgYellow)

	fmt.Printf("Device %s", dev.Addr())
	if name := dev.Name(); name != "" {
		fmt.Printf(" (%s)", name)
	}
	fmt.Println()

	for pair := report.Oldest(); pair != nil; pair = pair.Next() {
		svcColor.Printf("Service %s\n", pair.Key)
		for _, cr := range pair.Value {
			chrColor.Printf("  Characteristic %s", describeUUID(cr.chr.UUID()))
			fmt.Printf(" def=%#04x val=%#04x end=%#04x props=%s\n",
				cr.chr.DefHandle, cr.chr.ValHandle, cr.chr.EndHandle, describeProps(&cr.chr))
			for _, d := range cr.dscs {
				fmt.Printf("    Descriptor %s handle=%#04x\n", describeUUID(d.UUID()), d.Handle)
			}
		}
	}
}

func describeProps(c *ble.Characteristic) string {
	var props []string
	if c.CanBroadcast() {
		props = append(props, "broadcast")
	}
	if c.CanRead() {
		props = append(props, "read")
	}
	if c.CanWriteNoResponse() {
		props = append(props, "write-no-rsp")
	}
	if c.CanWrite() {
		props = append(props, "write")
	}
	if c.CanNotify() {
		props = append(props, "notify")
	}
	if c.CanIndicate() {
		props = append(props, "indicate")
	}
	if len(props) == 0 {
		return "none"
	}
	return strings.Join(props, "|")
}

// knownUUIDNames annotates the standard 16-bit identifiers seen on common
// peripherals.
var knownUUIDNames = map[uint16]string{
	0x1800: "Generic Access",
	0x1801: "Generic Attribute",
	0x180a: "Device Information",
	0x180f: "Battery Service",
	0x1812: "Human Interface Device",
	0x2a00: "Device Name",
	0x2a01: "Appearance",
	0x2a19: "Battery Level",
	0x2a4d: "Report",
	0x2901: "User Description",
	0x2902: "Client Configuration",
	0x2908: "Report Reference",
}

func describeUUID(u ble.UUID) string {
	if u.Kind() == ble.UUID16 {
		if name, ok := knownUUIDNames[u.Uint16()]; ok {
			return fmt.Sprintf("%s (%s)", u, name)
		}
	}
	return u.String()
}
