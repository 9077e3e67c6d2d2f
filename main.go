package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mthorp/stenopad/internal/config"
	"github.com/mthorp/stenopad/internal/engine"
	"github.com/mthorp/stenopad/internal/mapping"
	"github.com/mthorp/stenopad/internal/pad"
	"github.com/mthorp/stenopad/internal/steno"
	"github.com/mthorp/stenopad/internal/ui"
)

const Version = "0.1.0"

func main() {
	// Check for subcommands first
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "check":
			runCheck(os.Args[2:])
			return
		case "list-devices":
			runListDevices()
			return
		case "set-device", "select-device":
			runSetDevice(os.Args[2:])
			return
		case "help", "-h", "--help":
			printUsage()
			os.Exit(0)
		}
	}

	// Main command flags
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	tape := flag.Bool("tape", false, "show the interactive stroke tape")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	version := flag.Bool("version", false, "print version and exit")

	flag.Usage = printUsage
	flag.Parse()

	if *version {
		ui.PrintVersion(Version)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	app, err := newApp(*configPath, *verbose)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	if *tape {
		// The tape program owns the terminal; translation runs behind it and
		// feeds it strokes.
		p := ui.NewTapeProgram()
		app.tapeProg = p
		done := make(chan error, 1)
		go func() { done <- app.Run(ctx) }()
		if _, err := p.Run(); err != nil {
			log.Printf("Tape error: %v", err)
		}
		cancel()
		if err := <-done; err != nil {
			log.Fatalf("Application error: %v", err)
		}
		return
	}

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Application error: %v", err)
	}

	if *verbose {
		log.Println("Shutdown complete")
	}
}

func printUsage() {
	ui.PrintUsage(Version)
}

// runCheck handles the check subcommand: parse a mapping file and report
// what it declares without running the translator.
func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	var path string
	if remaining := fs.Args(); len(remaining) > 0 {
		path = remaining[0]
	} else {
		snap, err := config.Load(*configPath)
		if err != nil {
			ui.PrintFatalError("Failed to load config", err.Error())
			os.Exit(1)
		}
		path = snap.Config.MappingPath(*configPath)
	}

	text, err := os.ReadFile(path)
	if err != nil {
		ui.PrintFatalError("Failed to read mapping file", err.Error())
		os.Exit(1)
	}

	table, err := mapping.Parse(string(text))
	if err != nil {
		ui.PrintFatalError("Mapping is invalid", err.Error())
		os.Exit(1)
	}

	sticks, triggers, buttons, hats, rules := table.Counts()
	ui.PrintMappingSummary(path, sticks, triggers, buttons, hats, rules)
}

// runListDevices handles the list-devices subcommand
func runListDevices() {
	devices, err := pad.ListDevices()
	if err != nil {
		ui.PrintFatalError("Failed to list devices", err.Error())
		os.Exit(1)
	}
	uiDevices := make([]ui.DeviceInfo, len(devices))
	for i, d := range devices {
		uiDevices[i] = ui.DeviceInfo{
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			Controller:   d.IsController(),
		}
	}
	ui.PrintDeviceList(uiDevices)
}

// runSetDevice handles the set-device subcommand
func runSetDevice(args []string) {
	fs := flag.NewFlagSet("set-device", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	fs.Usage = func() {
		ui.PrintSetDeviceUsage()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	remaining := fs.Args()

	var vendorID, productID uint16

	if len(remaining) >= 2 {
		vid, err := parseID(remaining[0])
		if err != nil {
			ui.PrintFatalError("Invalid vendor_id", fmt.Sprintf("%q: %v", remaining[0], err))
			os.Exit(1)
		}
		pid, err := parseID(remaining[1])
		if err != nil {
			ui.PrintFatalError("Invalid product_id", fmt.Sprintf("%q: %v", remaining[1], err))
			os.Exit(1)
		}
		vendorID = vid
		productID = pid
	} else if len(remaining) == 1 {
		ui.PrintFatalError("Invalid arguments", "Both vendor_id and product_id must be provided, or neither")
		os.Exit(1)
	} else {
		device, err := selectDevice()
		if err != nil {
			ui.PrintFatalError("Device selection failed", err.Error())
			os.Exit(1)
		}
		if device == nil {
			fmt.Println(ui.Muted("No device selected"))
			os.Exit(0)
		}
		vendorID = device.VendorID
		productID = device.ProductID
	}

	// Update or create config file
	if config.Exists(*configPath) {
		if err := config.UpdateDeviceIDs(*configPath, vendorID, productID); err != nil {
			ui.PrintFatalError("Failed to update config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceUpdated(*configPath, vendorID, productID)
	} else {
		if err := config.CreateDefaultConfig(*configPath, vendorID, productID); err != nil {
			ui.PrintFatalError("Failed to create config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceCreated(*configPath, vendorID, productID)
	}
}

// parseID parses a vendor or product ID from string (supports hex with 0x prefix or decimal)
func parseID(s string) (uint16, error) {
	s = strings.TrimSpace(s)

	var val uint64
	var err error

	if strings.HasPrefix(strings.ToLower(s), "0x") {
		val, err = strconv.ParseUint(s[2:], 16, 16)
	} else {
		val, err = strconv.ParseUint(s, 10, 16)
	}

	if err != nil {
		return 0, err
	}

	return uint16(val), nil
}

// selectDevice displays an interactive device selection menu using huh
func selectDevice() (*ui.DeviceInfo, error) {
	devices, err := pad.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no HID devices found")
	}

	// Deduplicate devices by vendor/product ID
	seen := make(map[uint32]bool)
	var unique []ui.DeviceInfo

	for _, d := range devices {
		key := uint32(d.VendorID)<<16 | uint32(d.ProductID)
		if seen[key] {
			continue
		}
		seen[key] = true

		if d.VendorID == 0 && d.ProductID == 0 {
			continue
		}

		unique = append(unique, ui.DeviceInfo{
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			Controller:   d.IsController(),
		})
	}

	if len(unique) == 0 {
		return nil, fmt.Errorf("no identifiable HID devices found")
	}

	return ui.SelectDevice(unique)
}

type App struct {
	verbose  bool
	watcher  *config.Watcher
	device   *pad.Device
	session  *engine.Session
	tapeProg *tea.Program

	reloads chan *config.Snapshot
	resets  chan struct{}
}

func newApp(configPath string, verbose bool) (*App, error) {
	app := &App{
		verbose: verbose,
		reloads: make(chan *config.Snapshot, 1),
		resets:  make(chan struct{}, 1),
	}

	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.watcher = watcher
	snap := watcher.Get()

	vendorID, productID := snap.Config.Device.VendorID, snap.Config.Device.ProductID
	if vendorID == 0 && productID == 0 {
		// Unconfigured: take the first device advertising itself as a pad.
		info, err := pad.FindDevice(0, 0)
		if err != nil || info == nil {
			watcher.Stop()
			return nil, fmt.Errorf("no controller configured and none detected; run 'set-device'")
		}
		vendorID, productID = info.VendorID, info.ProductID
		if verbose {
			log.Printf("Auto-detected controller 0x%04X:0x%04X (%s)", vendorID, productID, info.Product)
		}
	}

	device, err := pad.NewDevice(vendorID, productID)
	if err != nil {
		watcher.Stop()
		return nil, err
	}
	app.device = device

	app.session = app.newSession(snap)

	if verbose {
		sticks, triggers, buttons, hats, rules := snap.Table.Counts()
		log.Printf("Mapping: %d sticks, %d triggers, %d buttons, %d hats, %d rules",
			sticks, triggers, buttons, hats, rules)
	}

	return app, nil
}

func (a *App) newSession(snap *config.Snapshot) *engine.Session {
	opts := engine.Options{
		StickDeadZone:   snap.Config.Input.StickDeadZone,
		TriggerDeadZone: snap.Config.Input.TriggerDeadZone,
	}
	s := engine.NewSession(snap.Table, opts, a.onStroke)
	if a.verbose {
		s.OnWarning = func(msg string) { log.Printf("Ignored input: %s", msg) }
	}
	return s
}

func (a *App) onStroke(stroke steno.Stroke) {
	if a.tapeProg != nil {
		a.tapeProg.Send(ui.StrokeMsg{Stroke: stroke})
		return
	}
	fmt.Println(stroke.String())
	if a.verbose {
		log.Printf("Stroke: %s", ui.FormatStroke(stroke))
	}
}

func (a *App) status(text string) {
	if a.tapeProg != nil {
		a.tapeProg.Send(ui.StatusMsg{Text: text})
		return
	}
	if a.verbose {
		log.Println(text)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.watcher.OnReload(func(snap *config.Snapshot) {
		select {
		case a.reloads <- snap:
		default:
		}
	})
	a.watcher.Start()

	events := make(chan pad.Event, 64)
	go a.readLoop(ctx, events)

	a.status("translating")

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return nil
		case snap := <-a.reloads:
			// A new table invalidates in-flight state; start clean.
			a.session = a.newSession(snap)
			a.status("mapping reloaded")
		case <-a.resets:
			a.session.Reset()
		case event := <-events:
			a.handleEvent(event)
			if a.tapeProg != nil {
				a.tapeProg.Send(ui.ChordMsg{Chord: a.session.Chord()})
			}
		}
	}
}

func (a *App) handleEvent(e pad.Event) {
	switch e.Kind {
	case pad.AxisEvent:
		a.session.HandleAxis(e.Index, e.Value)
	case pad.ButtonEvent:
		a.session.HandleButton(e.Index, e.Pressed)
	case pad.HatEvent:
		a.session.HandleHat(e.Index, mapping.HatDirectionFor(e.Hat))
	}
}

// readLoop pumps device events into the channel, reconnecting on read
// failure. A disconnect drops the stroke in progress via the resets channel.
func (a *App) readLoop(ctx context.Context, events chan<- pad.Event) {
	for {
		err := a.device.ReadEvents(ctx, events)
		if ctx.Err() != nil {
			return
		}
		log.Printf("Device read failed: %v", err)

		select {
		case a.resets <- struct{}{}:
		default:
		}

		a.status("reconnecting to device")
		if err := a.device.WaitForDevice(ctx, time.Second); err != nil {
			return
		}
		a.status("device reconnected")
	}
}

func (a *App) shutdown() {
	if a.verbose {
		log.Println("Shutting down...")
	}
	a.watcher.Stop()
	a.device.Close()
}
