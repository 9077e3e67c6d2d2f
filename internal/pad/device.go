// Package pad handles the HID connection to the game controller: device
// discovery, the state report format, and turning raw reports into control
// transition events.
package pad

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mthorp/stenopad/internal/utils"
)

// Device represents a connection to the controller HID device
type Device struct {
	vendorID  uint16
	productID uint16
	device    *hid.Device
	mu        sync.Mutex
	closed    bool
	last      *State
}

// NewDevice opens a connection to a HID device with the specified vendor and
// product IDs
func NewDevice(vendorID, productID uint16) (*Device, error) {
	devices := hid.Enumerate(vendorID, productID)
	if len(devices) == 0 {
		allDevices := hid.Enumerate(0, 0)
		if len(allDevices) == 0 {
			return nil, fmt.Errorf("no HID devices found on system - check USB connection")
		}
		exe := utils.ExecutableName()
		return nil, fmt.Errorf("no device found with VendorID=0x%04X, ProductID=0x%04X\n"+
			"  Run '"+exe+" list-devices' to see available devices\n"+
			"  Run '"+exe+" set-device' to configure the correct device",
			vendorID, productID)
	}

	// Try to open each matching interface until one succeeds
	// Some devices have multiple interfaces, not all of which can be opened
	var lastErr error
	for _, devInfo := range devices {
		dev, err := devInfo.Open()
		if err == nil {
			return &Device{
				vendorID:  vendorID,
				productID: productID,
				device:    dev,
				last:      initialState(),
			}, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed to open any of %d interfaces for device 0x%04X:0x%04X: %w\n"+
		"  This may be a permissions issue. On macOS, try:\n"+
		"  1. System Settings > Privacy & Security > Input Monitoring\n"+
		"  2. Add Terminal (or your terminal app) to the list",
		len(devices), vendorID, productID, lastErr)
}

// Close closes the HID device connection
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.device != nil {
		return d.device.Close()
	}
	return nil
}

// ReadEvents continuously reads state reports from the device, diffs them
// against the previous state, and sends the resulting transitions to the
// channel. It returns on context cancellation or a read error (typically a
// disconnect).
func (d *Device) ReadEvents(ctx context.Context, events chan<- Event) error {
	buf := make([]byte, 64)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return fmt.Errorf("device closed")
		}
		dev := d.device
		d.mu.Unlock()

		n, err := dev.Read(buf)
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}
		if n == 0 {
			continue
		}

		state, err := ParseReport(buf[:n])
		if err != nil {
			// Skip malformed reports rather than tearing down the session
			continue
		}

		for _, event := range Diff(d.last, state) {
			select {
			case events <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		d.last = state
	}
}

// Reconnect attempts to reconnect to the device. The state baseline resets
// so the first report after reconnect replays the controls still held.
func (d *Device) Reconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.device.Close()
		d.device = nil
	}
	d.closed = false
	d.last = initialState()

	devices := hid.Enumerate(d.vendorID, d.productID)
	if len(devices) == 0 {
		return fmt.Errorf("device not found")
	}

	var lastErr error
	for _, devInfo := range devices {
		dev, err := devInfo.Open()
		if err == nil {
			d.device = dev
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("failed to open device: %w", lastErr)
}

// WaitForDevice waits for a device to become available and connects to it
func (d *Device) WaitForDevice(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Reconnect(); err == nil {
				return nil
			}
		}
	}
}
