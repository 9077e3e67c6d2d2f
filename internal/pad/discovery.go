package pad

import (
	"github.com/karalabe/hid"
)

// DeviceInfo contains information about a discovered HID device
type DeviceInfo struct {
	VendorID     uint16
	ProductID    uint16
	Path         string
	Manufacturer string
	Product      string
	SerialNumber string
	UsagePage    uint16
	Usage        uint16
}

// HID usage page 0x01 (generic desktop) with usage 0x04 (joystick) or
// 0x05 (gamepad).
const (
	usagePageGenericDesktop = 0x01
	usageJoystick           = 0x04
	usageGamepad            = 0x05
)

// IsController reports whether the device advertises itself as a joystick
// or gamepad.
func (d DeviceInfo) IsController() bool {
	return d.UsagePage == usagePageGenericDesktop &&
		(d.Usage == usageJoystick || d.Usage == usageGamepad)
}

func deviceInfo(d hid.DeviceInfo) DeviceInfo {
	return DeviceInfo{
		VendorID:     d.VendorID,
		ProductID:    d.ProductID,
		Path:         d.Path,
		Manufacturer: d.Manufacturer,
		Product:      d.Product,
		SerialNumber: d.Serial,
		UsagePage:    d.UsagePage,
		Usage:        d.Usage,
	}
}

// ListDevices returns all available HID devices, controllers first.
func ListDevices() ([]DeviceInfo, error) {
	devices := hid.Enumerate(0, 0)

	var controllers, others []DeviceInfo
	for _, d := range devices {
		info := deviceInfo(d)
		if info.IsController() {
			controllers = append(controllers, info)
		} else {
			others = append(others, info)
		}
	}

	return append(controllers, others...), nil
}

// FindDevice searches for a device matching the given vendor and product
// IDs. With both IDs zero it returns the first device that looks like a
// controller, so an unconfigured install can still find a pad to use.
func FindDevice(vendorID, productID uint16) (*DeviceInfo, error) {
	devices := hid.Enumerate(vendorID, productID)
	if vendorID == 0 && productID == 0 {
		for _, d := range devices {
			info := deviceInfo(d)
			if info.IsController() {
				return &info, nil
			}
		}
		return nil, nil
	}
	if len(devices) == 0 {
		return nil, nil
	}

	info := deviceInfo(devices[0])
	return &info, nil
}
