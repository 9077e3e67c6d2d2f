// Package config loads the YAML options file and the mapping it points at.
// Loading is all-or-nothing: a Snapshot is only handed out once both the
// options and the mapping DSL have been fully validated, so a reload can
// never leave the engine running on a half-applied configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/mthorp/stenopad/internal/mapping"
)

type Config struct {
	Device DeviceConfig `yaml:"device"`
	Input  InputConfig  `yaml:"input"`
}

type DeviceConfig struct {
	VendorID       uint16 `yaml:"vendor_id"`
	ProductID      uint16 `yaml:"product_id"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

type InputConfig struct {
	// MappingFile is resolved relative to the config file's directory
	// unless absolute.
	MappingFile     string  `yaml:"mapping_file"`
	StickDeadZone   float64 `yaml:"stick_dead_zone"`
	TriggerDeadZone float64 `yaml:"trigger_dead_zone"`
}

// Snapshot is one consistent configuration: the options plus the mapping
// table compiled from the mapping file. Snapshots are immutable; a reload
// produces a new one or fails, leaving the previous one in place.
type Snapshot struct {
	Config *Config
	Table  *mapping.Table
}

// Load reads and validates the config file, then compiles the mapping file
// it references. A missing mapping file is created from the built-in default
// mapping so a fresh install works out of the box.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.applyDefaults()

	mappingPath := cfg.MappingPath(path)
	text, err := os.ReadFile(mappingPath)
	if os.IsNotExist(err) {
		text = []byte(mapping.DefaultMapping)
		if werr := os.WriteFile(mappingPath, text, 0644); werr != nil {
			return nil, fmt.Errorf("failed to create default mapping file: %w", werr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	table, err := mapping.Parse(string(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mappingPath, err)
	}

	return &Snapshot{Config: &cfg, Table: table}, nil
}

// MappingPath returns the mapping file path resolved against the config
// file's directory.
func (c *Config) MappingPath(configPath string) string {
	if filepath.IsAbs(c.Input.MappingFile) {
		return c.Input.MappingFile
	}
	return filepath.Join(filepath.Dir(configPath), c.Input.MappingFile)
}

func (c *Config) validate() error {
	if c.Input.StickDeadZone < 0 || c.Input.StickDeadZone >= 1 {
		return fmt.Errorf("input.stick_dead_zone must be in [0, 1)")
	}
	if c.Input.TriggerDeadZone < 0 || c.Input.TriggerDeadZone >= 1 {
		return fmt.Errorf("input.trigger_dead_zone must be in [0, 1)")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Device.PollIntervalMs == 0 {
		c.Device.PollIntervalMs = 10
	}
	if c.Input.MappingFile == "" {
		c.Input.MappingFile = "mapping.txt"
	}
	if c.Input.StickDeadZone == 0 {
		c.Input.StickDeadZone = 0.6
	}
	if c.Input.TriggerDeadZone == 0 {
		c.Input.TriggerDeadZone = 0.9
	}
}

// UpdateDeviceIDs updates the vendor_id and product_id in a config file
// while preserving the rest of the file structure and comments
func UpdateDeviceIDs(path string, vendorID, productID uint16) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	content := string(data)

	// Update vendor_id (YAML format: vendor_id: 0x1234 or vendor_id: 1234)
	vendorRegex := regexp.MustCompile(`(?m)^(\s*vendor_id:\s*)(?:0x[0-9A-Fa-f]+|\d+)`)
	content = vendorRegex.ReplaceAllString(content, fmt.Sprintf("${1}0x%04X", vendorID))

	// Update product_id
	productRegex := regexp.MustCompile(`(?m)^(\s*product_id:\s*)(?:0x[0-9A-Fa-f]+|\d+)`)
	content = productRegex.ReplaceAllString(content, fmt.Sprintf("${1}0x%04X", productID))

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a new config file with default values and the
// specified device
func CreateDefaultConfig(path string, vendorID, productID uint16) error {
	content := fmt.Sprintf(`# stenopad configuration

device:
  vendor_id: 0x%04X
  product_id: 0x%04X
  poll_interval_ms: 10

input:
  mapping_file: mapping.txt
  stick_dead_zone: 0.6
  trigger_dead_zone: 0.9
`, vendorID, productID)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	return nil
}

// Exists checks if a config file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
