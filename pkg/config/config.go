package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Flash   FlashConfig   `yaml:"flash"`
	Store   StoreConfig   `yaml:"store"`
	Series  SeriesConfig  `yaml:"series"`
	Serial  SerialConfig  `yaml:"serial"`
	Sensors SensorsConfig `yaml:"sensors"`
	Mock    MockConfig    `yaml:"mock"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// FlashConfig describes the flash device backing the store.
type FlashConfig struct {
	Image      string `yaml:"image"`       // Image file emulating the flash chip
	Base       uint32 `yaml:"base"`        // Base of the logical address space
	Size       uint32 `yaml:"size"`        // Usable size in bytes
	SectorSize uint32 `yaml:"sector_size"` // Erase unit in bytes
}

// StoreConfig contains the ring store parameters.
type StoreConfig struct {
	Capacity int    `yaml:"capacity"` // Requested number of records
	Offset   uint32 `yaml:"offset"`   // Offset of the region from the device base
}

// SeriesConfig contains resampling parameters.
type SeriesConfig struct {
	Length      int           `yaml:"length"`       // Number of buckets
	Period      time.Duration `yaml:"period"`       // Bucket width
	SkipInvalid bool          `yaml:"skip_invalid"` // Drop records failing their checksum
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SensorsConfig contains the sensor polling and filtering parameters.
type SensorsConfig struct {
	IDs            []uint32      `yaml:"ids"`             // Sensors to wait for (empty = first report of each)
	PollTimeout    time.Duration `yaml:"poll_timeout"`    // How long a cycle waits for readings
	MaxAge         time.Duration `yaml:"max_age"`         // Older channel data is discarded
	MaxDiscrepancy float32       `yaml:"max_discrepancy"` // Relative A/B channel disagreement
	MaxAbsDiff     float32       `yaml:"max_abs_diff"`    // Absolute A/B channel disagreement (µg/m³)
}

// MockConfig contains mock sensor source configuration.
type MockConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Sensors    int           `yaml:"sensors"`     // Number of simulated sensors
	BasePM25   float32       `yaml:"base_pm25"`   // Mean PM2.5 (µg/m³)
	NoiseLevel float32       `yaml:"noise_level"` // Channel noise amplitude (µg/m³)
	SampleRate time.Duration `yaml:"sample_rate"` // Time between readings of one sensor
}

// HTTPConfig contains the API server configuration.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Flash: FlashConfig{
			Image:      "aqim.flash",
			Base:       0x03000000,
			Size:       0xFA000,
			SectorSize: 0x1000,
		},
		Store: StoreConfig{
			Capacity: 4096, // ~2.8 days at one sample per minute
			Offset:   0xA0000,
		},
		Series: SeriesConfig{
			Length: 48,
			Period: 30 * time.Minute,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		Sensors: SensorsConfig{
			PollTimeout:    10 * time.Second,
			MaxAge:         7 * time.Minute,
			MaxDiscrepancy: 0.06,
			MaxAbsDiff:     1.2,
		},
		Mock: MockConfig{
			Enabled:    false,
			Sensors:    3,
			BasePM25:   12,
			NoiseLevel: 0.5,
			SampleRate: 100 * time.Millisecond,
		},
		HTTP: HTTPConfig{
			Listen: ":8080",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Flash.Image == "" {
		c.Flash.Image = def.Flash.Image
	}
	if c.Flash.Size == 0 {
		c.Flash.Size = def.Flash.Size
	}
	if c.Flash.SectorSize == 0 {
		c.Flash.SectorSize = def.Flash.SectorSize
	}

	if c.Store.Capacity <= 0 {
		c.Store.Capacity = def.Store.Capacity
	}

	if c.Series.Length <= 0 {
		c.Series.Length = def.Series.Length
	}
	if c.Series.Period <= 0 {
		c.Series.Period = def.Series.Period
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Sensors.PollTimeout == 0 {
		c.Sensors.PollTimeout = def.Sensors.PollTimeout
	}
	if c.Sensors.MaxAge == 0 {
		c.Sensors.MaxAge = def.Sensors.MaxAge
	}
	if c.Sensors.MaxDiscrepancy == 0 {
		c.Sensors.MaxDiscrepancy = def.Sensors.MaxDiscrepancy
	}
	if c.Sensors.MaxAbsDiff == 0 {
		c.Sensors.MaxAbsDiff = def.Sensors.MaxAbsDiff
	}

	if c.Mock.Sensors == 0 {
		c.Mock.Sensors = def.Mock.Sensors
	}
	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}

	if c.HTTP.Listen == "" {
		c.HTTP.Listen = def.HTTP.Listen
	}
}
