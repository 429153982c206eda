// Package config reads the clock's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bind         string        `yaml:"bind"`          // HTTP debug/status server.
	Database     string        `yaml:"database"`      // Commit log; empty disables it.
	PollInterval time.Duration `yaml:"poll_interval"` // How often the console is polled.

	Serial  SerialConfig  `yaml:"serial"`
	Display DisplayConfig `yaml:"display"`
	Button  ButtonConfig  `yaml:"button"`
	RTC     RTCConfig     `yaml:"rtc"`
}

type SerialConfig struct {
	Port string `yaml:"port"` // Empty runs without a console.
	Baud int    `yaml:"baud"`
}

// Display drivers.
const (
	DisplayNone    = "none"
	DisplayBitbang = "bitbang"
	DisplaySPI     = "spi"
)

type DisplayConfig struct {
	Driver string `yaml:"driver"`

	// Pins for the bitbang driver.
	Data  string `yaml:"data"`
	Clock string `yaml:"clock"`

	// Latch is used by both drivers.
	Latch string `yaml:"latch"`

	// SPI device and clock rate for the spi driver.
	SPI       string `yaml:"spi"`
	Frequency int64  `yaml:"frequency_hz"`
}

type ButtonConfig struct {
	Pin string `yaml:"pin"` // Empty disables the button.
}

// RTC drivers.
const (
	RTCSim     = "sim"
	RTCPCF8523 = "pcf8523"
)

type RTCConfig struct {
	Driver string `yaml:"driver"`
	I2C    string `yaml:"i2c"` // Bus for the pcf8523; empty is the first bus.

	// AlarmPin receives a once-per-second edge.  If empty, a timer aligned to the system clock's
	// seconds is used instead.
	AlarmPin string `yaml:"alarm_pin"`

	// SpinLimit bounds each register handshake wait of the sim driver; 0 waits forever.
	SpinLimit int `yaml:"spin_limit"`

	// ResetOnStart commits 00:00:00 at startup, like a freshly powered board.
	ResetOnStart bool `yaml:"reset_on_start"`

	// SetFromHost commits the host's local time of day at startup instead.
	SetFromHost bool `yaml:"set_from_host"`
}

// Default returns the configuration used when no file is given: a simulated RTC, no display
// hardware and no serial port.
func Default() *Config {
	return &Config{
		Bind:         ":8080",
		PollInterval: time.Millisecond,
		Serial:       SerialConfig{Baud: 115200},
		Display:      DisplayConfig{Driver: DisplayNone, Frequency: 1000000},
		RTC:          RTCConfig{Driver: RTCSim, SpinLimit: 1000000, ResetOnStart: true},
	}
}

// Load reads path over the defaults.  Unknown keys are an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	cfg, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

// Read decodes a configuration from r over the defaults.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration correctness.  It does not mutate the configuration.
func Validate(cfg *Config) error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, not %v", cfg.PollInterval)
	}
	if cfg.Serial.Port != "" && cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial: baud must be positive, not %d", cfg.Serial.Baud)
	}

	d := cfg.Display
	switch d.Driver {
	case DisplayNone:
	case DisplayBitbang:
		if d.Data == "" || d.Clock == "" || d.Latch == "" {
			return errors.New("display: bitbang driver needs data, clock and latch pins")
		}
	case DisplaySPI:
		if d.Latch == "" {
			return errors.New("display: spi driver needs a latch pin")
		}
		if d.Frequency <= 0 {
			return fmt.Errorf("display: frequency_hz must be positive, not %d", d.Frequency)
		}
	default:
		return fmt.Errorf("display: unknown driver %q", d.Driver)
	}

	switch cfg.RTC.Driver {
	case RTCSim, RTCPCF8523:
	default:
		return fmt.Errorf("rtc: unknown driver %q", cfg.RTC.Driver)
	}
	if cfg.RTC.ResetOnStart && cfg.RTC.SetFromHost {
		return errors.New("rtc: reset_on_start and set_from_host are mutually exclusive")
	}
	if cfg.RTC.SpinLimit < 0 {
		return fmt.Errorf("rtc: spin_limit must not be negative, not %d", cfg.RTC.SpinLimit)
	}
	return nil
}
