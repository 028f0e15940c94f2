// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/viper"

	"github.com/launchforge/launchpad-engine/internal/fees"
)

// CurveSpec declares one curve instance to launch at startup. The
// big-integer fields are decimal strings scaled by 1e18.
type CurveSpec struct {
	Instrument          string `mapstructure:"instrument"`
	Creator             string `mapstructure:"creator"`
	BasePrice           string `mapstructure:"base_price"`
	Slope               string `mapstructure:"slope"`
	GraduationThreshold string `mapstructure:"graduation_threshold"`
}

type Config struct {
	PlatformOwner    string      `mapstructure:"platform_owner"`
	Curves           []CurveSpec `mapstructure:"curves"`
	Fees             fees.Config `mapstructure:"fees"`
	VenueSlippageBps uint64      `mapstructure:"venue_slippage_bps"`
	VenueDeadlineMs  int         `mapstructure:"venue_deadline_ms"`
	MonitorDelay     int         `mapstructure:"monitor_delay"`
	EventBufferSize  int         `mapstructure:"event_buffer_size"`
	DebugLogging     bool        `mapstructure:"debug_logging"`
	LogFile          string      `mapstructure:"log_file"`
	PostgresURL      string      `mapstructure:"postgres_url"`
}

const (
	DefaultMonitorDelay    = 1000
	DefaultVenueDeadlineMs = 30000
	DefaultVenueSlippage   = 100
	DefaultEventBuffer     = 256
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"monitor_delay":      DefaultMonitorDelay,
		"venue_deadline_ms":  DefaultVenueDeadlineMs,
		"venue_slippage_bps": DefaultVenueSlippage,
		"event_buffer_size":  DefaultEventBuffer,
		"fees.buy_fee_bps":   100,
		"fees.sell_fee_bps":  100,
		"fees.liquidity_bps": 8000,
		"fees.creator_bps":   1000,
		"fees.platform_bps":  1000,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

// VenueDeadline returns the external venue call budget as a duration.
func (c *Config) VenueDeadline() time.Duration {
	return time.Duration(c.VenueDeadlineMs) * time.Millisecond
}

// MonitorInterval returns the progress-publishing cadence.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorDelay) * time.Millisecond
}

func validateConfig(cfg *Config) error {
	if cfg.PlatformOwner == "" {
		return errors.New("missing platform_owner in configuration")
	}
	if len(cfg.Curves) == 0 {
		return errors.New("curves list is empty")
	}
	for i := range cfg.Curves {
		if err := validateCurveSpec(&cfg.Curves[i]); err != nil {
			return fmt.Errorf("curves[%d]: %w", i, err)
		}
	}
	if err := cfg.Fees.Validate(); err != nil {
		return err
	}
	return validateNumericParams(cfg)
}

func validateCurveSpec(spec *CurveSpec) error {
	if spec.Instrument == "" {
		return errors.New("missing instrument")
	}
	if spec.Creator == "" {
		return errors.New("missing creator")
	}
	for _, field := range []struct {
		name, value string
	}{
		{"base_price", spec.BasePrice},
		{"slope", spec.Slope},
		{"graduation_threshold", spec.GraduationThreshold},
	} {
		if _, err := ParseAmount(field.value); err != nil {
			return fmt.Errorf("invalid %s: %w", field.name, err)
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.MonitorDelay <= 0 {
		return errors.New("invalid monitor_delay")
	}
	if cfg.VenueDeadlineMs <= 0 {
		return errors.New("invalid venue_deadline_ms")
	}
	if cfg.VenueSlippageBps > 10000 {
		return errors.New("invalid venue_slippage_bps")
	}
	if cfg.EventBufferSize <= 0 {
		return errors.New("invalid event_buffer_size")
	}
	return nil
}

// ParseAmount converts a decimal string into a 256-bit amount.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty amount")
	}
	value, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return value, nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("LAUNCHPAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envOwner := v.GetString("PLATFORM_OWNER")
	if envOwner != "" {
		cfg.PlatformOwner = envOwner
	}

	envPostgres := v.GetString("POSTGRES_URL")
	if envPostgres != "" {
		cfg.PostgresURL = envPostgres
	}
	return nil
}
