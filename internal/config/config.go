// Package config holds runtime settings for gatorlib: catalog limits,
// logging and the HTTP listener. Values come from defaults, then GATORLIB_*
// environment variables, then command-line flags.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"gatorlib/internal/logging"
	"gatorlib/internal/reservation"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "GATORLIB_"

type Config struct {
	Catalog CatalogConfig
	Logging LogConfig
	Server  ServerConfig
}

type CatalogConfig struct {
	ReservationCapacity int // pending reservations per book
	JournalSize         int // activity events retained
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int // bytes
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			ReservationCapacity: reservation.DefaultCapacity,
			JournalSize:         256,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			BodyLimit:    1 << 20,
		},
	}
}

// Logger converts the logging section for logging.New.
func (c *Config) Logger() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format, Output: c.Logging.Output}
}

// ApplyEnv overrides fields from environment variables found through lookup
// (normally os.LookupEnv). Malformed numbers and durations are reported and
// leave the field unchanged.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) []error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, ValidationError{Field: EnvPrefix + name, Message: "not an integer: " + v})
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, ValidationError{Field: EnvPrefix + name, Message: "not a duration: " + v})
				return
			}
			*dst = d
		}
	}

	num("RESERVATION_CAPACITY", &c.Catalog.ReservationCapacity)
	num("JOURNAL_SIZE", &c.Catalog.JournalSize)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("LOG_OUTPUT", &c.Logging.Output)
	str("ADDR", &c.Server.Address)
	dur("READ_TIMEOUT", &c.Server.ReadTimeout)
	dur("WRITE_TIMEOUT", &c.Server.WriteTimeout)
	num("BODY_LIMIT", &c.Server.BodyLimit)
	return errs
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate returns every problem found; an empty slice means the config is
// usable.
func (c *Config) Validate() []error {
	var errs []error
	if c.Catalog.ReservationCapacity < 1 {
		errs = append(errs, ValidationError{"catalog.reservation_capacity", "must be at least 1"})
	}
	if c.Catalog.JournalSize < 0 {
		errs = append(errs, ValidationError{"catalog.journal_size", "must not be negative"})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{"logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level)})
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{"logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format)})
	}

	if _, _, err := net.SplitHostPort(c.Server.Address); err != nil {
		errs = append(errs, ValidationError{"server.address", err.Error()})
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		errs = append(errs, ValidationError{"server.timeouts", "must not be negative"})
	}
	if c.Server.BodyLimit < 1 {
		errs = append(errs, ValidationError{"server.body_limit", "must be positive"})
	}
	return errs
}
