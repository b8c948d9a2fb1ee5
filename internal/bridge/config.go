package bridge

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultVerbosity      = 5
	defaultReceiveTimeout = time.Second
	defaultMaxPayload     = 16 << 20

	maxVerbosity  = 1023
	maxPayloadCap = 1 << 30
)

// Growth bounds between a payload and its conversion. A plist control
// character becomes a six byte \u00XX escape in JSON; a JSON \u0001 becomes
// a four byte octal escape in plist text.
const (
	commandExpansion = 6
	eventExpansion   = 4
)

// Config holds bridge.stdio configuration.
type Config struct {
	// TDLibVerbosity is TDLib's log verbosity. Nil means 5.
	TDLibVerbosity *int `yaml:"tdlib_verbosity"`

	// TDLibLogFile redirects TDLib's log to a file instead of stderr.
	TDLibLogFile string `yaml:"tdlib_log_file"`

	// ReceiveTimeout bounds each wait for a TDLib update, and so how long
	// the event worker takes to notice shutdown.
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`

	// MaxPayload is the largest frame payload accepted from the editor and
	// the largest TDLib update forwarded to it, in bytes.
	MaxPayload int `yaml:"max_payload"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.TDLibVerbosity == nil {
		v := defaultVerbosity
		c.TDLibVerbosity = &v
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = defaultReceiveTimeout
	}
	if c.MaxPayload <= 0 {
		c.MaxPayload = defaultMaxPayload
	}
}

func (c *Config) validate() error {
	var errs []error
	if v := c.Verbosity(); v < 0 || v > maxVerbosity {
		errs = append(errs, fmt.Errorf("bridge: tdlib_verbosity %d out of range 0..%d", v, maxVerbosity))
	}
	if c.ReceiveTimeout > time.Minute {
		errs = append(errs, fmt.Errorf("bridge: receive_timeout %s is longer than 1m", c.ReceiveTimeout))
	}
	if c.MaxPayload > maxPayloadCap {
		errs = append(errs, fmt.Errorf("bridge: max_payload %d exceeds %d", c.MaxPayload, maxPayloadCap))
	}
	return errors.Join(errs...)
}

// Verbosity returns the configured TDLib verbosity.
func (c *Config) Verbosity() int {
	if c.TDLibVerbosity == nil {
		return defaultVerbosity
	}
	return *c.TDLibVerbosity
}

// commandLimits returns the source and destination Buffer limits for the
// command worker. The destination has room for the NUL terminator.
func (c *Config) commandLimits() (src, dst int) {
	return c.MaxPayload, commandExpansion*c.MaxPayload + 1
}

// eventLimits returns the Buffer limits for the event worker.
func (c *Config) eventLimits() (src, dst int) {
	return c.MaxPayload, eventExpansion * c.MaxPayload
}
