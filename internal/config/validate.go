package config

import (
	"errors"
	"fmt"

	"github.com/flemzord/telega-server/internal/core"
)

// Validate checks the structural validity of a Config.
// It verifies the version and log level, ensures exactly one bridge module
// is configured, and checks that all referenced module IDs exist in the
// registry. Module settings themselves are checked by each module's
// Validate when it is loaded.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if _, err := cfg.Level(); err != nil {
		errs = append(errs, err)
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	bridges := 0
	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
		if core.ModuleID(id).Namespace() == "bridge" {
			bridges++
		}
	}
	if len(cfg.Modules) > 0 && bridges != 1 {
		errs = append(errs, fmt.Errorf("config: exactly one bridge module must be configured, found %d", bridges))
	}

	return errors.Join(errs...)
}
