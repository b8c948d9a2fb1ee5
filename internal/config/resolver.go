package config

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/flemzord/telega-server/internal/core"
	"gopkg.in/yaml.v3"
)

// Resolve returns the module IDs from the configuration in load order.
// Telemetry modules come first so their tracer is registered before anyone
// asks for it, bridge modules last so they stop first and their final spans
// still reach a live exporter. Within a group IDs are sorted, keeping the
// order deterministic.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

func rank(id string) int {
	switch core.ModuleID(id).Namespace() {
	case "telemetry":
		return 0
	case "bridge":
		return 2
	default:
		return 1
	}
}

// Override sets keys in the configuration of module id, adding the module
// when it is not configured yet. The CLI uses it to let flags win over the
// file.
func (c *Config) Override(id string, values map[string]any) error {
	settings := make(map[string]any)
	if node, ok := c.Modules[id]; ok && node.Kind != 0 {
		if err := node.Decode(&settings); err != nil {
			return fmt.Errorf("config: decoding %s: %w", id, err)
		}
		if settings == nil {
			settings = make(map[string]any)
		}
	}
	for k, v := range values {
		settings[k] = v
	}

	var node yaml.Node
	if err := node.Encode(settings); err != nil {
		return fmt.Errorf("config: encoding %s: %w", id, err)
	}
	if c.Modules == nil {
		c.Modules = make(map[string]yaml.Node)
	}
	c.Modules[id] = node
	return nil
}
