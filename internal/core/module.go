package core

import "strings"

// ModuleID is a dotted module identifier such as "bridge.stdio".
type ModuleID string

// Namespace returns the part before the first dot: "bridge" for
// "bridge.stdio". An ID without a dot is its own namespace.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part after the first dot, or "" when there is none.
func (id ModuleID) Name() string {
	_, name, _ := strings.Cut(string(id), ".")
	return name
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID uniquely identifies the module.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the interface every module implements. Optional lifecycle
// behaviour is added by implementing the interfaces in lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
