package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

var (
	modules   = make(map[string]ModuleInfo)
	modulesMu sync.RWMutex
)

// RegisterModule records a module so configuration can refer to it by ID.
// It panics on an empty ID, a nil constructor or a duplicate registration.
// Call it from init().
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("module ID must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	modulesMu.Lock()
	defer modulesMu.Unlock()

	id := string(info.ID)
	if _, exists := modules[id]; exists {
		panic(fmt.Sprintf("module already registered: %s", id))
	}
	modules[id] = info
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	info, ok := modules[id]
	return info, ok
}

// GetModules returns all registered modules sorted by ID. The CLI uses it
// to list what the binary was built with.
func GetModules() []ModuleInfo {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	result := make([]ModuleInfo, 0, len(modules))
	for _, info := range modules {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules = make(map[string]ModuleInfo)
}
