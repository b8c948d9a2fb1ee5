package core

import "testing"

func TestRegisterModule_Duplicate(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&trackingModule{id: "test.dup"})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	RegisterModule(&trackingModule{id: "test.dup"})
}

func TestRegisterModule_EmptyID(t *testing.T) {
	t.Cleanup(resetRegistry)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on empty ID")
		}
	}()
	RegisterModule(&trackingModule{})
}

func TestGetModules_Sorted(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&trackingModule{id: "test.zeta"})
	RegisterModule(&trackingModule{id: "test.alpha"})

	mods := GetModules()
	if len(mods) != 2 {
		t.Fatalf("GetModules returned %d modules, want 2", len(mods))
	}
	if mods[0].ID != "test.alpha" || mods[1].ID != "test.zeta" {
		t.Errorf("order = %s, %s, want test.alpha, test.zeta", mods[0].ID, mods[1].ID)
	}
}

func TestModuleID_Parts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id        ModuleID
		namespace string
		name      string
	}{
		{"bridge.stdio", "bridge", "stdio"},
		{"telemetry.otlp", "telemetry", "otlp"},
		{"a.b.c", "a", "b.c"},
		{"solo", "solo", ""},
	}
	for _, tt := range tests {
		if got := tt.id.Namespace(); got != tt.namespace {
			t.Errorf("%s.Namespace() = %q, want %q", tt.id, got, tt.namespace)
		}
		if got := tt.id.Name(); got != tt.name {
			t.Errorf("%s.Name() = %q, want %q", tt.id, got, tt.name)
		}
	}
}
