package core

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext() *AppContext {
	return NewAppContext(discardLogger(), strings.NewReader(""), io.Discard)
}

// recorder collects lifecycle events across module instances.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// trackingModule is a test helper that tracks lifecycle calls.
type trackingModule struct {
	id           ModuleID
	rec          *recorder
	onProvision  func(*AppContext)
	onValidate   func()
	provisionErr error
	validateErr  error
	startErr     error
}

func (m *trackingModule) ModuleInfo() ModuleInfo {
	proto := *m
	return ModuleInfo{
		ID: proto.id,
		New: func() Module {
			cp := proto
			return &cp
		},
	}
}

func (m *trackingModule) Provision(ctx *AppContext) error {
	m.rec.add("provision " + string(m.id))
	if m.onProvision != nil {
		m.onProvision(ctx)
	}
	return m.provisionErr
}

func (m *trackingModule) Validate() error {
	m.rec.add("validate " + string(m.id))
	if m.onValidate != nil {
		m.onValidate()
	}
	return m.validateErr
}

func (m *trackingModule) Start() error {
	m.rec.add("start " + string(m.id))
	return m.startErr
}

func (m *trackingModule) Stop(_ context.Context) error {
	m.rec.add("stop " + string(m.id))
	return nil
}

// finishingModule closes its Done channel when finish is called.
type finishingModule struct {
	id   ModuleID
	done chan struct{}
	err  error
}

func (m *finishingModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{ID: m.id, New: func() Module { return m }}
}

func (m *finishingModule) Start() error { return nil }
func (m *finishingModule) Stop(context.Context) error { return nil }
func (m *finishingModule) Done() <-chan struct{} { return m.done }
func (m *finishingModule) Err() error { return m.err }

func (m *finishingModule) finish(err error) {
	m.err = err
	close(m.done)
}

// configurableMod is a test module that implements Configurable.
type configurableMod struct {
	id          ModuleID
	configured  *bool
	receivedKey *string
	configErr   error
}

func (m *configurableMod) ModuleInfo() ModuleInfo {
	id := m.id
	return ModuleInfo{
		ID: id,
		New: func() Module {
			return &configurableMod{
				id:          id,
				configured:  m.configured,
				receivedKey: m.receivedKey,
				configErr:   m.configErr,
			}
		},
	}
}

func (m *configurableMod) Configure(node *yaml.Node) error {
	if m.configErr != nil {
		return m.configErr
	}
	if m.configured != nil {
		*m.configured = true
	}
	if m.receivedKey != nil {
		var parsed struct {
			Key string `yaml:"key"`
		}
		if err := node.Decode(&parsed); err != nil {
			return err
		}
		*m.receivedKey = parsed.Key
	}
	return nil
}
