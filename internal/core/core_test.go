package core

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestApp_LifecycleOrder(t *testing.T) {
	t.Cleanup(resetRegistry)

	rec := &recorder{}
	RegisterModule(&trackingModule{id: "test.a", rec: rec})
	RegisterModule(&trackingModule{id: "test.b", rec: rec})

	app := NewApp(testContext())
	if err := app.LoadModules([]string{"test.a", "test.b"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	want := []string{
		"provision test.a", "validate test.a",
		"provision test.b", "validate test.b",
		"start test.a", "start test.b",
		"stop test.b", "stop test.a",
	}
	if got := rec.list(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestApp_StartFailureStopsStarted(t *testing.T) {
	t.Cleanup(resetRegistry)

	rec := &recorder{}
	RegisterModule(&trackingModule{id: "test.ok", rec: rec})
	RegisterModule(&trackingModule{id: "test.fail", rec: rec, startErr: errors.New("start boom")})

	app := NewApp(testContext())
	if err := app.LoadModules([]string{"test.ok", "test.fail"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err == nil {
		t.Fatal("expected start error")
	}

	events := rec.list()
	if !slices.Contains(events, "stop test.ok") {
		t.Errorf("started module was not stopped: %v", events)
	}
	if slices.Contains(events, "stop test.fail") {
		t.Errorf("module that failed to start was stopped: %v", events)
	}
}

func TestApp_LoadFailureCleansUp(t *testing.T) {
	t.Cleanup(resetRegistry)

	rec := &recorder{}
	RegisterModule(&trackingModule{id: "test.first", rec: rec})

	app := NewApp(testContext())
	if err := app.LoadModules([]string{"test.first", "test.missing"}); err == nil {
		t.Fatal("expected error for unknown module")
	}
	if !slices.Contains(rec.list(), "stop test.first") {
		t.Errorf("loaded module was not cleaned up: %v", rec.list())
	}
}

func TestApp_RunReturnsWhenFinisherDone(t *testing.T) {
	t.Cleanup(resetRegistry)

	rec := &recorder{}
	fin := &finishingModule{id: "test.finisher", done: make(chan struct{})}
	RegisterModule(&trackingModule{id: "test.worker", rec: rec})
	RegisterModule(fin)

	app := NewApp(testContext())
	if err := app.LoadModules([]string{"test.worker", "test.finisher"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}

	errFinished := errors.New("input closed")
	result := make(chan error, 1)
	go func() { result <- app.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	fin.finish(errFinished)

	select {
	case err := <-result:
		if !errors.Is(err, errFinished) {
			t.Errorf("Run() = %v, want %v", err, errFinished)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the finisher completed")
	}
	if !slices.Contains(rec.list(), "stop test.worker") {
		t.Errorf("modules were not stopped: %v", rec.list())
	}
}

func TestApp_RunReturnsOnCancel(t *testing.T) {
	t.Cleanup(resetRegistry)

	rec := &recorder{}
	RegisterModule(&trackingModule{id: "test.worker", rec: rec})

	app := NewApp(testContext())
	if err := app.LoadModules([]string{"test.worker"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !slices.Contains(rec.list(), "stop test.worker") {
		t.Errorf("modules were not stopped: %v", rec.list())
	}
}
