// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/medibook/internal/logging"
)

// countingService runs until canceled, failing the first failures starts.
type countingService struct {
	name     string
	failures int32
	starts   atomic.Int32
}

func (s *countingService) Serve(ctx context.Context) error {
	if n := s.starts.Add(1); n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func testLogger() *slog.Logger {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
	return logging.NewSlogLogger()
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("Root() is nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults %+v", tree.config, DefaultTreeConfig())
	}

	custom := TreeConfig{FailureThreshold: 2, FailureDecay: 1, FailureBackoff: time.Second, ShutdownTimeout: time.Second}
	tree, _ = NewSupervisorTree(testLogger(), custom)
	if tree.config != custom {
		t.Errorf("config = %+v, want %+v", tree.config, custom)
	}
}

func TestSupervisorTree_StartsBothLayers(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	hub := &countingService{name: "hub"}
	bridge := &countingService{name: "bridge"}
	http := &countingService{name: "http"}
	tree.AddRealtimeService(hub)
	tree.AddRealtimeService(bridge)
	tree.AddAPIService(http)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*countingService{hub, bridge, http} {
		svc := svc
		eventually(t, func() bool { return svc.starts.Load() >= 1 }, svc.name+" start")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree stopped with %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestSupervisorTree_RestartIsolatedToLayer(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	bridge := &countingService{name: "event-bridge", failures: 2}
	http := &countingService{name: "http-server"}
	tree.AddRealtimeService(bridge)
	tree.AddAPIService(http)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	eventually(t, func() bool { return bridge.starts.Load() >= 3 }, "bridge restarts")
	if n := http.starts.Load(); n != 1 {
		t.Errorf("http server started %d times, want 1", n)
	}

	cancel()
	<-errCh
}

func TestSupervisorTree_RemoveRealtimeService(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	bridge := &countingService{name: "event-bridge"}
	token := tree.AddRealtimeService(bridge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)
	eventually(t, func() bool { return bridge.starts.Load() == 1 }, "bridge start")

	if err := tree.RemoveRealtimeService(token); err != nil {
		t.Errorf("RemoveRealtimeService() error = %v", err)
	}
	cancel()
	<-errCh
}
