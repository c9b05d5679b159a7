// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/realtime/stats", "200"))

	RecordAPIRequest("GET", "/api/v1/realtime/stats", "200", 25*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/realtime/stats", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest_RequestLifecycle(t *testing.T) {
	initial := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != initial+1 {
		t.Errorf("active requests = %v, want %v", got, initial+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != initial {
		t.Errorf("active requests = %v, want %v", got, initial)
	}
}

func TestConnectionGauge(t *testing.T) {
	gauge := WSConnections.WithLabelValues("doctor")
	initial := testutil.ToFloat64(gauge)

	RecordConnectionOpened("doctor")
	RecordConnectionOpened("doctor")
	RecordConnectionClosed("doctor")

	if got := testutil.ToFloat64(gauge); got != initial+1 {
		t.Errorf("websocket_connections{role=doctor} = %v, want %v", got, initial+1)
	}
}

func TestRealtimeCounters(t *testing.T) {
	tests := []struct {
		name   string
		record func()
		read   func() float64
	}{
		{"sent", func() { RecordMessageSent("notification") }, func() float64 {
			return testutil.ToFloat64(WSMessagesSent.WithLabelValues("notification"))
		}},
		{"received", func() { RecordMessageReceived("chat:message") }, func() float64 {
			return testutil.ToFloat64(WSMessagesReceived.WithLabelValues("chat:message"))
		}},
		{"delivery failure", func() { RecordDeliveryFailure("queue_full") }, func() float64 {
			return testutil.ToFloat64(WSDeliveryFailures.WithLabelValues("queue_full"))
		}},
		{"auth failure", func() { RecordAuthFailure("expired_token") }, func() float64 {
			return testutil.ToFloat64(WSAuthFailures.WithLabelValues("expired_token"))
		}},
		{"event", func() { RecordEvent("nats", "dispatched") }, func() float64 {
			return testutil.ToFloat64(EventsConsumed.WithLabelValues("nats", "dispatched"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.read()
			tt.record()
			if delta := tt.read() - before; delta != 1 {
				t.Errorf("delta = %v, want 1", delta)
			}
		})
	}
}

func TestSetTopicCount(t *testing.T) {
	SetTopicCount(7)
	if got := testutil.ToFloat64(WSTopics); got != 7 {
		t.Errorf("websocket_topics = %v, want 7", got)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	const goroutines = 50
	before := testutil.ToFloat64(WSMessagesSent.WithLabelValues("chat:typing"))

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordMessageSent("chat:typing")
		}()
	}
	wg.Wait()

	if delta := testutil.ToFloat64(WSMessagesSent.WithLabelValues("chat:typing")) - before; delta != goroutines {
		t.Errorf("delta = %v, want %d", delta, goroutines)
	}
}
