// SPDX-License-Identifier: BSD-3-Clause

package workqueue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

func newTestNode() *registry.Node {
	return &registry.Node{Handle: 1, Hostname: "worker-1"}
}

func waitForResult(t *testing.T, d *Dispatcher, node *registry.Node) Result {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if result, ok := d.Poll(node); ok {
			return result
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no result within timeout")
	return Result{}
}

func TestAdvanceAndPollSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(nil, srv.Client(), map[Target]string{TargetInventory: srv.URL}, 5*time.Millisecond)
	node := newTestNode()
	d.Enqueue(node, UpdateTask("worker-1", "enabling"))

	d.Advance(context.Background(), node)
	result := waitForResult(t, d, node)

	assert.False(t, result.Failed)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "update_task", result.Request.OperationTag)
}

func TestNonCriticalFailureDoesNotRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(nil, srv.Client(), map[Target]string{TargetInventory: srv.URL}, 5*time.Millisecond)
	node := newTestNode()
	req := UpdateUptime("worker-1", 42)
	d.Enqueue(node, req)

	d.Advance(context.Background(), node)
	result := waitForResult(t, d, node)

	assert.True(t, result.Failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCriticalRequestRetriesUpToMax(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDispatcher(nil, srv.Client(), map[Target]string{TargetInventory: srv.URL}, 5*time.Millisecond)
	node := newTestNode()
	req := UpdateValue("worker-1", "ihost_action", "lock")
	req.MaxRetries = 3
	d.Enqueue(node, req)

	d.Advance(context.Background(), node)
	result := waitForResult(t, d, node)

	assert.True(t, result.Failed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, 3, result.Attempts)
}

func TestAdvanceDoesNothingWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-unblock
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(nil, srv.Client(), map[Target]string{TargetInventory: srv.URL}, 5*time.Millisecond)
	node := newTestNode()
	req := UpdateTask("worker-1", "enabling")
	req.Timeout = 5 * time.Second
	d.Enqueue(node, req)
	d.Enqueue(node, UpdateTask("worker-1", "enabled"))

	d.Advance(context.Background(), node)
	<-started

	// A second Advance while the first is in flight must not start another.
	d.Advance(context.Background(), node)
	_, ok := d.Poll(node)
	require.False(t, ok)

	close(unblock)
	waitForResult(t, d, node)
}
