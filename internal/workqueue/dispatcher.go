// SPDX-License-Identifier: BSD-3-Clause

package workqueue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mtce-project/mtce-agent/internal/registry"
)

// inFlight tracks the one outstanding request a node may have, per §3's
// "at most one in-flight request per node" invariant.
type inFlight struct {
	entryID  uint64
	resultCh chan Result
}

// Dispatcher drives every node's HTTP work FIFO: one in-flight request at a
// time, non-critical failures logged-and-dropped, critical requests
// retried up to MaxRetries at a constant delay.
type Dispatcher struct {
	log      *slog.Logger
	client   *http.Client
	baseURLs map[Target]string
	limiter  *rate.Limiter

	mu     sync.Mutex
	active map[registry.Handle]*inFlight
}

// NewDispatcher builds a work-queue dispatcher. retryDelay is the constant
// delay §4.4 requires between a critical request's retry attempts,
// enforced via a token-bucket limiter so concurrent nodes' retries don't
// all land on the peer service in the same instant.
func NewDispatcher(log *slog.Logger, client *http.Client, baseURLs map[Target]string, retryDelay time.Duration) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	rl := rate.NewLimiter(rate.Every(retryDelay), 1)
	return &Dispatcher{
		log:      log,
		client:   client,
		baseURLs: baseURLs,
		limiter:  rl,
		active:   make(map[registry.Handle]*inFlight),
	}
}

// Enqueue appends req to node's work FIFO.
func (d *Dispatcher) Enqueue(node *registry.Node, req Request) uint64 {
	return node.HTTPWorkQueue.Push(req)
}

// Advance is called once per dispatcher tick per node (§4.4: "the queue is
// advanced by the dispatcher"). If nothing is in flight and the FIFO is
// non-empty, it launches the head request asynchronously.
func (d *Dispatcher) Advance(ctx context.Context, node *registry.Node) {
	d.mu.Lock()
	_, inflight := d.active[node.Handle]
	d.mu.Unlock()
	if inflight {
		return
	}

	entry, ok := node.HTTPWorkQueue.Front()
	if !ok {
		return
	}
	req, ok := entry.Payload.(Request)
	if !ok {
		d.log.Warn("workqueue: non-Request payload at head of fifo, dropping", "hostname", node.Hostname)
		node.HTTPWorkQueue.Complete(true)
		return
	}

	resultCh := make(chan Result, 1)
	d.mu.Lock()
	d.active[node.Handle] = &inFlight{entryID: entry.ID, resultCh: resultCh}
	d.mu.Unlock()

	go d.run(ctx, req, resultCh)
}

// Poll checks whether the node's in-flight request has completed; if so it
// moves the FIFO entry to the done side and returns the result. Called
// once per dispatcher tick, after Advance.
func (d *Dispatcher) Poll(node *registry.Node) (Result, bool) {
	d.mu.Lock()
	inflight, ok := d.active[node.Handle]
	d.mu.Unlock()
	if !ok {
		return Result{}, false
	}

	select {
	case result := <-inflight.resultCh:
		d.mu.Lock()
		delete(d.active, node.Handle)
		d.mu.Unlock()

		node.HTTPWorkQueue.Complete(result.Failed)
		if result.Failed && result.Request.NonCritical {
			d.log.Warn("workqueue: non-critical request failed", "op", result.Request.OperationTag, "host", result.Request.LogPrefix, "error", result.Err)
		}
		return result, true
	default:
		return Result{}, false
	}
}

func (d *Dispatcher) run(ctx context.Context, req Request, resultCh chan<- Result) {
	maxRetries := req.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			if err := d.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		status, err := d.doOnce(ctx, req)
		lastStatus, lastErr = status, err
		if err == nil && status < 400 {
			resultCh <- Result{Request: req, StatusCode: status, Attempts: attempt, Failed: false}
			return
		}

		if req.NonCritical {
			// Non-critical requests do not back-pressure the dispatcher
			// with retries; one attempt and done.
			break
		}
	}

	resultCh <- Result{Request: req, StatusCode: lastStatus, Err: lastErr, Attempts: maxRetries, Failed: true}
}

func (d *Dispatcher) doOnce(ctx context.Context, req Request) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	base, ok := d.baseURLs[req.Target]
	if !ok {
		return 0, fmt.Errorf("workqueue: no base url configured for target %q", req.Target)
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, base+req.URLTemplate, body)
	if err != nil {
		return 0, err
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// RunBlocking executes req synchronously, bypassing the FIFO entirely —
// for update_states_now and the keystone startup token fetch, which the
// spec requires to block the caller rather than enqueue.
func (d *Dispatcher) RunBlocking(ctx context.Context, req Request) (int, error) {
	return d.doOnce(ctx, req)
}
