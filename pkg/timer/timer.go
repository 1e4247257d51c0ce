// SPDX-License-Identifier: BSD-3-Clause

// Package timer implements the monotonic, per-node timer service (C1): a
// single process-wide signal-driven tick that marks expired timers, and a
// polled Expired/Poll cycle that invokes the bound callback
// synchronously on the goroutine that calls Poll. No timer callback may block; a
// callback that needs to do work enqueues into the HTTP work-queue, the BMC
// worker or the command FSM instead.
package timer

import (
	"sync"
	"time"
)

// Handle is an opaque, stable identifier for one timer. It is safe to hold
// past the life of the owning node: firing a timer for a handle whose owner
// has been removed from the service is a safe no-op.
type Handle uint64

// Callback is invoked synchronously, on the goroutine that calls Service.Poll,
// when a timer expires. It must not block.
type Callback func(h Handle)

type entry struct {
	owner    any
	callback Callback
	deadline time.Time
	// ring is set by the background tick goroutine and cleared by Poll;
	// this mirrors the original design's signal-handler-sets/dispatcher-polls
	// split so the tick never calls back into dispatcher-owned state.
	ring bool
	// fired is set once Poll has invoked the callback for the current
	// deadline, so a duplicate Poll tick between reset and a fresh start
	// never double-fires the same deadline.
	fired bool
}

// Service owns every timer handle in the process. One Service is shared by
// every node record; handles are unique across the whole registry.
type Service struct {
	mu      sync.Mutex
	timers  map[Handle]*entry
	ownerIx map[any][]Handle
	nextID  uint64

	tickInterval time.Duration
	stopCh       chan struct{}
	stopOnce     sync.Once
}

// New creates a timer service whose background tick runs at tickInterval.
// A short interval (a few milliseconds) matches §5's "short cooperative
// timeout" requirement for the event loop's own responsiveness.
func New(tickInterval time.Duration) *Service {
	if tickInterval <= 0 {
		tickInterval = 10 * time.Millisecond
	}
	s := &Service{
		timers:       make(map[Handle]*entry),
		ownerIx:      make(map[any][]Handle),
		tickInterval: tickInterval,
		stopCh:       make(chan struct{}),
	}
	go s.tickLoop()
	return s
}

// Stop halts the background tick goroutine. Safe to call multiple times.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Service) tickLoop() {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for _, e := range s.timers {
				if !e.fired && !e.deadline.IsZero() && !now.Before(e.deadline) {
					e.ring = true
				}
			}
			s.mu.Unlock()
		}
	}
}

// Start allocates a new timer handle owned by owner, firing callback after
// seconds. owner is any comparable value the caller uses to reverse-lookup
// the handle later (typically the owning node's registry handle).
func (s *Service) Start(owner any, callback Callback, seconds float64) Handle {
	return s.StartMsec(owner, callback, time.Duration(seconds*1000)*time.Millisecond)
}

// StartMsec is Start with millisecond-precision duration, matching the
// original's start_msec entry point.
func (s *Service) StartMsec(owner any, callback Callback, d time.Duration) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	h := Handle(s.nextID)

	s.timers[h] = &entry{
		owner:    owner,
		callback: callback,
		deadline: time.Now().Add(d),
	}
	s.ownerIx[owner] = append(s.ownerIx[owner], h)

	return h
}

// Reset restarts an existing timer's deadline without allocating a new
// handle, clearing any pending ring/fired state. Returns false if the
// handle is unknown (already stopped or never started).
func (s *Service) Reset(h Handle, d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[h]
	if !ok {
		return false
	}
	e.deadline = time.Now().Add(d)
	e.ring = false
	e.fired = false
	return true
}

// StopTimer cancels a timer before it fires, removing its handle. Safe to call
// on an already-fired or unknown handle.
func (s *Service) StopTimer(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(h)
}

func (s *Service) remove(h Handle) {
	e, ok := s.timers[h]
	if !ok {
		return
	}
	delete(s.timers, h)

	owners := s.ownerIx[e.owner]
	for i, oh := range owners {
		if oh == h {
			s.ownerIx[e.owner] = append(owners[:i], owners[i+1:]...)
			break
		}
	}
	if len(s.ownerIx[e.owner]) == 0 {
		delete(s.ownerIx, e.owner)
	}
}

// Expired reports whether the timer has rung since the last Reset/Start,
// without consuming the ring. Used by callers that want to peek before
// committing to fire the callback.
func (s *Service) Expired(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[h]
	if !ok {
		return false
	}
	return e.ring && !e.fired
}

// Poll scans every timer owned by owner and synchronously invokes the
// callback for each one that has rung and not yet fired for its current
// deadline. No caller in this module polls the service. Each timer
// fires at most once per Start/Reset; call Reset or a fresh Start to
// re-arm it.
func (s *Service) Poll(owner any) {
	s.mu.Lock()
	handles := append([]Handle(nil), s.ownerIx[owner]...)
	s.mu.Unlock()

	for _, h := range handles {
		s.mu.Lock()
		e, ok := s.timers[h]
		if !ok || !e.ring || e.fired {
			s.mu.Unlock()
			continue
		}
		e.fired = true
		cb := e.callback
		s.mu.Unlock()

		if cb != nil {
			cb(h)
		}
	}
}

// OwnerOf reverse-looks-up the owner of a timer handle, used when an
// interrupt-style caller (e.g. a signal handler emulation) knows only the
// handle, not the node. Returns false if the handle is unknown.
func (s *Service) OwnerOf(h Handle) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[h]
	if !ok {
		return nil, false
	}
	return e.owner, true
}

// StopAll cancels every timer owned by owner, used when a node is deleted
// (§5: "no node is freed while any of its timers has an unfired callback").
func (s *Service) StopAll(owner any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range append([]Handle(nil), s.ownerIx[owner]...) {
		s.remove(h)
	}
}

// HasPending reports whether owner has any outstanding (not yet fired)
// timer, the registry's delete-safety precondition.
func (s *Service) HasPending(owner any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.ownerIx[owner] {
		if e, ok := s.timers[h]; ok && !e.fired {
			return true
		}
	}
	return false
}
