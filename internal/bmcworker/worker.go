// SPDX-License-Identifier: BSD-3-Clause

package bmcworker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mtce-project/mtce-agent/internal/registry"
	"github.com/mtce-project/mtce-agent/pkg/mtcerr"
)

// Stage mirrors registry.BMCWorkerStage for this package's own state
// machine; the registry's node copy is kept in sync by the Pool.
type Stage = registry.BMCWorkerStage

// Result is the worker-side contract's output (§4.5): status, status
// string, and protocol-dependent data (a filename for BMCInfo, inline text
// otherwise).
type Result struct {
	Status       mtcerr.Kind
	StatusString string
	Data         string
}

// worker is the per-node thread-control-plus-thread-info record.
type worker struct {
	mu       sync.Mutex
	stage    Stage
	killSig  chan struct{}
	killed   bool
	runCount uint32
	seenRun  uint32
	result   Result
	doneAt   time.Time
	passFile string
}

// Pool manages one worker slot per node, enforcing the IDLE-only-launch,
// DONE-only-consume, cooperative-kill invariants of §3/§4.5.
type Pool struct {
	log       *slog.Logger
	tmpDir    string
	outputDir string
	grace     time.Duration
	killCooloff time.Duration

	mu      sync.Mutex
	workers map[registry.Handle]*worker
}

// NewPool creates a worker pool. grace is the parent-side extra margin
// added to the worker-side deadline; killCooloff is the fixed post-kill
// wait (§4.5: "≈10s") before another launch is permitted.
func NewPool(log *slog.Logger, tmpDir, outputDir string, grace, killCooloff time.Duration) *Pool {
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		log:         log,
		tmpDir:      tmpDir,
		outputDir:   outputDir,
		grace:       grace,
		killCooloff: killCooloff,
		workers:     make(map[registry.Handle]*worker),
	}
}

func (p *Pool) slot(h registry.Handle) *worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.workers[h]
	if !ok {
		w = &worker{stage: registry.BMCWorkerIdle}
		p.workers[h] = w
	}
	return w
}

// Launch starts a BMC command for node if its worker slot is IDLE.
// deadline bounds the worker's own command execution; the parent's own
// timeout (enforced by the caller via context) should be deadline+grace.
func (p *Pool) Launch(ctx context.Context, node *registry.Node, extra ExtraInfo, cmd Command, deadline time.Duration) error {
	w := p.slot(node.Handle)

	w.mu.Lock()
	if w.stage != registry.BMCWorkerIdle {
		stage := w.stage
		w.mu.Unlock()
		if stage == registry.BMCWorkerWait {
			return ErrCoolingOff
		}
		return ErrNotIdle
	}
	p.gcPassFile(w)
	w.stage = registry.BMCWorkerLaunch
	w.killSig = make(chan struct{})
	w.killed = false
	w.result = Result{}
	w.mu.Unlock()

	node.BMCWorker.Stage = registry.BMCWorkerLaunch
	node.BMCWorker.SnapshotIP = extra.IP
	node.BMCWorker.SnapshotUsername = extra.Username
	node.BMCWorker.SnapshotPassword = extra.Password
	node.BMCWorker.SnapshotType = string(extra.Type)
	node.BMCWorker.Command = cmd.String()

	go p.runWorker(ctx, node, w, extra, cmd, deadline)

	w.mu.Lock()
	w.stage = registry.BMCWorkerMonitor
	w.mu.Unlock()
	node.BMCWorker.Stage = registry.BMCWorkerMonitor

	return nil
}

func (p *Pool) runWorker(ctx context.Context, node *registry.Node, w *worker, extra ExtraInfo, cmd Command, deadline time.Duration) {
	result := p.execute(ctx, node, w, extra, cmd, deadline)

	w.mu.Lock()
	w.result = result
	killed := w.killed
	if !killed {
		// A killed worker's slot is already in WAIT; the cool-off, not
		// this exit, decides when it returns to IDLE.
		w.stage = registry.BMCWorkerDone
	}
	atomic.AddUint32(&w.runCount, 1)
	w.mu.Unlock()

	if !killed {
		node.BMCWorker.Stage = registry.BMCWorkerDone
	}
	node.BMCWorker.Status = int(result.Status)
	node.BMCWorker.StatusString = result.StatusString
	node.BMCWorker.Data = result.Data
	node.BMCWorker.RunCount = atomic.LoadUint32(&w.runCount)
}

func (p *Pool) execute(ctx context.Context, node *registry.Node, w *worker, extra ExtraInfo, cmd Command, deadline time.Duration) Result {
	passFile, err := writePasswordFile(p.tmpDir, node.Hostname, extra.Password)
	if err != nil {
		return Result{Status: mtcerr.FileAccess, StatusString: err.Error()}
	}
	w.mu.Lock()
	w.passFile = passFile
	w.mu.Unlock()
	defer func() {
		removeIfSet(passFile)
		w.mu.Lock()
		w.passFile = ""
		w.mu.Unlock()
	}()

	outputFile := filepath.Join(p.outputDir, fmt.Sprintf(".%s-%s-%d.out", node.Hostname, cmd, time.Now().UnixNano()))
	defer os.Remove(outputFile)

	out, err := os.Create(outputFile)
	if err != nil {
		return Result{Status: mtcerr.FileAccess, StatusString: err.Error()}
	}
	defer out.Close()

	tool, args := shellInvocation(extra, cmd, passFile)

	execCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	command := exec.CommandContext(execCtx, tool, args...)
	command.Stdout = out

	done := make(chan error, 1)
	go func() { done <- command.Run() }()

	select {
	case err := <-done:
		if err != nil {
			return Result{Status: mtcerr.Timeout, StatusString: err.Error()}
		}
	case <-w.killSig:
		// Cooperative: the exec.CommandContext's own context cancellation
		// (via execCtx) is the actual kill mechanism; we never call
		// command.Process.Kill() directly, matching §4.5's "never
		// force-cancel" rule — cancel() below lets the stdlib send the
		// signal once, then we wait for the process's own exit.
		cancel()
		<-done
		return Result{Status: mtcerr.NotAccessible, StatusString: "killed by cooperative signal"}
	case <-execCtx.Done():
		<-done
		return Result{Status: mtcerr.Timeout, StatusString: "worker deadline exceeded"}
	}

	return p.collectResult(cmd, outputFile)
}

func (p *Pool) collectResult(cmd Command, outputFile string) Result {
	const grace = 200 * time.Millisecond
	deadline := time.Now().Add(grace)

	var f *os.File
	var err error
	for {
		f, err = os.Open(outputFile)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return Result{Status: mtcerr.FileAccess, StatusString: "bmc output file not found within grace period"}
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer f.Close()

	if cmd == BMCInfo {
		return Result{Status: mtcerr.OK, Data: outputFile}
	}

	scanner := bufio.NewScanner(f)
	var lastLine string
	for scanner.Scan() {
		lastLine = scanner.Text()
	}
	return Result{Status: mtcerr.OK, Data: lastLine}
}

// Kill sends the cooperative kill signal to node's worker and transitions
// it into WAIT, never force-cancelling.
func (p *Pool) Kill(node *registry.Node) {
	w := p.slot(node.Handle)

	w.mu.Lock()
	if w.stage != registry.BMCWorkerMonitor || w.killed {
		w.mu.Unlock()
		return
	}
	w.killed = true
	close(w.killSig)
	w.stage = registry.BMCWorkerWait
	w.doneAt = time.Now().Add(p.killCooloff)
	w.mu.Unlock()

	node.BMCWorker.Stage = registry.BMCWorkerWait
}

// Poll advances WAIT → IDLE once the kill cool-off elapses. Call once per
// dispatcher tick per node with an active worker.
func (p *Pool) Poll(node *registry.Node) {
	w := p.slot(node.Handle)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage == registry.BMCWorkerWait && time.Now().After(w.doneAt) {
		p.gcPassFile(w)
		w.stage = registry.BMCWorkerIdle
		node.BMCWorker.Stage = registry.BMCWorkerIdle
	}
}

// gcPassFile unlinks any password temp-file still recorded against w and
// clears the record. The execute() defer already unlinks its own file on the
// common path; this is the backstop every IDLE-stage entry point runs too,
// so a worker that dies between the file create and that defer never leaves
// a leftover password file lying around (§4.5/§9).
func (p *Pool) gcPassFile(w *worker) {
	if w.passFile != "" {
		removeIfSet(w.passFile)
		w.passFile = ""
	}
}

// Consume returns the DONE result and resets the slot to IDLE. Returns
// ErrNoResult if the slot is not DONE.
func (p *Pool) Consume(node *registry.Node) (Result, error) {
	w := p.slot(node.Handle)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != registry.BMCWorkerDone {
		return Result{}, ErrNoResult
	}

	result := w.result
	p.gcPassFile(w)
	w.stage = registry.BMCWorkerIdle
	node.BMCWorker.Stage = registry.BMCWorkerIdle
	return result, nil
}
