// Package manager runs the capture and transmit loops around a set of
// loaded extensions.
//
// The manager owns three threads of control: the capture loop reads one
// frame at a time from the interface and fans it out to every loaded
// extension in registration order; the transmit loop re-offers the
// outbound queue to the interface; the calling goroutine starts both,
// may collect extension output at any time, and eventually requests a
// stop and joins.
package manager

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/iface"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/pkg/extension"
)

// State represents the manager lifecycle state.
type State string

const (
	// StateIdle indicates the manager is created but not started.
	StateIdle State = "idle"
	// StateRunning indicates both loops are running.
	StateRunning State = "running"
	// StateStopping indicates a stop has been requested.
	StateStopping State = "stopping"
	// StateStopped indicates both loops exited cleanly.
	StateStopped State = "stopped"
	// StateFailed indicates the capture loop terminated on an error.
	StateFailed State = "failed"
)

const defaultPollInterval = 500 * time.Millisecond

// Config carries the manager's runtime knobs.
type Config struct {
	// HandleKind selects the registered handle builder ("pcap", "replay").
	HandleKind string

	// HandleOpts is the template passed to the builder. The manager fills
	// in Interface and Role per handle.
	HandleOpts iface.Options

	// PollInterval bounds the transmit loop's idle wait.
	PollInterval time.Duration

	// OpenHandle defaults to iface.Open. Tests substitute their own.
	OpenHandle func(kind string, opts iface.Options) (iface.Handle, error)
}

type loadedExtension struct {
	name string
	ext  extension.Extension
}

// Manager coordinates the capture loop, the transmit loop, and the loaded
// extensions.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	state     State
	ifaceName string
	exts      []loadedExtension
	failure   error

	queue    *frameQueue
	stopFlag atomic.Bool

	captureDone  chan struct{}
	transmitDone chan struct{}

	framesCaptured atomic.Uint64
	framesProduced atomic.Uint64
	ingestErrors   atomic.Uint64
	framesSent     atomic.Uint64
	sendErrors     atomic.Uint64
}

// Stats is a point-in-time snapshot of the manager's counters.
type Stats struct {
	FramesCaptured uint64
	FramesProduced uint64
	IngestErrors   uint64
	FramesSent     uint64
	SendErrors     uint64
	QueueDepth     int
}

// New creates an idle manager. Call SetInterface and LoadExtensions before
// Start.
func New(cfg Config) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.OpenHandle == nil {
		cfg.OpenHandle = iface.Open
	}
	return &Manager{
		cfg:   cfg,
		state: StateIdle,
		queue: newFrameQueue(),
	}
}

// SetInterface names the monitor-mode interface both loops attach to.
func (m *Manager) SetInterface(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ifaceName = name
}

// LoadExtensions constructs the named extensions in order, each from its
// registered factory with a copy of the shared data. If any name is
// unknown or any factory fails, none of this call's extensions are
// registered. Calls are cumulative.
func (m *Manager) LoadExtensions(names []string, data extension.SharedData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return fmt.Errorf("%w: cannot load extensions in state %s", core.ErrManagerState, m.state)
	}

	// Resolve every factory before constructing anything so an unknown
	// name fails the whole call without side effects.
	factories := make([]extension.Factory, len(names))
	for i, name := range names {
		factory, err := extension.GetFactory(name)
		if err != nil {
			return err
		}
		factories[i] = factory
	}

	data = data.Clone()
	loaded := make([]loadedExtension, 0, len(names))
	for i, name := range names {
		ext, err := factories[i](data)
		if err != nil {
			return core.NewExtensionInitError(name, err)
		}
		loaded = append(loaded, loadedExtension{name: name, ext: ext})
		log.GetLogger().WithField("extension", name).Info("extension loaded")
	}

	m.exts = append(m.exts, loaded...)
	return nil
}

// Extensions returns the loaded extension names in registration order.
func (m *Manager) Extensions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.exts))
	for i, le := range m.exts {
		names[i] = le.name
	}
	return names
}

// Start opens one handle per loop and launches both. The capture handle
// carries the BPF filter; the transmit handle is unfiltered. Each loop
// owns its handle and closes it on exit.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return fmt.Errorf("%w: cannot start in state %s", core.ErrManagerState, m.state)
	}
	if m.ifaceName == "" {
		return core.ErrNoInterface
	}

	captureOpts := m.cfg.HandleOpts
	captureOpts.Interface = m.ifaceName
	captureOpts.Role = iface.RoleCapture
	capture, err := m.cfg.OpenHandle(m.cfg.HandleKind, captureOpts)
	if err != nil {
		return fmt.Errorf("open capture handle: %w", err)
	}

	transmitOpts := m.cfg.HandleOpts
	transmitOpts.Interface = m.ifaceName
	transmitOpts.Role = iface.RoleTransmit
	transmit, err := m.cfg.OpenHandle(m.cfg.HandleKind, transmitOpts)
	if err != nil {
		capture.Close()
		return fmt.Errorf("open transmit handle: %w", err)
	}

	m.captureDone = make(chan struct{})
	m.transmitDone = make(chan struct{})
	m.setState(StateRunning)

	go m.captureLoop(capture, m.ifaceName)
	go m.transmitLoop(transmit, m.ifaceName)

	log.GetLogger().WithFields(map[string]interface{}{
		"interface":  m.ifaceName,
		"extensions": len(m.exts),
	}).Info("manager started")
	return nil
}

// RequestStop asks both loops to stop. Safe to call from any goroutine,
// any number of times; only the first call flips the flag. The flag is
// never reset: the manager is single-use.
func (m *Manager) RequestStop() {
	if !m.stopFlag.CompareAndSwap(false, true) {
		return
	}
	log.GetLogger().Info("stop requested")

	m.mu.Lock()
	if m.state == StateRunning {
		m.setState(StateStopping)
	}
	m.mu.Unlock()
}

// Join waits for both loops to exit, bounded by timeout. On timeout it
// returns an error naming the loops still running; callers treat that as
// a diagnostic, not a fatal condition.
func (m *Manager) Join(timeout time.Duration) error {
	m.mu.Lock()
	captureDone, transmitDone := m.captureDone, m.transmitDone
	m.mu.Unlock()

	// Never started: nothing to wait for.
	if captureDone == nil && transmitDone == nil {
		return nil
	}

	deadline := time.Now().Add(timeout)
	var pending []string
	for _, loop := range []struct {
		name string
		done chan struct{}
	}{
		{"capture", captureDone},
		{"transmit", transmitDone},
	} {
		if loop.done == nil {
			continue
		}
		select {
		case <-loop.done:
			continue
		default:
		}

		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		timer := time.NewTimer(remaining)
		select {
		case <-loop.done:
			timer.Stop()
		case <-timer.C:
			pending = append(pending, loop.name)
		}
	}

	if len(pending) > 0 {
		return core.NewShutdownTimeoutError(pending)
	}

	m.mu.Lock()
	if m.failure != nil {
		if m.state != StateFailed {
			m.setState(StateFailed)
		}
	} else if m.state == StateRunning || m.state == StateStopping {
		m.setState(StateStopped)
	}
	m.mu.Unlock()
	return nil
}

// CollectOutput drains every extension's log lines, preserving
// registration order and, within an extension, its own order. A failing
// extension is skipped, not fatal. Safe to call while the loops run.
func (m *Manager) CollectOutput() []string {
	m.mu.Lock()
	exts := m.exts
	m.mu.Unlock()

	var lines []string
	for _, le := range exts {
		drained, err := le.ext.DrainLog()
		if err != nil {
			log.GetLogger().WithField("extension", le.name).WithError(err).Warn("drain log failed")
			continue
		}
		lines = append(lines, drained...)
	}
	return lines
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	return Stats{
		FramesCaptured: m.framesCaptured.Load(),
		FramesProduced: m.framesProduced.Load(),
		IngestErrors:   m.ingestErrors.Load(),
		FramesSent:     m.framesSent.Load(),
		SendErrors:     m.sendErrors.Load(),
		QueueDepth:     m.queue.Len(),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that terminated the capture loop, or nil. Errors
// hit after a stop was requested are expected and never recorded here.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// Done returns a channel closed when the capture loop exits, whether by
// stop request, exhausted input, or failure. Only valid after Start.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureDone
}

// setState updates the manager state (caller holds mu).
func (m *Manager) setState(s State) {
	m.state = s
	log.GetLogger().WithField("state", string(s)).Info("manager state changed")
}
