// Package iface abstracts the wireless interface behind a Handle so the
// capture and transmit loops do not care whether frames come from a live
// monitor-mode interface or a pcap file.
package iface

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"firestige.xyz/strix/internal/core"
)

// Handle is a single endpoint for raw 802.11 frames.
//
// A Handle is owned by exactly one loop goroutine: the capture loop calls
// CaptureOne and finally Close on its handle, the transmit loop calls Send
// and finally Close on its own. Implementations are therefore not required
// to be safe for concurrent use.
type Handle interface {
	// CaptureOne blocks until one frame arrives, the stop predicate
	// returns true, or the read fails. When the predicate halts the read
	// it returns core.ErrCaptureStopped. The predicate is re-checked at
	// least once per poll timeout while no traffic arrives.
	CaptureOne(stop func() bool) (*core.Frame, error)

	// Send injects one frame into the air (or the replay output).
	Send(frame *core.Frame) error

	// Close releases the underlying resource. Called exactly once by the
	// owning loop.
	Close() error
}

// Role selects which side of the manager a handle serves. Capture handles
// get the BPF filter applied and read from the replay input; transmit
// handles skip the filter and write to the replay output.
type Role string

const (
	RoleCapture  Role = "capture"
	RoleTransmit Role = "transmit"
)

// Options carries everything a builder needs to open a handle.
type Options struct {
	Interface   string
	SnapLen     int
	PollTimeout time.Duration
	Promiscuous bool
	RFMon       bool
	BPFFilter   string
	Role        Role

	// Replay handles only.
	ReplayInput  string
	ReplayOutput string
}

// Builder opens a handle of one kind.
type Builder func(opts Options) (Handle, error)

type builderRegistry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

var handleReg = &builderRegistry{builders: make(map[string]Builder)}

// Register adds a builder under the given kind. It panics on empty kind,
// nil builder, or duplicate registration: those are programming errors in
// an init() block, not runtime conditions.
func Register(kind string, builder Builder) {
	handleReg.register(kind, builder)
}

// Open builds a handle of the given kind.
func Open(kind string, opts Options) (Handle, error) {
	handleReg.mu.RLock()
	builder, exists := handleReg.builders[kind]
	handleReg.mu.RUnlock()
	if !exists {
		return nil, core.NewHandleNotFoundError(kind)
	}
	return builder(opts)
}

// Kinds returns the registered handle kinds, sorted.
func Kinds() []string {
	handleReg.mu.RLock()
	defer handleReg.mu.RUnlock()
	kinds := make([]string, 0, len(handleReg.builders))
	for kind := range handleReg.builders {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func (r *builderRegistry) register(kind string, builder Builder) {
	if kind == "" {
		panic("iface: Register called with empty kind")
	}
	if builder == nil {
		panic(fmt.Sprintf("iface: Register called with nil builder for %q", kind))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[kind]; exists {
		panic(fmt.Sprintf("iface: Register called twice for %q", kind))
	}
	r.builders[kind] = builder
}
