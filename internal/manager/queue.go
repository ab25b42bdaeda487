package manager

import (
	"sync"
	"time"

	"firestige.xyz/strix/internal/core"
)

// queueEntry pairs a frame with the sequence number it was appended under.
// Sequence numbers let the transmit loop remove exactly the entries it
// sent, even if extensions appended more frames mid-pass.
type queueEntry struct {
	seq   uint64
	frame *core.Frame
}

// frameQueue is the outbound queue between the capture loop (sole writer)
// and the transmit loop (sole reader). All access goes through the mutex.
type frameQueue struct {
	mu      sync.Mutex
	entries []queueEntry
	nextSeq uint64

	// wake has capacity 1: one pending wakeup is enough to get the
	// transmit loop out of its idle wait.
	wake chan struct{}
}

func newFrameQueue() *frameQueue {
	return &frameQueue{wake: make(chan struct{}, 1)}
}

// Append adds frames to the tail of the queue in the given order and wakes
// an idle transmit loop.
func (q *frameQueue) Append(frames ...*core.Frame) {
	if len(frames) == 0 {
		return
	}

	q.mu.Lock()
	for _, f := range frames {
		q.entries = append(q.entries, queueEntry{seq: q.nextSeq, frame: f})
		q.nextSeq++
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current entries in append order. The
// transmit loop iterates the copy so extensions can append concurrently.
func (q *frameQueue) Snapshot() []queueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	out := make([]queueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Remove drops the entries with the given sequence numbers, preserving the
// order of the rest.
func (q *frameQueue) Remove(seqs []uint64) {
	if len(seqs) == 0 {
		return
	}
	drop := make(map[uint64]struct{}, len(seqs))
	for _, s := range seqs {
		drop[s] = struct{}{}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	for _, e := range q.entries {
		if _, dropped := drop[e.seq]; !dropped {
			kept = append(kept, e)
		}
	}
	// Zero the tail so removed frames can be collected.
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = queueEntry{}
	}
	q.entries = kept
}

func (q *frameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// AwaitFrames blocks until new frames arrive or d elapses. Wakeups can be
// spurious; callers re-check the queue either way.
func (q *frameQueue) AwaitFrames(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-q.wake:
	case <-timer.C:
	}
}
