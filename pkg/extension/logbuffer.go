package extension

import (
	"fmt"
	"sync"
)

// LogBuffer accumulates output lines for collection by the manager.
// Append and Drain are safe for concurrent use, which satisfies the
// Extension contract for DrainLog. The zero value is ready to use.
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
}

// Append adds one line.
func (b *LogBuffer) Append(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
}

// Appendf adds one formatted line.
func (b *LogBuffer) Appendf(format string, args ...interface{}) {
	b.Append(fmt.Sprintf(format, args...))
}

// Drain returns the accumulated lines in append order and clears the
// buffer.
func (b *LogBuffer) Drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == 0 {
		return nil
	}
	out := b.lines
	b.lines = nil
	return out
}

// Len reports the number of buffered lines.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}
