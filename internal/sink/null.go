package sink

import "sync"

// Null is a no-op sink for headless operation and tests: it accepts any
// format, records every write, and never blocks. Grounded on the
// teacher's headless mock-client counterpart to the real sender.
type Null struct {
	mu      sync.Mutex
	format  Format
	writes  int
	lastPCM []int16
}

// NewNull returns a ready-to-use Null sink.
func NewNull() *Null {
	return &Null{}
}

func (n *Null) Open(f Format) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.format = f
	return nil
}

func (n *Null) Write(pcm []int16) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.writes++
	n.lastPCM = append(n.lastPCM[:0], pcm...)
	return nil
}

func (n *Null) Close() error {
	return nil
}

// Writes returns the number of frames written so far, for test assertions.
func (n *Null) Writes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.writes
}

// Format returns the format passed to Open.
func (n *Null) Format() Format {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.format
}

var _ Sink = (*Null)(nil)
