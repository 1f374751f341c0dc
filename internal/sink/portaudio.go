package sink

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio plays PCM16 frames through the default output device via
// github.com/gordonklaus/portaudio, following the teacher's
// OpenDefaultStream/Start/Write/Stop/Close sequence but sizing the
// stream from the format learned at lazy audio init instead of
// build-time constants.
type PortAudio struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
	format Format

	initialized bool
}

// NewPortAudio returns an unopened PortAudio sink. Open must be called
// once the session has learned its audio format from the wire.
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

// Open initializes the PortAudio runtime (idempotent across sessions in
// the same process is not assumed; callers own one PortAudio per
// session) and opens a default output stream sized to f.
func (p *PortAudio) Open(f Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("sink: portaudio initialize: %w", err)
	}
	p.initialized = true

	p.buf = make([]int16, f.SamplesPerChannel*f.Channels)
	stream, err := portaudio.OpenDefaultStream(0, f.Channels, float64(f.SampleRate), f.SamplesPerChannel, p.buf)
	if err != nil {
		portaudio.Terminate()
		p.initialized = false
		return fmt.Errorf("sink: open default stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		p.initialized = false
		return fmt.Errorf("sink: start stream: %w", err)
	}

	p.stream = stream
	p.format = f
	return nil
}

// Write blocks until the frame has been written to the output device.
// This write is the receiver's pacing mechanism (spec §4.5).
func (p *PortAudio) Write(pcm []int16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return fmt.Errorf("sink: write before open")
	}
	copy(p.buf, pcm)
	return p.stream.Write()
}

// Close stops and releases the stream and terminates PortAudio.
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.stream != nil {
		if err := p.stream.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := p.stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.stream = nil
	}
	if p.initialized {
		portaudio.Terminate()
		p.initialized = false
	}
	return firstErr
}

var _ Sink = (*PortAudio)(nil)
