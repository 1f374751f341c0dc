// Package sink abstracts the receiver's one assumed contract with the
// audio output device: a blocking write of an interleaved PCM16 frame of
// a fixed sample count (spec §1 Out of scope, §4.5 Player). This package
// is the concrete shape of that out-of-scope driver boundary.
package sink

// Format describes the audio format learned from the first valid packet
// (spec §4.7 lazy audio init).
type Format struct {
	SampleRate        int
	Channels          int
	SamplesPerChannel int
}

// Sink is the output device contract: Open once the format is known,
// Write blocking frames of exactly SamplesPerChannel*Channels int16
// samples, Close to release the device.
type Sink interface {
	Open(f Format) error
	Write(pcm []int16) error
	Close() error
}
