// Command audiogen is a synthetic test sender: it speaks the same
// framed wire protocol the daemon listens for, generating a fixed-tone
// PCM16 stream at a chosen cadence, with optional simulated loss and
// reordering for exercising the jitter buffer and adaptive controller.
// It supersedes the teacher's file-streaming mock-client for this
// repo's wire format.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/rjim/audioreceiver/internal/codec"
)

func main() {
	addr := pflag.StringP("addr", "a", "127.0.0.1:9876", "Destination host:port.")
	transport := pflag.StringP("transport", "t", "udp", `Transport: "udp" or "tcp".`)
	sampleRate := pflag.Uint32P("sample-rate", "r", 48000, "Samples per second.")
	channels := pflag.Uint8P("channels", "c", 1, "Channel count.")
	frameMS := pflag.Float64P("frame-ms", "f", 5, "Frame duration in milliseconds.")
	count := pflag.IntP("count", "n", 400, "Number of frames to send.")
	lossPct := pflag.Float64("loss-pct", 0, "Percentage of frames to drop before sending (0-100).")
	reorderPct := pflag.Float64("reorder-pct", 0, "Percentage of frames sent out of order by swapping with the next frame.")
	toneHz := pflag.Float64P("tone-hz", "z", 440, "Sine tone frequency in Hz; 0 for silence.")
	help := pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: audiogen [options]")
		fmt.Fprintln(os.Stderr, "Streams a synthetic framed PCM16 tone to an audioreceiverd instance.")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	samplesPerChannel := uint16(float64(*sampleRate) * *frameMS / 1000)
	if samplesPerChannel == 0 {
		samplesPerChannel = 1
	}

	frames := make([][]byte, *count)
	for seq := 0; seq < *count; seq++ {
		frames[seq] = codec.Encode(codec.Frame{
			SampleRate:        *sampleRate,
			Channels:          *channels,
			Seq:               uint32(seq),
			SendTimeUS:        0, // stamped just before send
			SamplesPerChannel: samplesPerChannel,
			Payload:           tone(*toneHz, float64(*sampleRate), int(samplesPerChannel), int(*channels), seq),
		})
	}

	frames = applyLoss(frames, *lossPct)
	frames = applyReorder(frames, *reorderPct)

	sendFn, closeFn, err := dialer(*transport, *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audiogen: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()

	frameInterval := time.Duration(*frameMS * float64(time.Millisecond))
	for _, wire := range frames {
		stampSendTime(wire)
		if err := sendFn(wire); err != nil {
			fmt.Fprintf(os.Stderr, "audiogen: send error: %v\n", err)
			return
		}
		time.Sleep(frameInterval)
	}
	fmt.Printf("audiogen: sent %d frames to %s over %s\n", len(frames), *addr, *transport)
}

// tone renders one frame of an interleaved sine wave (or silence).
func tone(hz, sampleRate float64, samplesPerChannel, channels, seq int) []int16 {
	out := make([]int16, samplesPerChannel*channels)
	if hz <= 0 {
		return out
	}
	startSample := seq * samplesPerChannel
	for i := 0; i < samplesPerChannel; i++ {
		t := float64(startSample+i) / sampleRate
		v := int16(math.Sin(2*math.Pi*hz*t) * 8000)
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = v
		}
	}
	return out
}

// stampSendTime overwrites the encoded frame's send_time_us field
// in-place with the current wall clock, matching codec.HeaderSize's
// layout (send_time_us is the third fixed-width header field).
func stampSendTime(wire []byte) {
	binary.LittleEndian.PutUint64(wire[16:24], uint64(time.Now().UnixMicro()))
}

func applyLoss(frames [][]byte, pct float64) [][]byte {
	if pct <= 0 {
		return frames
	}
	kept := frames[:0]
	for _, f := range frames {
		if rand.Float64()*100 < pct {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func applyReorder(frames [][]byte, pct float64) [][]byte {
	if pct <= 0 {
		return frames
	}
	for i := 0; i+1 < len(frames); i++ {
		if rand.Float64()*100 < pct {
			frames[i], frames[i+1] = frames[i+1], frames[i]
		}
	}
	return frames
}

func dialer(transport, addr string) (send func([]byte) error, closeFn func() error, err error) {
	switch transport {
	case "tcp":
		conn, dialErr := net.Dial("tcp", addr)
		if dialErr != nil {
			return nil, nil, dialErr
		}
		send = func(payload []byte) error {
			lenBuf := make([]byte, 2)
			binary.LittleEndian.PutUint16(lenBuf, uint16(len(payload)))
			if _, err := conn.Write(lenBuf); err != nil {
				return err
			}
			_, err := conn.Write(payload)
			return err
		}
		return send, conn.Close, nil
	default:
		conn, dialErr := net.Dial("udp", addr)
		if dialErr != nil {
			return nil, nil, dialErr
		}
		send = func(payload []byte) error {
			_, err := conn.Write(payload)
			return err
		}
		return send, conn.Close, nil
	}
}
