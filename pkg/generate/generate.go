// Package generate builds synthetic radar recordings for demos and tests.
package generate

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
)

const (
	// PatternSteady spaces frames evenly, like a radar at constant rotation.
	PatternSteady = "steady"
	// PatternBurst clusters frames into bursts with quiet gaps, like a
	// capture that dropped packets.
	PatternBurst = "burst"
	// PatternRamp packs frames denser over time.
	PatternRamp = "ramp"
)

// Ranges is the range ladder, in metres, that state deltas step through.
var Ranges = []int{463, 926, 1852, 3704, 7408}

// Options controls how a synthetic recording is generated.
type Options struct {
	Frames      int
	Duration    time.Duration
	Pattern     string
	Start       time.Time
	Seed        int64
	Spokes      uint32
	SpokeLength int
	PixelDepth  uint32
	Brand       uint32
	StateEvery  int // frames between state deltas; 0 writes none
	IndexEvery  int // frames between index entries; 0 writes no index
}

// DefaultOptions returns defaults aligned with the CLI.
func DefaultOptions() Options {
	return Options{
		Frames:      2048,
		Duration:    2500 * time.Millisecond,
		Pattern:     PatternSteady,
		Spokes:      2048,
		SpokeLength: 512,
		PixelDepth:  4,
		StateEvery:  512,
		IndexEvery:  256,
	}
}

// Recording generates and encodes a complete recording.
func Recording(opts *Options) ([]byte, error) {
	if opts == nil {
		return nil, fmt.Errorf("options are required")
	}
	o := withDefaults(*opts)
	frames, err := Frames(&o)
	if err != nil {
		return nil, err
	}

	h := recording.Header{
		Brand:               o.Brand,
		SpokesPerRevolution: o.Spokes,
		MaxSpokeLength:      uint32(o.SpokeLength),
		PixelDepth:          o.PixelDepth,
		StartTimeMs:         o.Start.UnixMilli(),
	}
	caps := recording.Document{
		"model":                 "synthetic",
		"spokes_per_revolution": o.Spokes,
		"max_spoke_length":      o.SpokeLength,
		"pixel_depth":           o.PixelDepth,
		"ranges":                Ranges,
		"controls":              []string{"range", "gain"},
	}
	state := recording.Document{
		"range": Ranges[0],
		"gain":  50,
		"power": "transmit",
	}
	return recording.Encode(h, caps, state, frames, recording.EncodeOptions{IndexEvery: o.IndexEvery})
}

// Frames generates the frame sequence, sorted by timestamp.
func Frames(opts *Options) ([]recording.Frame, error) {
	if opts == nil {
		return nil, fmt.Errorf("options are required")
	}
	if opts.Frames <= 0 {
		return nil, fmt.Errorf("frames must be positive, got %d", opts.Frames)
	}
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", opts.Duration)
	}
	if opts.SpokeLength < 0 {
		return nil, fmt.Errorf("spoke length must not be negative, got %d", opts.SpokeLength)
	}
	o := withDefaults(*opts)

	rng := rand.New(rand.NewSource(o.Seed))
	var offsets []time.Duration
	switch o.Pattern {
	case PatternBurst:
		offsets = burstOffsets(rng, o.Frames, o.Duration)
	case PatternRamp:
		offsets = rampOffsets(o.Frames, o.Duration)
	default: // steady and unknown patterns default to steady behavior.
		offsets = steadyOffsets(o.Frames, o.Duration)
	}

	base := o.Start.UnixMilli()
	frames := make([]recording.Frame, len(offsets))
	for i, off := range offsets {
		f := recording.Frame{
			TimestampMs: base + off.Milliseconds(),
			Data:        spoke(rng, uint16(uint32(i)%o.Spokes), o.SpokeLength, o.PixelDepth),
		}
		if o.StateEvery > 0 && i > 0 && i%o.StateEvery == 0 {
			delta, _ := json.Marshal(map[string]int{"range": Ranges[(i/o.StateEvery)%len(Ranges)]})
			f.Flags |= recording.FrameHasStateDelta
			f.StateDelta = delta
		}
		frames[i] = f
	}
	return frames, nil
}

func withDefaults(o Options) Options {
	if o.Pattern == "" {
		o.Pattern = PatternSteady
	}
	if o.Start.IsZero() {
		o.Start = time.Now().Truncate(time.Second)
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Spokes == 0 {
		o.Spokes = 2048
	}
	if o.PixelDepth == 0 {
		o.PixelDepth = 4
	}
	return o
}

// spoke builds one payload: a little-endian angle followed by length
// pixel values of background noise with a single return.
func spoke(rng *rand.Rand, angle uint16, length int, depth uint32) []byte {
	buf := make([]byte, 2+length)
	binary.LittleEndian.PutUint16(buf, angle)
	if depth > 8 {
		depth = 8
	}
	peak := 1<<depth - 1
	noise := max(1, (peak+1)/4)
	target := length / 3
	for i := 2; i < len(buf); i++ {
		v := rng.Intn(noise)
		if r := i - 2; r >= target && r <= target+length/20 {
			v = peak
		}
		buf[i] = byte(v)
	}
	return buf
}

func steadyOffsets(count int, dur time.Duration) []time.Duration {
	interval := dur / time.Duration(count)
	out := make([]time.Duration, count)
	for i := range out {
		out[i] = time.Duration(i) * interval
	}
	return out
}

func burstOffsets(rng *rand.Rand, count int, dur time.Duration) []time.Duration {
	out := make([]time.Duration, 0, count)
	numBursts := 4
	burstSize := count / numBursts
	burstGap := dur / time.Duration(numBursts)
	burstSpan := burstGap / 4

	for b := 0; b < numBursts; b++ {
		burstStart := time.Duration(b) * burstGap
		for i := 0; i < burstSize; i++ {
			out = append(out, burstStart+time.Duration(rng.Int63n(int64(burstSpan)+1)))
		}
	}
	for len(out) < count {
		out = append(out, time.Duration(rng.Int63n(int64(dur))))
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func rampOffsets(count int, dur time.Duration) []time.Duration {
	out := make([]time.Duration, count)
	for i := range out {
		// Quadratic spacing: gaps shrink as i grows.
		frac := 1 - float64(count-i)/float64(count)
		out[i] = time.Duration((2*frac - frac*frac) * float64(dur))
	}
	return out
}
