package generate

import (
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFrames_AllPatterns(t *testing.T) {
	patterns := []string{PatternSteady, PatternBurst, PatternRamp}

	for _, p := range patterns {
		t.Run(p, func(t *testing.T) {
			frames, err := Frames(&Options{
				Frames:      64,
				Duration:    2 * time.Second,
				Pattern:     p,
				Start:       start,
				Seed:        7,
				SpokeLength: 32,
			})
			if err != nil {
				t.Fatalf("Frames() error = %v", err)
			}
			if len(frames) != 64 {
				t.Fatalf("len(frames) = %d, want 64", len(frames))
			}
			for i, f := range frames {
				if len(f.Data) != 34 {
					t.Fatalf("frame %d payload = %d bytes, want 34", i, len(f.Data))
				}
				if i > 0 && f.TimestampMs < frames[i-1].TimestampMs {
					t.Fatalf("frame %d goes back in time", i)
				}
				if f.TimestampMs < start.UnixMilli() || f.TimestampMs > start.Add(2*time.Second).UnixMilli() {
					t.Fatalf("frame %d at %d is outside the duration", i, f.TimestampMs)
				}
			}
		})
	}
}

func TestFrames_UnknownPatternFallsBackToSteady(t *testing.T) {
	frames, err := Frames(&Options{
		Frames:   10,
		Duration: 10 * time.Second,
		Pattern:  "not-a-pattern",
		Start:    start,
		Seed:     1,
	})
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}

	// Steady pattern uses a fixed interval.
	if got := frames[1].TimestampMs - frames[0].TimestampMs; got != 1000 {
		t.Fatalf("interval = %dms, want 1000", got)
	}
}

func TestFrames_RampGetsDenser(t *testing.T) {
	frames, err := Frames(&Options{Frames: 100, Duration: 10 * time.Second, Pattern: PatternRamp, Start: start, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	first := frames[1].TimestampMs - frames[0].TimestampMs
	last := frames[99].TimestampMs - frames[98].TimestampMs
	if last >= first {
		t.Errorf("last gap %dms should be shorter than first gap %dms", last, first)
	}
}

func TestFrames_StateDeltas(t *testing.T) {
	frames, err := Frames(&Options{Frames: 10, Duration: time.Second, Start: start, Seed: 1, StateEvery: 4})
	if err != nil {
		t.Fatal(err)
	}
	for i, f := range frames {
		want := i > 0 && i%4 == 0
		if f.HasStateDelta() != want {
			t.Errorf("frame %d HasStateDelta = %v, want %v", i, f.HasStateDelta(), want)
		}
	}
}

func TestFrames_InvalidOptions(t *testing.T) {
	for name, opts := range map[string]*Options{
		"nil":             nil,
		"zero frames":     {Frames: 0, Duration: time.Second},
		"zero duration":   {Frames: 1, Duration: 0},
		"negative length": {Frames: 1, Duration: time.Second, SpokeLength: -1},
	} {
		if _, err := Frames(opts); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRecording_Decodes(t *testing.T) {
	opts := DefaultOptions()
	opts.Frames = 300
	opts.Start = start
	opts.Seed = 3
	opts.PixelDepth = 1

	buf, err := Recording(&opts)
	if err != nil {
		t.Fatalf("Recording() error = %v", err)
	}
	rec, err := recording.Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if rec.FrameCount() != 300 {
		t.Errorf("FrameCount() = %d, want 300", rec.FrameCount())
	}
	if rec.Header.SpokesPerRevolution != opts.Spokes || rec.Header.StartTimeMs != start.UnixMilli() {
		t.Errorf("header = %+v", rec.Header)
	}
	if rec.Capabilities.String("model", "") != "synthetic" {
		t.Errorf("capabilities = %v", rec.Capabilities)
	}
	if rec.InitialState.Int("range", 0) != int64(Ranges[0]) {
		t.Errorf("initial state = %v", rec.InitialState)
	}
	if len(rec.Index) != 2 {
		t.Errorf("index entries = %d, want 2", len(rec.Index))
	}
}

func TestRecording_NilOptions(t *testing.T) {
	if _, err := Recording(nil); err == nil {
		t.Fatal("expected error for nil options")
	}
}
