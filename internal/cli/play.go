package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/radarplay/internal/clock"
	"github.com/SmitUplenchwar2687/radarplay/internal/playback"
	"github.com/SmitUplenchwar2687/radarplay/internal/session"
)

const (
	pollInterval = 100 * time.Millisecond
	flushTimeout = 5 * time.Second
)

// playSummary reports what a headless playback delivered.
type playSummary struct {
	File        string         `json:"file"`
	ID          string         `json:"id"`
	Frames      int            `json:"frames"`
	DurationMs  int64          `json:"duration_ms"`
	Spokes      int            `json:"spokes_published"`
	StateDeltas int            `json:"state_deltas_published"`
	Bytes       int64          `json:"bytes_published"`
	SinkErrors  uint64         `json:"sink_errors"`
	Dropped     uint64         `json:"dropped"`
	FinalState  playback.State `json:"final_state"`
	WallClockMs int64          `json:"wall_clock_ms"`
	Instant     bool           `json:"instant"`
}

// countingPublisher tallies what the session publishes.
type countingPublisher struct {
	mu     sync.Mutex
	spokes int
	states int
	bytes  int64
}

func (c *countingPublisher) Publish(stream string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.HasSuffix(stream, ".state") {
		c.states++
	} else {
		c.spokes++
	}
	c.bytes += int64(len(payload))
	return nil
}

func newPlayCmd() *cobra.Command {
	var (
		opts       runtimeOptions
		instant    bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play a recording headlessly and report what was delivered",
		Long: `Decodes a recording and plays it through the scheduler without a server.

By default frames are delivered in real time with the recorded gaps.
--instant drives a virtual clock instead, so the whole recording plays
in a moment while the scheduler still sees the recorded timing.
Redis publishing is available with --redis.`,
		Example: `  radarplay play harbour.mrr
  radarplay play harbour.mrr.gz --instant --json
  radarplay play harbour.mrr --redis --redis-addr localhost`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			if instant && cfg.Playback.Looping {
				return fmt.Errorf("--instant cannot be combined with looping")
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			file := args[0]
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading recording: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			counter := &countingPublisher{}
			publishers := session.Fanout{counter}
			var registry session.Registry = session.NopRegistry
			bus, err := openBus(ctx, cfg)
			if err != nil {
				return err
			}
			if bus != nil {
				defer bus.Close()
				publishers = append(publishers, bus)
				registry = bus
			}

			var (
				clk     clock.Clock = clock.NewRealClock()
				virtual *clock.VirtualClock
			)
			if instant {
				virtual = clock.NewVirtualClock(time.Now().Truncate(time.Second))
				clk = virtual
			}

			sessions := session.NewManager(session.Options{
				Clock:     clk,
				Registry:  registry,
				Publisher: publishers,
				Playback:  playbackOptions(cfg, logger),
				Looping:   cfg.Playback.Looping,
				Logger:    logger,
				// A virtual clock has no timing to protect, so count
				// every frame rather than drop under load.
				BlockWhenFull: instant,
			})
			defer sessions.Close(context.Background())

			started := time.Now()
			loaded, err := sessions.Load(ctx, filepath.Base(file), data)
			if err != nil {
				return fmt.Errorf("loading %s: %w", file, err)
			}
			if err := sessions.Play(); err != nil {
				return err
			}

			if instant {
				// Every gap is at least the minimum delay, so this always
				// covers the whole recording.
				span := time.Duration(loaded.DurationMs)*time.Millisecond +
					time.Duration(loaded.FrameCount)*cfg.Playback.MinFrameDelay + time.Second
				virtual.Advance(span)
			} else if err := waitFinished(ctx, clk, sessions); err != nil {
				return err
			}

			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			if err := sessions.Flush(flushCtx); err != nil {
				logger.Warn("flushing published frames", "error", err)
			}

			st := sessions.Status()
			counter.mu.Lock()
			summary := playSummary{
				File:        file,
				ID:          loaded.ID,
				Frames:      loaded.FrameCount,
				DurationMs:  loaded.DurationMs,
				Spokes:      counter.spokes,
				StateDeltas: counter.states,
				Bytes:       counter.bytes,
				SinkErrors:  st.SinkErrors,
				Dropped:     st.Dropped,
				FinalState:  st.State,
				WallClockMs: time.Since(started).Milliseconds(),
				Instant:     instant,
			}
			counter.mu.Unlock()

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			fmt.Fprintf(out, "Played %s\n", file)
			fmt.Fprintf(out, "  Session:   %s\n", summary.ID)
			fmt.Fprintf(out, "  Frames:    %d\n", summary.Frames)
			fmt.Fprintf(out, "  Duration:  %s\n", time.Duration(summary.DurationMs)*time.Millisecond)
			fmt.Fprintf(out, "  Spokes:    %d (%s)\n", summary.Spokes, humanize.Bytes(uint64(summary.Bytes)))
			fmt.Fprintf(out, "  State:     %d deltas\n", summary.StateDeltas)
			fmt.Fprintf(out, "  Errors:    %d\n", summary.SinkErrors)
			fmt.Fprintf(out, "  Dropped:   %d\n", summary.Dropped)
			fmt.Fprintf(out, "  Final:     %s\n", summary.FinalState)
			return nil
		},
	}

	opts.addConfigFlags(cmd)
	opts.addPlaybackFlags(cmd)
	opts.addRedisFlags(cmd)
	cmd.Flags().BoolVar(&instant, "instant", false, "drive a virtual clock instead of waiting in real time")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output the summary as JSON")

	return cmd
}

// waitFinished blocks until playback finishes or ctx is cancelled. A
// cancelled ctx stops playback early and is not an error.
func waitFinished(ctx context.Context, clk clock.Clock, sessions *session.Manager) error {
	for {
		if st := sessions.Status(); st.State == playback.Finished || st.State == playback.Idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return sessions.Pause()
		case <-clk.After(pollInterval):
		}
	}
}
