package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
)

// frameStats summarises the frame region of a recording.
type frameStats struct {
	Count        int   `json:"count"`
	WithState    int   `json:"with_state_delta"`
	PayloadBytes int64 `json:"payload_bytes"`
	MinGapMs     int64 `json:"min_gap_ms"`
	MaxGapMs     int64 `json:"max_gap_ms"`
	OutOfOrder   int   `json:"out_of_order"`
}

type frameRow struct {
	Index       int   `json:"index"`
	TimestampMs int64 `json:"timestamp_ms"`
	OffsetMs    int64 `json:"offset_ms"`
	Flags       byte  `json:"flags"`
	DataBytes   int   `json:"data_bytes"`
	StateBytes  int   `json:"state_delta_bytes"`
}

type inspectReport struct {
	File string `json:"file"`
	*recording.Recording
	Stats  frameStats `json:"frame_stats"`
	Frames []frameRow `json:"frames"`
}

func newInspectCmd() *cobra.Command {
	var (
		frames     int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Decode a recording and print its structure",
		Long: `Decodes a recording (plain or .gz) and prints the header, footer,
capability and state blobs, frame statistics and the first frames.

A recording that fails to decode reports the error kind and offset.`,
		Example: `  radarplay inspect harbour.mrr
  radarplay inspect harbour.mrr.gz --frames 20
  radarplay inspect harbour.mrr --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			rec, err := recording.ReadFile(file)
			if err != nil {
				return err
			}

			report := inspectReport{
				File:      file,
				Recording: rec,
				Stats:     summarizeFrames(rec),
				Frames:    frameRows(rec, frames),
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(out, report)
			return nil
		},
	}

	cmd.Flags().IntVar(&frames, "frames", 10, "number of leading frames to list")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")

	return cmd
}

func summarizeFrames(rec *recording.Recording) frameStats {
	st := frameStats{Count: rec.FrameCount()}
	for i, f := range rec.Frames {
		st.PayloadBytes += int64(len(f.Data))
		if f.HasStateDelta() {
			st.WithState++
			st.PayloadBytes += int64(len(f.StateDelta))
		}
		if i == 0 {
			continue
		}
		gap := f.TimestampMs - rec.Frames[i-1].TimestampMs
		if gap < 0 {
			st.OutOfOrder++
			continue
		}
		if i == 1 || gap < st.MinGapMs {
			st.MinGapMs = gap
		}
		if gap > st.MaxGapMs {
			st.MaxGapMs = gap
		}
	}
	return st
}

func frameRows(rec *recording.Recording, limit int) []frameRow {
	n := min(max(limit, 0), rec.FrameCount())
	rows := make([]frameRow, 0, n)
	first := rec.FirstTimestampMs()
	for i, f := range rec.Frames[:n] {
		rows = append(rows, frameRow{
			Index:       i,
			TimestampMs: f.TimestampMs,
			OffsetMs:    f.TimestampMs - first,
			Flags:       f.Flags,
			DataBytes:   len(f.Data),
			StateBytes:  len(f.StateDelta),
		})
	}
	return rows
}

func printReport(w io.Writer, r inspectReport) {
	h, f := r.Header, r.Footer
	fmt.Fprintf(w, "%s\n\n", r.File)

	fmt.Fprintln(w, renderTable(
		[]string{"Header", "Value"},
		[][]string{
			{"version", strconv.Itoa(int(h.Version))},
			{"brand", strconv.FormatUint(uint64(h.Brand), 10)},
			{"spokes/revolution", strconv.FormatUint(uint64(h.SpokesPerRevolution), 10)},
			{"max spoke length", strconv.FormatUint(uint64(h.MaxSpokeLength), 10)},
			{"pixel depth", strconv.FormatUint(uint64(h.PixelDepth), 10)},
			{"start time", h.StartTime().Format(time.RFC3339Nano)},
			{"frames offset", strconv.FormatUint(h.FramesOffset, 10)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))

	fmt.Fprintln(w, renderTable(
		[]string{"Footer", "Value"},
		[][]string{
			{"frame count", strconv.FormatUint(uint64(f.FrameCount), 10)},
			{"duration", f.Duration().String()},
			{"index entries", strconv.FormatUint(uint64(f.IndexCount), 10)},
			{"index offset", strconv.FormatUint(f.IndexOffset, 10)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))

	fmt.Fprintln(w, renderTable(
		[]string{"Blob", "Bytes", "Keys"},
		[][]string{
			{"capabilities", strconv.FormatUint(uint64(h.CapabilitiesLength), 10), strings.Join(r.Capabilities.Keys(), ", ")},
			{"initial state", strconv.FormatUint(uint64(h.InitialStateLength), 10), strings.Join(r.InitialState.Keys(), ", ")},
		},
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	))

	st := r.Stats
	fmt.Fprintln(w, renderTable(
		[]string{"Frames", "Value"},
		[][]string{
			{"decoded", strconv.Itoa(st.Count)},
			{"with state delta", strconv.Itoa(st.WithState)},
			{"payload", humanize.Bytes(uint64(st.PayloadBytes))},
			{"min gap", fmt.Sprintf("%dms", st.MinGapMs)},
			{"max gap", fmt.Sprintf("%dms", st.MaxGapMs)},
			{"out of order", strconv.Itoa(st.OutOfOrder)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))

	if len(r.Frames) == 0 {
		return
	}
	rows := make([][]string, 0, len(r.Frames))
	for _, fr := range r.Frames {
		rows = append(rows, []string{
			strconv.Itoa(fr.Index),
			strconv.FormatInt(fr.TimestampMs, 10),
			fmt.Sprintf("+%dms", fr.OffsetMs),
			fmt.Sprintf("0x%02x", fr.Flags),
			strconv.Itoa(fr.DataBytes),
			strconv.Itoa(fr.StateBytes),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Timestamp", "Offset", "Flags", "Data", "State"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight, alignRight},
	))
}
