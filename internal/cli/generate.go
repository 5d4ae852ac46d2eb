package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/radarplay/internal/config"
	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
	"github.com/SmitUplenchwar2687/radarplay/pkg/generate"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample recordings and config",
		Long: `Generates sample data for testing and experimentation.

Use "generate recording" to create a synthetic radar recording.
Use "generate config" to create an example config file.`,
	}

	cmd.AddCommand(newGenerateRecordingCmd(), newGenerateConfigCmd())
	return cmd
}

func newGenerateRecordingCmd() *cobra.Command {
	var (
		output string
		gz     bool
	)
	opts := generate.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "recording",
		Short: "Generate a synthetic radar recording",
		Long: `Creates a recording of synthetic spokes with configurable timing.

Patterns:
  steady    Evenly spaced frames, like a radar at constant rotation
  burst     Clusters of frames separated by quiet gaps
  ramp      Frames that get denser over time

Output ending in .gz, or --gzip, writes a compressed recording.`,
		Example: `  radarplay generate recording --output harbour.mrr
  radarplay generate recording --output burst.mrr.gz --pattern burst --frames 4096 --duration 10s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = "synthetic.mrr"
			}
			if gz && !recording.IsCompressed(output) {
				output += ".gz"
			}

			data, err := generate.Recording(&opts)
			if err != nil {
				return err
			}
			if recording.IsCompressed(output) {
				if data, err = recording.Compress(data); err != nil {
					return err
				}
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing recording: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d frames to %s (%s)\n", opts.Frames, output, humanize.Bytes(uint64(len(data))))
			fmt.Fprintf(out, "  Duration: %s\n", opts.Duration)
			fmt.Fprintf(out, "  Pattern:  %s\n", opts.Pattern)
			fmt.Fprintf(out, "  Spokes:   %d x %d\n", opts.Spokes, opts.SpokeLength)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "synthetic.mrr", "output file path")
	cmd.Flags().BoolVar(&gz, "gzip", false, "gzip the output")
	cmd.Flags().IntVar(&opts.Frames, "frames", opts.Frames, "number of frames to generate")
	cmd.Flags().DurationVar(&opts.Duration, "duration", opts.Duration, "time span between the first and last frame")
	cmd.Flags().StringVar(&opts.Pattern, "pattern", opts.Pattern, "frame timing pattern (steady, burst, ramp)")
	cmd.Flags().Uint32Var(&opts.Spokes, "spokes", opts.Spokes, "spokes per revolution")
	cmd.Flags().IntVar(&opts.SpokeLength, "spoke-length", opts.SpokeLength, "pixels per spoke")
	cmd.Flags().IntVar(&opts.StateEvery, "state-every", opts.StateEvery, "frames between state deltas (0 = none)")
	cmd.Flags().IntVar(&opts.IndexEvery, "index-every", opts.IndexEvery, "frames between index entries (0 = no index)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (0 = time based)")

	return cmd
}

func newGenerateConfigCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Generate an example config file",
		Long:    `Writes the default configuration as YAML, TOML or JSON, chosen by the output extension.`,
		Example: `  radarplay generate config --output radarplay.yaml
  radarplay generate config --output radarplay.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(output) == "" {
				output = "radarplay.yaml"
			}
			if err := config.WriteExample(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated example config at %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "radarplay.yaml", "output file path")
	return cmd
}
