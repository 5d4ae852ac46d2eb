package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root radarplay command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "radarplay",
		Short: "Replay recorded radar sessions as a live sensor",
		Long: `radarplay decodes MRR1 radar recordings and plays them back with the
original frame timing, publishing spokes to WebSocket subscribers and,
optionally, to Redis.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newPlayCmd(),
		newInspectCmd(),
		newListCmd(),
		newGenerateCmd(),
	)

	return root
}
