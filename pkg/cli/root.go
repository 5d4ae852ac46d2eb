package cli

import (
	internalcli "github.com/SmitUplenchwar2687/radarplay/internal/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the public radarplay root command for embedding.
func NewRootCmd() *cobra.Command {
	return internalcli.NewRootCmd()
}
