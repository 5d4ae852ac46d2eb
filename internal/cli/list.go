package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/radarplay/internal/library"
)

func newListCmd() *cobra.Command {
	var (
		opts       runtimeOptions
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recordings in the library directory",
		Example: `  radarplay list
  radarplay list --dir ./recordings --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			lib, err := library.Open(cfg.Library.Dir)
			if err != nil {
				return err
			}
			entries, err := lib.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No recordings in %s\n", lib.Dir())
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				gz := ""
				if e.Compressed {
					gz = "gzip"
				}
				rows = append(rows, []string{e.Name, humanize.Bytes(uint64(e.Size)), humanize.Time(e.ModTime), gz})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Size", "Modified", "Encoding"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	opts.addConfigFlags(cmd)
	opts.addLibraryFlags(cmd)
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")

	return cmd
}
