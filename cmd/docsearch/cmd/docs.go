package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newDocsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.pipeline.Documents(cmd.Context())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no documents indexed")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCHUNKS\tUPLOADED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.ID, d.Name, d.ChunkCount, d.UploadedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}
