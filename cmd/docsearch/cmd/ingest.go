package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Add files to the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			failed := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed++
					continue
				}
				result, err := a.pipeline.Ingest(cmd.Context(), &ingestion.IngestRequest{
					Filename:    filepath.Base(path),
					ContentType: mime.TypeByExtension(filepath.Ext(path)),
					Data:        data,
				})
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s)\n", path, apperrors.Message(err), apperrors.Code(err))
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d chunks\n", result.ID, result.Name, result.Chunks)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}
