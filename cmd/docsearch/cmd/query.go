package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		topK       int
		docs       []string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "query <message>",
		Short: "Ask a question against the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.executor.Execute(cmd.Context(), &executor.Request{
				Message: strings.Join(args, " "),
				TopK:    topK,
				Docs:    docs,
			})
			if err != nil {
				return fmt.Errorf("%s (%s)", apperrors.Message(err), apperrors.Code(err))
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			if result.Outcome != executor.OutcomeAnswered {
				fmt.Fprintln(out, result.Answer)
				return nil
			}
			for i, s := range result.Sources {
				fmt.Fprintf(out, "[%d] score=%.4f doc=%s\n%s\n\n", i+1, s.Score, s.DocID, s.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of passages to return (server default when 0)")
	cmd.Flags().StringSliceVar(&docs, "doc", nil, "restrict to these document ids (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the raw result as JSON")
	return cmd
}
