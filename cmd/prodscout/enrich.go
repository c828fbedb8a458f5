package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newEnrichCmd(state *cliState) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "enrich <website>",
		Short: "Run deep research on a product website",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			website := strings.TrimSpace(args[0])
			result, err := newEnricher(state.cfg, state.logger).Fetch(cmd.Context(), website)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			color.New(color.FgCyan).Fprintf(out, "%s\n\n", result.URL)
			fmt.Fprintln(out, result.Output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the result as JSON")
	return cmd
}
