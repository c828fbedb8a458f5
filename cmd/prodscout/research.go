package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Keyring-Network/prodscout/internal/product"
	"github.com/Keyring-Network/prodscout/internal/research"
)

func newResearchCmd(state *cliState) *cobra.Command {
	var keywordsFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "research <topic>",
		Short: "Research products for a topic",
		Long: `Generate directory keywords for the topic, search each keyword and print
the merged products sorted by votes.

With --keywords the generation step is skipped and the given keyword=weight
pairs are searched instead. A keyword without a weight uses the default.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(strings.Join(args, " "))
			req := research.Request{Topic: topic}
			if cmd.Flags().Changed("keywords") {
				adjusted, err := product.ParseKeywordFlag(keywordsFlag)
				if err != nil {
					return err
				}
				req.AdjustedKeywords = adjusted
				req.SkipGeneration = true
			}

			orchestrator, err := newResearcher(state.cfg, state.logger)
			if err != nil {
				return err
			}
			result, err := orchestrator.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printResearch(out, cmd.ErrOrStderr(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&keywordsFlag, "keywords", "", "comma-separated keyword=weight pairs; skips keyword generation")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the result as JSON")
	return cmd
}

func printResearch(out io.Writer, errOut io.Writer, result research.Result) {
	products := append([]product.Product(nil), result.Products...)
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].VotesCount > products[j].VotesCount
	})

	table := newTable(out, []string{"Name", "Votes", "Tagline", "Website"})
	for _, p := range products {
		website := p.Website
		if website == "" {
			website = p.URL
		}
		table.AddRow([]string{p.Name, strconv.Itoa(p.VotesCount), p.Tagline, website})
	}
	table.Render()

	fmt.Fprintf(out, "\n%d products from keywords: %s\n", len(products), strings.Join(result.Keywords, ", "))
	for _, status := range result.KeywordStatus {
		if status.Failed {
			color.New(color.FgYellow).Fprintf(errOut, "⚠ search for %q failed: %s\n", status.Keyword, status.Error)
		}
	}
}
