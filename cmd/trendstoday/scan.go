package main

import (
	"github.com/spf13/cobra"

	"github.com/pevans/trendstoday/scanner"
)

func newScanCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the configured feeds for news opportunities",
		Long: `Fetch every configured RSS/Atom feed, keep the high-potential items and
merge them into news-opportunities.json in the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := scanner.New(scanner.Options{
				Feeds:   a.cfg.Scanner.Feeds,
				PerFeed: a.cfg.Scanner.PerFeed,
				Keep:    a.cfg.Scanner.Keep,
				DataDir: a.cfg.Data.Dir,
				Logger:  a.log,
			})
			opps, err := s.Run(cmd.Context())
			if err != nil {
				return err
			}
			printOpportunities(cmd.OutOrStdout(), opps, top)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 5, "number of opportunities to print")
	return cmd
}
