package main

import (
	"github.com/spf13/cobra"

	"github.com/pevans/trendstoday/newsletter"
)

func newSubscribersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage newsletter subscribers",
	}
	cmd.AddCommand(newSubscribersListCmd(a))
	return cmd
}

func newSubscribersListCmd(a *app) *cobra.Command {
	var (
		source     string
		activeOnly bool
		limit      int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscribers, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.subscriberStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var filter newsletter.Filter
			if source != "" {
				filter.Source = &source
			}
			if activeOnly {
				filter.Active = &activeOnly
			}
			filter.Limit = limit

			subs, err := store.List(filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, map[string]any{"subscribers": subs, "total": len(subs)})
			}
			printSubscriberTable(out, subs)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "only subscribers from this source")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "hide unsubscribed addresses")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
