package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pevans/trendstoday/content"
	"github.com/pevans/trendstoday/newsletter"
	"github.com/pevans/trendstoday/pagination"
	"github.com/pevans/trendstoday/scanner"
)

// printJSON prints v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// shorten truncates s to n runes, marking the cut with "...".
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printPostTable prints one page of posts in human-readable form.
func printPostTable(w io.Writer, res pagination.Result[content.Post]) {
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No posts to display.")
		return
	}

	info := res.Info
	first := (info.CurrentPage-1)*info.PageSize + 1
	fmt.Fprintf(w, "Showing %d-%d of %d posts (page %d of %d)\n\n",
		first, first+len(res.Items)-1, info.TotalItems, info.CurrentPage, info.TotalPages)

	for _, p := range res.Items {
		marker := " "
		if p.Featured {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\n", marker, shorten(p.Title, 70))
		fmt.Fprintf(w, "   %s | %s | Published: %s\n",
			content.CategoryTitle(p.Category), p.Author, p.PublishedAt.Format("2006-01-02 15:04"))
		if p.Description != "" {
			fmt.Fprintf(w, "   %s\n", shorten(p.Description, 150))
		}
		fmt.Fprintf(w, "   Slug: %s\n\n", p.Slug)
	}
}

// printSubscriberTable prints subscribers one per line.
func printSubscriberTable(w io.Writer, subs []newsletter.Subscriber) {
	if len(subs) == 0 {
		fmt.Fprintln(w, "No subscribers to display.")
		return
	}

	fmt.Fprintf(w, "%d subscriber(s)\n\n", len(subs))
	for _, s := range subs {
		status := "active"
		if !s.Active() {
			status = "unsubscribed"
		} else if !s.Confirmed {
			status = "unconfirmed"
		}
		fmt.Fprintf(w, "%-40s %-12s %-14s %s\n", s.Email, s.Source, status, s.SubscribedAt.Format("2006-01-02"))
	}
}

// printOpportunities prints the top n scanner results.
func printOpportunities(w io.Writer, opps []scanner.Opportunity, n int) {
	if len(opps) == 0 {
		fmt.Fprintln(w, "No opportunities found.")
		return
	}

	fmt.Fprintf(w, "%d opportunities saved\n\n", len(opps))
	for i, o := range opps[:min(n, len(opps))] {
		fmt.Fprintf(w, "%2d. [%d] %s\n", i+1, o.Potential, shorten(o.Title, 70))
		fmt.Fprintf(w, "    %s | %s\n", o.Source, o.Link)
	}
}
