package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pevans/trendstoday/content"
	"github.com/pevans/trendstoday/pagination"
)

func newPostsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Inspect the posts in the content directory",
	}
	cmd.AddCommand(newPostsListCmd(a), newPostsShowCmd(a))
	return cmd
}

func newPostsListCmd(a *app) *cobra.Command {
	var (
		category string
		tag      string
		page     int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts newest first, one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.loader().LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, re := range result.Errors {
				a.log.Warn("skipped content file", "file", re.Filename, "error", re.Err)
			}

			posts := result.Posts
			if category != "" {
				posts = content.FilterByCategory(posts, category)
			}
			if tag != "" {
				posts = content.FilterByTag(posts, tag)
			}

			res, err := pagination.Paginate(posts, page, a.cfg.Content.PageSize)
			if err != nil {
				return err
			}
			if !res.Info.InRange() {
				return fmt.Errorf("page %d not found (%d pages)", page, res.Info.TotalPages)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, res)
			}
			printPostTable(out, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only posts in this category")
	cmd.Flags().StringVar(&tag, "tag", "", "only posts with this tag")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newPostsShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, err := a.loader().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if post == nil {
				return fmt.Errorf("post not found: %s", args[0])
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, post)
			}
			printPost(out, post)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// printPost prints a post's metadata followed by its body.
func printPost(w io.Writer, p *content.Post) {
	fmt.Fprintln(w, p.Title)
	if p.Subtitle != "" {
		fmt.Fprintln(w, p.Subtitle)
	}
	fmt.Fprintf(w, "   %s | %s | %s | %d min read\n",
		content.CategoryTitle(p.Category), p.Author, p.PublishedAt.Format("2006-01-02"), p.ReadingTime)
	if len(p.Tags) > 0 {
		fmt.Fprintf(w, "   Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	fmt.Fprintf(w, "   Slug: %s\n\n", p.Slug)
	fmt.Fprintln(w, strings.TrimSpace(p.Content))
}
