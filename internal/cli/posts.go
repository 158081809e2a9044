package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/maheshrc27/walk-gallery/internal/models"
	"github.com/maheshrc27/walk-gallery/internal/repository"
	"github.com/spf13/cobra"
)

func NewPostsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List or delete gallery posts",
	}
	cmd.AddCommand(newPostsListCommand(opts))
	cmd.AddCommand(newPostsDeleteCommand(opts))
	return cmd
}

func newPostsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List posts newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			posts, err := repository.NewPostRepository(db).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list posts: %w", err)
			}

			if opts.Format == "json" {
				if posts == nil {
					posts = []*models.Post{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(posts)
			}

			if len(posts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No posts.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATETIME\tWORD\tMEDIA")
			for _, p := range posts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.CreatedAtDisplay, p.Content.Word, mediaSummary(p.Content))
			}
			return w.Flush()
		},
	}
}

func newPostsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a post",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.NewPostRepository(db).Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete post %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func mediaSummary(c models.Content) string {
	var kinds []string
	for _, slot := range []models.Slot{models.SlotDrawing, models.SlotImage, models.SlotAudio} {
		if c.Media(slot) != nil {
			kinds = append(kinds, string(slot))
		}
	}
	if len(kinds) == 0 {
		return "-"
	}
	return strings.Join(kinds, ",")
}
