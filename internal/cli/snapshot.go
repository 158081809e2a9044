package cli

import (
	"fmt"

	job "github.com/maheshrc27/walk-gallery/internal/jobs"
	"github.com/maheshrc27/walk-gallery/internal/poem"
	"github.com/maheshrc27/walk-gallery/internal/repository"
	"github.com/maheshrc27/walk-gallery/internal/service"
	"github.com/spf13/cobra"
)

type SnapshotOptions struct {
	*RootOptions
	Out string
}

func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export the gallery as a static HTML page",
		Long: `Render every post and the cached poem, if any, into one HTML page.

No poem is generated; only one already stored for the current set of words
is included. Use --out - to write to stdout.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			// Peek only, so the gate never needs a generator.
			gate := poem.NewGate(poem.NewMemoizer(repository.NewPoemRepository(db)), nil, nil, 0)
			snapshots := service.NewSnapshotService(repository.NewPostRepository(db), gate)

			if opts.Out == "-" {
				return snapshots.Render(cmd.Context(), cmd.OutOrStdout())
			}
			if err := job.WriteSnapshotFile(cmd.Context(), snapshots, opts.Out); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.Out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "public/gallery.html", "output file")
	return cmd
}
