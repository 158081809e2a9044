package cli

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	config "github.com/maheshrc27/walk-gallery/configs"
	"github.com/maheshrc27/walk-gallery/internal/database"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DatabaseURL string
	Timeout     time.Duration
	Format      string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "galleryctl",
		Short: "Administer the walk gallery",
		Long:  "Administrative commands for the walk gallery: schema, posts and static exports.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.DatabaseURL == "" {
				_ = godotenv.Load()
				cfg, err := config.LoadConfig()
				if err != nil {
					return err
				}
				opts.DatabaseURL = cfg.DatabaseURL
			}
			if opts.DatabaseURL == "" {
				return fmt.Errorf("%w: DATABASE_URL", config.ErrMissingConfig)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "db", "", "database URL (defaults to DATABASE_URL)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "per-attempt database timeout")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPostsCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) open() (*database.Gateway, error) {
	db, err := database.Open(o.DatabaseURL, o.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
