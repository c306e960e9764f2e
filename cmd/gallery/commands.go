package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/thumbnails"
)

const (
	commandCreate = "create-thumbnails"
	commandDelete = "delete-thumbnails"
)

type targetFlags struct {
	path  string
	quiet bool
	all   bool
}

func (f *targetFlags) register(cmd *cobra.Command, pathHelp, allHelp string) {
	cmd.Flags().StringVarP(&f.path, "path", "p", "", pathHelp)
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "suppress output")
	cmd.Flags().BoolVar(&f.all, "all", false, allHelp)
}

func (f *targetFlags) params(args []string) thumbnails.Params {
	return thumbnails.Params{Path: f.path, Users: args, All: f.all}
}

func newCreateCommand(configPath *string) *cobra.Command {
	var (
		flags      targetFlags
		regenerate bool
	)

	cmd := &cobra.Command{
		Use:   commandCreate + " [user_id...]",
		Short: "Create thumbnails for supported visual media files",
		Long: "Rescans the files folder of the given users and creates the missing thumbnails of visual media files.\n" +
			"With --path the user is taken from the path and the user list and --all are ignored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), commandCreate, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			return a.run(cmd.Context(), commandCreate, func(ctx context.Context, env thumbnails.Env) (*thumbnails.RunStatistics, error) {
				return thumbnails.Create(ctx, env, thumbnails.CreateOptions{
					Params:     flags.params(args),
					Quiet:      flags.quiet,
					Regenerate: regenerate,
					Width:      a.cfg.PreviewWidth,
					Height:     a.cfg.PreviewHeight,
				})
			})
		},
	}

	flags.register(cmd,
		`limit rescan to this path, eg. --path="/alice/files/Holidays"`,
		"rescan the files folders of all known users")
	cmd.Flags().BoolVarP(&regenerate, "regenerate", "r", false, "force the regeneration of thumbnails")
	return cmd
}

func newDeleteCommand(configPath *string) *cobra.Command {
	var (
		flags     targetFlags
		cacheOnly bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   commandDelete + " [user_id...]",
		Short: "Delete thumbnails of supported visual media files",
		Long: "Deletes all thumbnails of the given users, or those of the files below --path.\n" +
			"With --path the user is taken from the path and the user list and --all are ignored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), commandDelete, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			deleteThumbnails := func(ctx context.Context, env thumbnails.Env) (*thumbnails.RunStatistics, error) {
				env.Confirm = newTerminalConfirmer(os.Stdin, os.Stdout)
				stats, err := thumbnails.Delete(ctx, env, thumbnails.DeleteOptions{
					Params:    flags.params(args),
					Quiet:     flags.quiet,
					CacheOnly: cacheOnly,
					Yes:       yes,
				})
				if err == nil && stats.Operations > 0 {
					if verr := a.db.Vacuum(ctx); verr != nil {
						logging.Warn("Failed to vacuum the database: %v", verr)
					}
				}
				return stats, err
			}
			return a.run(cmd.Context(), commandDelete, deleteThumbnails)
		},
	}

	flags.register(cmd,
		`limit scope to this path, eg. --path="/alice/files/Holidays"`,
		"delete the thumbnails of all users")
	cmd.Flags().BoolVarP(&cacheOnly, "cache", "c", false, "clear cache only")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// runStatus maps the outcome of a run to the status label of the metrics.
func runStatus(err error, interrupted bool) string {
	switch {
	case err == nil && !interrupted:
		return "success"
	case err == nil, errors.Is(err, thumbnails.ErrInput):
		return "aborted"
	default:
		return "error"
	}
}

// exitError decides whether a finished run fails the process. Input errors
// were printed and are not failures of the tool.
func exitError(err error) error {
	if err == nil || errors.Is(err, thumbnails.ErrInput) {
		return nil
	}
	return err
}
