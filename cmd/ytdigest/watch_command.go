package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ytdigest/internal/config"
	"ytdigest/internal/pipeline"
	"ytdigest/internal/services"
	"ytdigest/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var settle time.Duration
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Summarize reference lists dropped into a directory",
		Long: "Watch a directory for *.txt files holding one video reference per line.\n" +
			"Each file is processed like 'summarize --from-file' and then renamed with a\n" +
			".done or .failed suffix. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return services.Wrap(services.ErrConfiguration, "", "", "", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			target := strings.TrimSpace(dir)
			if target == "" {
				target = defaultInboxDir(cfg)
			} else if target, err = config.ExpandPath(target); err != nil {
				return fmt.Errorf("resolve watch directory: %w", err)
			}

			lock, err := acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer lock.Release()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler := func(hctx context.Context, path string) error {
				refs, err := pipeline.ReadRefsFile(path, nil)
				if err != nil {
					return err
				}
				if len(refs) == 0 {
					return errors.New("reference list is empty")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "== %s (%d videos)\n", path, len(refs))
				stats, err := runBatch(hctx, cmd, cfg, logger, refs, opts)
				if err != nil {
					return err
				}
				if stats.Failed > 0 {
					return fmt.Errorf("%d of %d videos failed", stats.Failed, stats.Total)
				}
				return nil
			}

			w, err := watcher.New(target, handler, logger, watcher.WithSettle(settle))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for reference lists (Ctrl+C to stop)\n", target)
			if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to watch (default <state_dir>/inbox)")
	cmd.Flags().DurationVar(&settle, "settle", 500*time.Millisecond, "How long a file must be unchanged before it is processed")
	cmd.Flags().BoolVar(&opts.skipExisting, "skip-existing", false, "Skip videos whose caption and summary files already exist")
	cmd.Flags().BoolVar(&opts.live, "live", false, "Echo the model's reasoning and summary to stderr as they stream")
	cmd.Flags().BoolVar(&opts.noStats, "no-stats", false, "Do not print the processing stats table")
	return cmd
}

func defaultInboxDir(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, "inbox")
}
