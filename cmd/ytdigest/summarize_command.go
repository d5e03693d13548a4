package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ytdigest/internal/config"
	"ytdigest/internal/history"
	"ytdigest/internal/logging"
	"ytdigest/internal/pipeline"
	"ytdigest/internal/services"
	"ytdigest/internal/services/llm"
)

type batchOptions struct {
	skipExisting bool
	live         bool
	noStats      bool
	// limits bound keyword searches; summarize leaves them zero.
	limits pipeline.Limits
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var fromFile string
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "summarize [video-ref...]",
		Short: "Fetch captions and write summaries for one or more videos",
		Long: "Fetch captions for each video reference (a YouTube URL or id), summarize them\n" +
			"with the configured model, and write the caption and summary files.\n" +
			"Videos are processed one at a time. One outcome line is printed per video and\n" +
			"the command exits non-zero if any video failed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			refs := append([]string(nil), args...)
			if strings.TrimSpace(fromFile) != "" {
				listed, err := pipeline.ReadRefsFile(fromFile, cmd.InOrStdin())
				if err != nil {
					return err
				}
				refs = append(refs, listed...)
			}
			if len(refs) == 0 {
				return usageError{msg: "provide at least one video reference or --from-file"}
			}

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

			lock, err := acquireRunLock(cfg)
			if err != nil {
				return err
			}
			defer lock.Release()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stats, err := runBatch(runCtx, cmd, cfg, logger, refs, opts)
			if err != nil {
				return err
			}
			if stats.Failed > 0 {
				return fmt.Errorf("%d of %d videos failed", stats.Failed, stats.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&fromFile, "from-file", "f", "", "Read video references from a file, one per line (- for stdin)")
	cmd.Flags().BoolVar(&opts.skipExisting, "skip-existing", false, "Skip videos whose caption and summary files already exist")
	cmd.Flags().BoolVar(&opts.live, "live", false, "Echo the model's reasoning and summary to stderr as they stream")
	cmd.Flags().BoolVar(&opts.noStats, "no-stats", false, "Do not print the processing stats table")
	return cmd
}

// runBatch builds a pipeline for refs, prints one outcome line per video and
// the stats table, and records the run in history when available.
func runBatch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, refs []string, opts batchOptions) (pipeline.Stats, error) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	var buildOpts []pipeline.BuildOption
	if opts.skipExisting {
		buildOpts = append(buildOpts, pipeline.WithSkipExisting(true))
	}
	if opts.live {
		buildOpts = append(buildOpts, pipeline.WithStreamObserver(liveEcho(cmd.ErrOrStderr())))
	}

	var recorder *history.RunRecorder
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable; continuing without it", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
		)
	} else {
		defer store.Close()
		recorder, err = store.BeginRun(ctx)
		if err != nil {
			logging.WarnWithContext(logger, "history run not recorded", "history_write_failed", logging.Error(err))
		} else {
			buildOpts = append(buildOpts, pipeline.WithRecorder(recorder))
			ctx = services.WithRunID(ctx, recorder.ID())
		}
	}

	p, err := pipeline.Build(cfg, logger, buildOpts...)
	if err != nil {
		return pipeline.Stats{}, err
	}

	var progress pipeline.Stats
	_, stats := p.RunLimited(ctx, refs, opts.limits, func(o pipeline.Outcome) {
		fmt.Fprintln(out, outcomeLine(o, colorize))
		if opts.limits.Successes > 0 {
			progress.Record(o)
			fmt.Fprintf(out, "     progress: %d/%d done, %d tried\n", progress.Succeeded+progress.Skipped, opts.limits.Successes, progress.Total)
		}
	})
	if recorder != nil {
		if err := recorder.Finish(context.WithoutCancel(ctx), stats); err != nil {
			logging.WarnWithContext(logger, "history run not finalized", "history_write_failed", logging.Error(err))
		}
	}
	if !opts.noStats && stats.Total > 0 {
		fmt.Fprintln(out, statsTable(stats))
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// liveEcho prints streamed fragments, with a header whenever the stream
// switches between reasoning and answer text. A retry discards what the
// failed attempt printed and starts the headers over.
func liveEcho(w io.Writer) func(llm.Delta) {
	section := ""
	return func(d llm.Delta) {
		if d.Restart {
			if section != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "--- 第%d次尝试，以上输出作废 ---\n", d.Attempt)
			section = ""
			return
		}
		want := "summary"
		if d.Reasoning {
			want = "thinking"
		}
		if want != section {
			if section != "" {
				fmt.Fprintln(w)
			}
			if d.Reasoning {
				fmt.Fprintln(w, "--- 思考过程 ---")
			} else {
				fmt.Fprintln(w, "--- 生成总结 ---")
			}
			section = want
		}
		fmt.Fprint(w, d.Text)
	}
}
