package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ytdigest/internal/captions"
	"ytdigest/internal/pipeline"
	"ytdigest/internal/services"
)

// searchAttemptFactor bounds how many candidates a search may try per
// requested summary.
const searchAttemptFactor = 3

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var query captions.SearchQuery
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "search <keyword...>",
		Short: "Summarize the top videos found for a keyword",
		Long: "Search YouTube with yt-dlp and summarize results one at a time until --count\n" +
			"videos succeed. Videos without usable captions are skipped over; the search\n" +
			"gives up after trying three times --count candidates and then exits non-zero.",
		RunE: func(cmd *cobra.Command, args []string) error {
			query.Keyword = strings.Join(args, " ")
			if query.Limit <= 0 {
				return usageError{msg: "--count must be positive"}
			}
			target := query.Limit
			query.Limit = target * searchAttemptFactor
			normalized, err := query.Normalize()
			if err != nil {
				return usageError{msg: err.Error()}
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

			searcher := captions.NewSearcher(pipeline.CaptionSettings(cfg), logger)
			refs, err := searcher.Search(runCtx, normalized)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found %d candidates for %q (sort: %s)\n", len(refs), normalized.Keyword, normalized.Sort)

			opts.limits = pipeline.Limits{Successes: target, Attempts: normalized.Limit}
			stats, err := runBatch(runCtx, cmd, cfg, logger, refs, opts)
			if err != nil {
				return err
			}
			if done := stats.Succeeded + stats.Skipped; done < target {
				return fmt.Errorf("only %d of %d videos summarized after %d attempts", done, target, stats.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&query.Limit, "count", "n", 5, "Number of videos to summarize")
	cmd.Flags().StringVar(&query.Sort, "sort", captions.SortViews, "Result order: views, relevance or upload_date")
	cmd.Flags().StringVar(&query.Duration, "duration", "", "Length filter: short (<4m), medium (4-20m) or long (>20m)")
	cmd.Flags().BoolVar(&opts.skipExisting, "skip-existing", false, "Count videos whose outputs already exist as done without reprocessing")
	cmd.Flags().BoolVar(&opts.live, "live", false, "Echo the model's reasoning and summary to stderr as they stream")
	cmd.Flags().BoolVar(&opts.noStats, "no-stats", false, "Do not print the processing stats table")
	return cmd
}
