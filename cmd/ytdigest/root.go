package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	ctx := newCommandContext(opts)

	root := &cobra.Command{
		Use:   "ytdigest",
		Short: "Summarize video captions with a language model",
		Long: "ytdigest fetches the captions of YouTube videos, asks a chat-completions\n" +
			"model for a structured summary, and writes both to disk.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newSummarizeCommand(ctx),
		newSearchCommand(ctx),
		newWatchCommand(ctx),
		newHistoryCommand(ctx),
		newCheckCommand(ctx),
		newConfigCommand(ctx),
	)
	return root
}
