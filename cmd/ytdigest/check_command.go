package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ytdigest/internal/deps"
	"ytdigest/internal/pipeline"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var ping bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check configuration, external binaries, and endpoint access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			configPath := ctx.configPath
			if !ctx.configSeen {
				configPath += " (not found; defaults in use)"
			}
			fmt.Fprintln(out, renderPairs("Configuration", [][2]string{
				{"Config", configPath},
				{"Caption source", cfg.Captions.Source},
				{"Model", cfg.LLM.Model},
				{"API key set", yesNo(cfg.RequireAPIKey() == nil)},
				{"Captions dir", cfg.Paths.CaptionsDir},
				{"Summaries dir", cfg.Paths.SummariesDir},
			}))

			statuses := deps.CheckBinaries(cmd.Context(), deps.CaptionRequirements(cfg.Captions.Source, cfg.Captions.YtDlpBinary))
			if len(statuses) > 0 {
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					detail := s.Version
					if !s.Available {
						detail = s.Detail
					}
					rows = append(rows, []string{s.Name, s.Command, yesNo(s.Available), yesNo(!s.Optional), detail})
				}
				fmt.Fprintln(out, renderTable("Dependencies", []string{"Name", "Command", "Available", "Required", "Detail"}, rows, nil))
			}

			var problems int
			problems += len(deps.MissingRequired(statuses))
			if err := cfg.RequireAPIKey(); err != nil {
				fmt.Fprintln(out, err)
				problems++
			} else if ping {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				pingCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
				defer cancel()
				client := pipeline.NewLLMClient(cfg, logger, nil, nil)
				if err := client.HealthCheck(pingCtx); err != nil {
					fmt.Fprintf(out, "Endpoint check failed: %v\n", err)
					problems++
				} else {
					fmt.Fprintf(out, "Endpoint reachable (%s)\n", cfg.LLM.Model)
				}
			}

			if problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&ping, "ping", false, "Send a minimal request to the inference endpoint")
	return cmd
}
