package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ytdigest/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, check, and print configuration",
	}
	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigValidateCommand(ctx),
		newConfigShowCommand(ctx),
	)
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return usageError{msg: fmt.Sprintf("%s already exists (pass --overwrite to replace it)", target)}
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("check %s: %w", target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set SILICONFLOW_API_KEY (environment or .env) or llm.api_key before running 'ytdigest summarize'.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file (default ~/.config/ytdigest/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if path := strings.TrimSpace(flagValue); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report the settings that matter for a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := ctx.configPath
			if !ctx.configSeen {
				source += " (not found; defaults in use)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", source)
			fmt.Fprintln(out, renderPairs("", [][2]string{
				{"Caption source", cfg.Captions.Source},
				{"Minimum caption length", fmt.Sprintf("%d", cfg.Captions.MinLength)},
				{"Model", cfg.LLM.Model},
				{"Attempts per video", fmt.Sprintf("%d", cfg.LLM.MaxRetryCount)},
				{"Output formats", strings.Join(cfg.Output.Formats, ", ")},
			}))
			if err := cfg.RequireAPIKey(); err != nil {
				fmt.Fprintln(out, "Note:", err)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

var configSections = []string{"paths", "llm", "captions", "output", "logging"}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with the API key redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			encoded, err := cfg.Encode()
			if err != nil {
				return err
			}
			if section = strings.TrimSpace(section); section != "" {
				encoded, err = extractSection(encoded, section)
				if err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "Print only one table ("+strings.Join(configSections, ", ")+")")
	return cmd
}

// extractSection returns the [name] table of an encoded config, header included.
func extractSection(encoded, name string) (string, error) {
	known := false
	for _, s := range configSections {
		if s == name {
			known = true
			break
		}
	}
	if !known {
		return "", usageError{msg: fmt.Sprintf("unknown section %q (use one of %s)", name, strings.Join(configSections, ", "))}
	}
	var b strings.Builder
	inside := false
	for _, line := range strings.SplitAfter(encoded, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inside = trimmed == "["+name+"]"
		}
		if inside {
			b.WriteString(line)
		}
	}
	return b.String(), nil
}
