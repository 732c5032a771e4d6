package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Asghar-123/health-agent/internal/completion"
	"github.com/Asghar-123/health-agent/internal/config"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

// completerFactory builds the completion client for commands that need one.
type completerFactory func(ctx context.Context) (completion.Completer, *config.Config, error)

func defaultCompleter(ctx context.Context) (completion.Completer, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	c, err := completion.New(ctx, completion.Config(cfg.Completion))
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

func newRootCmd(newCompleter completerFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "healthctl",
		Short:         "Health planner assistant CLI",
		Long:          `healthctl talks to the health planner assistant in-process and inspects its parsers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Log orchestrator hooks to stderr")

	root.AddCommand(newChatCmd(newCompleter))
	root.AddCommand(newGoalCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newHealthCmd())
	return root
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func validateFormat(format string) error {
	if format != formatText && format != formatYAML {
		return fmt.Errorf("invalid format: %s (valid: text, yaml)", format)
	}
	return nil
}
