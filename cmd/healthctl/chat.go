package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Asghar-123/health-agent/internal/agent"
	"github.com/Asghar-123/health-agent/internal/store"
	"github.com/Asghar-123/health-agent/internal/tools"
)

const (
	cliUserID    = "cli"
	cliSessionID = "default"
	cliChannel   = "cli"
)

func newChatCmd(newCompleter completerFactory) *cobra.Command {
	var (
		diet   string
		injury string
		name   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant",
		Long:  `Read messages from stdin, one per line, and print the assistant's replies. Type "exit" to quit.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			ctx := cmd.Context()
			completer, cfg, err := newCompleter(ctx)
			if err != nil {
				return err
			}

			opts := agent.Options{
				Completer: completer,
				Hooks:     agent.LogHooks{Logger: slog.Default()},
			}
			if cfg != nil {
				opts.WorkoutLevel = cfg.Assistant.WorkoutLevel
				if cfg.Assistant.GoalAnalyzer == "model" {
					opts.GoalAnalyzer = tools.NewModelGoalAnalyzer(completer)
				}
			}
			o, err := agent.NewOrchestrator(opts)
			if err != nil {
				return err
			}

			svc := agent.NewService(o, store.NewMemory(), nil)
			defer svc.Close()

			update := agent.ProfileUpdate{}
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("diet") {
				update.DietPreferences = &diet
			}
			if cmd.Flags().Changed("injury") {
				update.InjuryNotes = &injury
			}
			if _, err := svc.UpdateProfile(ctx, cliUserID, cliSessionID, update); err != nil {
				return err
			}

			return runChat(cmd, svc, format)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your name")
	cmd.Flags().StringVar(&diet, "diet", "", "Diet preferences, e.g. vegetarian")
	cmd.Flags().StringVar(&injury, "injury", "", "Injury notes")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or yaml")
	return cmd
}

func runChat(cmd *cobra.Command, svc *agent.Service, format string) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	prompt(out, format)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			prompt(out, format)
			continue
		case "exit", "quit":
			return nil
		}

		result, err := svc.Chat(cmd.Context(), agent.ChatRequest{
			Message:   line,
			UserID:    cliUserID,
			SessionID: cliSessionID,
			Channel:   cliChannel,
		})
		if err != nil {
			return fmt.Errorf("chat: %w", err)
		}

		if format == formatYAML {
			fmt.Fprintln(out, "---")
			if err := writeYAML(out, result); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, result.Response)
			fmt.Fprintln(out)
		}
		prompt(out, format)
	}
	return scanner.Err()
}

func prompt(w io.Writer, format string) {
	if format == formatText {
		fmt.Fprint(w, "> ")
	}
}
