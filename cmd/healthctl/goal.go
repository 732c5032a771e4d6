package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Asghar-123/health-agent/internal/goal"
)

func newGoalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goal <text>",
		Short: "Parse a goal statement",
		Long:  `Run the goal parser on text such as "lose 5kg in 2 months" and print the result as YAML.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			g, err := goal.Parse(text)

			var verr *goal.ValidationError
			switch {
			case errors.As(err, &verr):
				return writeYAML(cmd.OutOrStdout(), map[string]any{
					"parsed": false,
					"error":  verr.Error(),
				})
			case err != nil:
				return err
			case g == nil:
				return writeYAML(cmd.OutOrStdout(), map[string]any{"parsed": false})
			}
			return writeYAML(cmd.OutOrStdout(), map[string]any{
				"parsed": true,
				"goal":   g,
				"text":   g.String(),
			})
		},
	}
}
