package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Asghar-123/health-agent/internal/guardrail"
)

type checkReport struct {
	Allowed   bool               `yaml:"allowed"`
	Category  guardrail.Category `yaml:"category,omitempty"`
	Message   string             `yaml:"message,omitempty"`
	Emergency bool               `yaml:"emergency"`
	Diagnosis bool               `yaml:"diagnosis"`
	OffTopic  bool               `yaml:"off_topic"`
	Sensitive bool               `yaml:"sensitive"`
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <text>",
		Short: "Show the guardrail decision for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			d := guardrail.NewManager().PreProcess(query)
			return writeYAML(cmd.OutOrStdout(), checkReport{
				Allowed:   d.Allowed,
				Category:  d.Category,
				Message:   d.Message,
				Emergency: guardrail.ContainsEmergencyRequest(query),
				Diagnosis: guardrail.ContainsDiagnosisRequest(query),
				OffTopic:  guardrail.ContainsOffTopicRequest(query),
				Sensitive: guardrail.ContainsSensitiveHealthQuery(query),
			})
		},
	}
}
