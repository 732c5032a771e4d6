// Package handoff implements the specialist agents the orchestrator hands
// queries to.
package handoff

import (
	"context"
	"fmt"

	"github.com/Asghar-123/health-agent/internal/completion"
	"github.com/Asghar-123/health-agent/internal/domain"
)

// Agent names.
const (
	NameNutrition  = "NutritionExpertAgent"
	NameInjury     = "InjurySupportAgent"
	NameEscalation = "EscalationAgent"
)

// EscalationReply is returned by the escalation agent.
const EscalationReply = "A human coach will contact you (demo placeholder)."

// Reply is an agent's answer.
type Reply struct {
	OK       bool
	Response string
	// ResponseID is set when the reply came from the completion service.
	ResponseID string
}

// Agent receives a hand-off from the orchestrator.
type Agent interface {
	Name() string
	// OnHandoff records the hand-off on the session.
	OnHandoff(sc *domain.SessionContext, reason string) error
	// Run answers the query. Completion errors are returned unchanged.
	Run(ctx context.Context, query string, sc *domain.SessionContext) (Reply, error)
}

// specialist is an agent that answers through the completion service, or
// with a fixed template when no completer is configured. An empty completion
// yields an empty Response so the caller can apply its own fallback.
type specialist struct {
	name         string
	logPrefix    string
	instructions string
	template     string
	completer    completion.Completer
}

func (a *specialist) Name() string { return a.name }

func (a *specialist) OnHandoff(sc *domain.SessionContext, reason string) error {
	if sc == nil {
		return fmt.Errorf("%s: nil session", a.name)
	}
	sc.RecordHandoff(a.logPrefix + reason)
	return nil
}

func (a *specialist) Run(ctx context.Context, query string, sc *domain.SessionContext) (Reply, error) {
	if a.completer == nil {
		return Reply{OK: true, Response: fmt.Sprintf(a.template, query)}, nil
	}

	req := completion.Request{Instructions: a.instructions, Input: query}
	if sc != nil {
		req.PreviousResponseID = sc.PreviousResponseID
	}
	resp, err := a.completer.Complete(ctx, req)
	if err != nil {
		return Reply{}, err
	}
	if resp == nil {
		return Reply{OK: true}, nil
	}
	return Reply{OK: true, Response: resp.Text, ResponseID: resp.ResponseID}, nil
}

// NewNutritionAgent returns the nutrition expert. A nil completer makes it
// answer with a fixed template.
func NewNutritionAgent(c completion.Completer) Agent {
	return &specialist{
		name:      NameNutrition,
		logPrefix: "Nutrition handoff: ",
		instructions: "You are a registered nutrition expert. Give practical, evidence-based guidance on diet, " +
			"nutrients and healthy eating. Do not diagnose conditions. Keep the answer under 100 words.",
		template:  "Nutrition expert advice for: %s",
		completer: c,
	}
}

// NewInjuryAgent returns the injury support agent. A nil completer makes it
// answer with a fixed template.
func NewInjuryAgent(c completion.Completer) Agent {
	return &specialist{
		name:      NameInjury,
		logPrefix: "Injury handoff: ",
		instructions: "You are an injury support coach. Suggest safe exercise modifications and recovery habits " +
			"for the described discomfort, and recommend seeing a professional for persistent or severe pain. " +
			"Do not diagnose. Keep the answer under 100 words.",
		template:  "Injury-safe modifications for: %s",
		completer: c,
	}
}

type escalation struct{}

// NewEscalationAgent returns the agent that hands the user to a human coach.
func NewEscalationAgent() Agent { return escalation{} }

func (escalation) Name() string { return NameEscalation }

func (escalation) OnHandoff(sc *domain.SessionContext, reason string) error {
	if sc == nil {
		return fmt.Errorf("%s: nil session", NameEscalation)
	}
	sc.RecordHandoff("Escalation: " + reason)
	return nil
}

func (escalation) Run(context.Context, string, *domain.SessionContext) (Reply, error) {
	return Reply{OK: true, Response: EscalationReply}, nil
}
