// Package goals is a routed assistant that records a personal goal, edits
// it, and answers questions about it.
package goals

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/routing"
	"github.com/nelssec/llm-workflows/internal/structured"
	"github.com/nelssec/llm-workflows/pkg/models"
)

const (
	TypeNewGoal      routing.RequestType = "new_goal"
	TypeModifyGoal   routing.RequestType = "modify_goal"
	TypeRetrieveGoal routing.RequestType = "retrieve_goal"
)

const (
	FieldGoal     = "goal"
	FieldDeadline = "deadline"
	FieldPriority = "priority"
)

const (
	routerPrompt = "Determine whether the user wants to set a new goal, change an existing goal, or ask about their current goal."
	formatPrompt = "Write a short, encouraging confirmation of the goal update for the user. Do not invent details that are not listed."
)

var knownFields = map[string]bool{
	FieldGoal:     true,
	FieldDeadline: true,
	FieldPriority: true,
}

type Assistant struct {
	client llm.Client
	logger zerolog.Logger
	*routing.Pipeline
}

// NewAssistant wires the goal handlers. Confirmations are phrased by the
// model unless opts supply a different formatter.
func NewAssistant(client llm.Client, logger zerolog.Logger, opts ...routing.Option) *Assistant {
	a := &Assistant{client: client, logger: logger}

	router := routing.NewRouter(client, routerPrompt,
		[]routing.RequestType{TypeNewGoal, TypeModifyGoal, TypeRetrieveGoal}, logger)

	opts = append([]routing.Option{routing.WithFormatter(routing.NewModelFormatter(client, formatPrompt))}, opts...)
	a.Pipeline = routing.NewPipeline(router, map[routing.RequestType]routing.Handler{
		TypeNewGoal:      routing.HandlerFunc(a.handleNewGoal),
		TypeModifyGoal:   routing.HandlerFunc(a.handleModifyGoal),
		TypeRetrieveGoal: routing.HandlerFunc(a.handleRetrieveGoal),
	}, logger, opts...)

	return a
}

func (a *Assistant) handleNewGoal(ctx context.Context, description string, state *routing.State) (*routing.Response, error) {
	details, err := structured.Generate[models.GoalDetails](ctx, a.client, &llm.Request{
		System:   "Extract the goal, its deadline and its priority.",
		Messages: []llm.Message{llm.UserMessage(description)},
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		FieldGoal:     details.Goal,
		FieldDeadline: details.Deadline,
		FieldPriority: details.Priority,
	}
	state.Merge(fields)

	a.logger.Info().Str("goal", details.Goal).Msg("goal recorded")

	return &routing.Response{
		Success: true,
		Message: fmt.Sprintf("New goal '%s' due %s with %s priority", details.Goal, details.Deadline, details.Priority),
		Fields:  fields,
	}, nil
}

func (a *Assistant) handleModifyGoal(ctx context.Context, description string, state *routing.State) (*routing.Response, error) {
	details, err := structured.Generate[models.ModifyGoalDetails](ctx, a.client, &llm.Request{
		System:   "Extract which goal fields the user wants to change and their new values.",
		Messages: []llm.Message{llm.UserMessage(description)},
	})
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(details.Changes))
	for _, change := range details.Changes {
		key := strings.ToLower(strings.TrimSpace(change.Field))
		if !knownFields[key] {
			a.logger.Debug().Str("field", change.Field).Msg("ignoring unknown goal field")
			continue
		}
		fields[key] = change.NewValue
	}
	state.Merge(fields)

	a.logger.Info().Int("changes", len(fields)).Msg("goal modified")

	return &routing.Response{
		Success: true,
		Message: fmt.Sprintf("Updated goal '%s'", details.GoalIdentifier),
		Fields:  fields,
	}, nil
}

// handleRetrieveGoal answers from state without writing to it.
func (a *Assistant) handleRetrieveGoal(ctx context.Context, description string, state *routing.State) (*routing.Response, error) {
	query, err := structured.Generate[models.RetrieveGoalDetails](ctx, a.client, &llm.Request{
		System:   "Identify which goal the user is asking about.",
		Messages: []llm.Message{llm.UserMessage(description)},
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("goal", query.GoalIdentifier).Msg("retrieving goal")

	goal, ok := state.Get(FieldGoal)
	if !ok {
		return &routing.Response{Success: true, Message: "No goal has been set yet."}, nil
	}

	fields := map[string]string{FieldGoal: goal}
	for _, key := range []string{FieldDeadline, FieldPriority} {
		if v, ok := state.Get(key); ok {
			fields[key] = v
		}
	}

	msg := fmt.Sprintf("Current goal: '%s'", goal)
	if d := fields[FieldDeadline]; d != "" {
		msg += " due " + d
	}
	if p := fields[FieldPriority]; p != "" {
		msg += " with " + p + " priority"
	}

	return &routing.Response{
		Success: true,
		Message: msg,
		Fields:  fields,
	}, nil
}
