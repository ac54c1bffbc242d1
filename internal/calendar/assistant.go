package calendar

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/routing"
	"github.com/nelssec/llm-workflows/internal/structured"
	"github.com/nelssec/llm-workflows/pkg/models"
)

const (
	TypeNewEvent    routing.RequestType = "new_event"
	TypeModifyEvent routing.RequestType = "modify_event"
)

const (
	FieldName         = "name"
	FieldDate         = "date"
	FieldDuration     = "duration_minutes"
	FieldParticipants = "participants"
)

const routerPrompt = "Determine if this is a request to create a new calendar event or modify an existing one."

// Assistant routes calendar requests to the new/modify handlers and keeps
// the resulting event fields in its state.
type Assistant struct {
	client llm.Client
	logger zerolog.Logger
	now    func() time.Time
	*routing.Pipeline
}

func NewAssistant(client llm.Client, logger zerolog.Logger, opts ...routing.Option) *Assistant {
	a := &Assistant{
		client: client,
		logger: logger,
		now:    time.Now,
	}

	router := routing.NewRouter(client, routerPrompt, []routing.RequestType{TypeNewEvent, TypeModifyEvent}, logger)
	a.Pipeline = routing.NewPipeline(router, map[routing.RequestType]routing.Handler{
		TypeNewEvent:    routing.HandlerFunc(a.handleNewEvent),
		TypeModifyEvent: routing.HandlerFunc(a.handleModifyEvent),
	}, logger, opts...)

	return a
}

func (a *Assistant) handleNewEvent(ctx context.Context, description string, state *routing.State) (*routing.Response, error) {
	a.logger.Info().Msg("processing new event request")

	details, err := structured.Generate[models.EventDetails](ctx, a.client, &llm.Request{
		System:   dateContext(a.now()) + " Extract details for creating a new calendar event.",
		Messages: []llm.Message{llm.UserMessage(description)},
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info().Str("name", details.Name).Msg("new event")

	fields := map[string]string{
		FieldName:         details.Name,
		FieldDate:         details.Date,
		FieldDuration:     strconv.Itoa(details.DurationMinutes),
		FieldParticipants: strings.Join(details.Participants, ", "),
	}
	state.Merge(fields)

	return &routing.Response{
		Success: true,
		Message: fmt.Sprintf("Created new event '%s' for %s with %s", details.Name, details.Date, joinOrNone(details.Participants)),
		Link:    calendarLink(details.Name),
		Fields:  fields,
	}, nil
}

func (a *Assistant) handleModifyEvent(ctx context.Context, description string, state *routing.State) (*routing.Response, error) {
	a.logger.Info().Msg("processing event modification request")

	details, err := structured.Generate[models.ModifyEventDetails](ctx, a.client, &llm.Request{
		System:   dateContext(a.now()) + " Extract details for modifying an existing calendar event.",
		Messages: []llm.Message{llm.UserMessage(description)},
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info().Str("event", details.EventIdentifier).Int("changes", len(details.Changes)).Msg("modifying event")

	fields := make(map[string]string, len(details.Changes)+1)
	for _, change := range details.Changes {
		if key := normalizeField(change.Field); key != "" {
			fields[key] = change.NewValue
		}
	}

	if len(details.ParticipantsToAdd) > 0 || len(details.ParticipantsToRemove) > 0 {
		current, ok := fields[FieldParticipants]
		if !ok {
			current, _ = state.Get(FieldParticipants)
		}
		fields[FieldParticipants] = strings.Join(
			adjustParticipants(splitList(current), details.ParticipantsToAdd, details.ParticipantsToRemove), ", ")
	}

	state.Merge(fields)

	return &routing.Response{
		Success: true,
		Message: fmt.Sprintf("Modified event '%s' with the requested changes", details.EventIdentifier),
		Link:    calendarLink(details.EventIdentifier),
		Fields:  fields,
	}, nil
}

func describeEvent(details *models.EventDetails) string {
	return fmt.Sprintf("Event: %s\nDate: %s\nDuration: %d minutes\nParticipants: %s",
		details.Name, details.Date, details.DurationMinutes, joinOrNone(details.Participants))
}

func calendarLink(name string) string {
	return "calendar?event=" + url.QueryEscape(name)
}

func normalizeField(field string) string {
	field = strings.ToLower(strings.TrimSpace(field))
	field = strings.NewReplacer(" ", "_", "-", "_").Replace(field)
	switch field {
	case "title", "event_name":
		return FieldName
	case "time", "datetime", "start", "start_time":
		return FieldDate
	case "duration", "length":
		return FieldDuration
	case "attendees":
		return FieldParticipants
	}
	return field
}

func adjustParticipants(current, add, remove []string) []string {
	removed := make(map[string]bool, len(remove))
	for _, p := range remove {
		removed[strings.ToLower(strings.TrimSpace(p))] = true
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(current)+len(add))
	for _, p := range append(current, add...) {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" || removed[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "no participants"
	}
	return strings.Join(items, ", ")
}
