package calendar

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/routing"
	"github.com/nelssec/llm-workflows/internal/structured"
	"github.com/nelssec/llm-workflows/pkg/models"
)

// Chain processes a calendar request in three model calls: judge whether
// the text is an event, parse its details, then write a confirmation.
type Chain struct {
	client llm.Client
	logger zerolog.Logger
	now    func() time.Time
}

type ChainResult struct {
	Extraction   *models.EventExtraction   `json:"extraction"`
	Details      *models.EventDetails      `json:"details,omitempty"`
	Confirmation *models.EventConfirmation `json:"confirmation,omitempty"`
}

// Passed reports whether the request made it past the gate.
func (r *ChainResult) Passed() bool {
	return r != nil && r.Confirmation != nil
}

func NewChain(client llm.Client, logger zerolog.Logger) *Chain {
	return &Chain{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

func (c *Chain) extract(ctx context.Context, input string) (*models.EventExtraction, error) {
	c.logger.Info().Msg("starting event extraction analysis")

	out, err := structured.Generate[models.EventExtraction](ctx, c.client, &llm.Request{
		System:   dateContext(c.now()) + " Analyze if the text describes a calendar event.",
		Messages: []llm.Message{llm.UserMessage(input)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "event extraction failed")
	}

	c.logger.Info().
		Bool("is_calendar_event", out.IsCalendarEvent).
		Float64("confidence", out.ConfidenceScore).
		Msg("extraction complete")
	return out, nil
}

func (c *Chain) parseDetails(ctx context.Context, description string) (*models.EventDetails, error) {
	c.logger.Info().Msg("starting event details parsing")

	out, err := structured.Generate[models.EventDetails](ctx, c.client, &llm.Request{
		System: dateContext(c.now()) + " Extract detailed event information. " +
			"When dates reference 'next Tuesday' or similar relative dates, use this current date as reference.",
		Messages: []llm.Message{llm.UserMessage(description)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "event details parsing failed")
	}

	c.logger.Info().
		Str("name", out.Name).
		Str("date", out.Date).
		Int("duration", out.DurationMinutes).
		Msg("parsed event details")
	return out, nil
}

func (c *Chain) confirm(ctx context.Context, details *models.EventDetails) (*models.EventConfirmation, error) {
	c.logger.Info().Msg("generating confirmation message")

	out, err := structured.Generate[models.EventConfirmation](ctx, c.client, &llm.Request{
		System:   "Generate a natural confirmation message for the event. Sign off with your name; Susie",
		Messages: []llm.Message{llm.UserMessage(describeEvent(details))},
	})
	if err != nil {
		return nil, errors.Wrap(err, "confirmation failed")
	}

	c.logger.Info().Msg("confirmation message generated")
	return out, nil
}

// Run executes the chain. A request that is not an event, or whose
// confidence is under the routing threshold, stops after the first call
// with only Extraction set.
func (c *Chain) Run(ctx context.Context, input string) (*ChainResult, error) {
	c.logger.Info().Str("input", input).Msg("processing calendar request")

	extraction, err := c.extract(ctx, input)
	if err != nil {
		return nil, err
	}
	result := &ChainResult{Extraction: extraction}

	if !extraction.IsCalendarEvent || extraction.ConfidenceScore < routing.ConfidenceThreshold {
		c.logger.Warn().
			Bool("is_calendar_event", extraction.IsCalendarEvent).
			Float64("confidence", extraction.ConfidenceScore).
			Msg("gate check failed")
		return result, nil
	}

	c.logger.Info().Msg("gate check passed, proceeding with event processing")

	details, err := c.parseDetails(ctx, extraction.Description)
	if err != nil {
		return nil, err
	}
	result.Details = details

	confirmation, err := c.confirm(ctx, details)
	if err != nil {
		return nil, err
	}
	result.Confirmation = confirmation

	c.logger.Info().Msg("calendar request processing completed successfully")
	return result, nil
}
