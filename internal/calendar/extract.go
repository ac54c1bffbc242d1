// Package calendar contains the calendar assistant workflows: single-shot
// extraction, a gated prompt chain, and an intent-routed assistant.
package calendar

import (
	"context"
	"time"

	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/structured"
	"github.com/nelssec/llm-workflows/pkg/models"
)

const extractPrompt = "Extract the event information."

// Extract pulls a single calendar event out of free text.
func Extract(ctx context.Context, client llm.Client, text string) (*models.CalendarEvent, error) {
	return structured.Generate[models.CalendarEvent](ctx, client, &llm.Request{
		System:   extractPrompt,
		Messages: []llm.Message{llm.UserMessage(text)},
	})
}

// dateContext tells the model what "today" is so relative dates resolve.
func dateContext(now time.Time) string {
	return "Today is " + now.Format("Monday, January 02, 2006") + "."
}
