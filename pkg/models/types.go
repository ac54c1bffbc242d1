package models

import "time"

type CalendarEvent struct {
	Name         string   `json:"name"`
	Date         string   `json:"date"`
	Participants []string `json:"participants"`
}

type EventExtraction struct {
	Description     string  `json:"description" jsonschema:"description=Raw description of the event"`
	IsCalendarEvent bool    `json:"is_calendar_event" jsonschema:"description=Whether this text describes a calendar event"`
	ConfidenceScore float64 `json:"confidence_score" jsonschema:"minimum=0,maximum=1,description=Confidence score between 0 and 1" validate:"gte=0,lte=1"`
}

type EventDetails struct {
	Name            string   `json:"name" jsonschema:"description=Name of the event"`
	Date            string   `json:"date" jsonschema:"description=Date and time of the event. Use ISO 8601 to format this value."`
	DurationMinutes int      `json:"duration_minutes" jsonschema:"description=Expected duration in minutes" validate:"gte=0"`
	Participants    []string `json:"participants" jsonschema:"description=List of participants"`
}

type EventConfirmation struct {
	ConfirmationMessage string `json:"confirmation_message" jsonschema:"description=Natural language confirmation message"`
	CalendarLink        string `json:"calendar_link" jsonschema:"description=Generated calendar link if applicable"`
}

type EventChange struct {
	Field    string `json:"field_to_change" jsonschema:"description=Field to change"`
	NewValue string `json:"new_value" jsonschema:"description=New value for the field"`
}

type ModifyEventDetails struct {
	EventIdentifier      string        `json:"event_identifier" jsonschema:"description=Description to identify the existing event"`
	Changes              []EventChange `json:"changes" jsonschema:"description=List of changes to make"`
	ParticipantsToAdd    []string      `json:"participants_to_add" jsonschema:"description=New participants to add"`
	ParticipantsToRemove []string      `json:"participants_to_remove" jsonschema:"description=Participants to remove"`
}

type GoalDetails struct {
	Goal     string `json:"goal" jsonschema:"description=What the user wants to achieve"`
	Deadline string `json:"deadline" jsonschema:"description=Target date for the goal. Use ISO 8601 to format this value."`
	Priority string `json:"priority" jsonschema:"enum=low,enum=medium,enum=high,description=Priority of the goal" validate:"omitempty,oneof=low medium high"`
}

type GoalChange struct {
	Field    string `json:"field" jsonschema:"enum=goal,enum=deadline,enum=priority,description=Goal field to change"`
	NewValue string `json:"new_value" jsonschema:"description=New value for the field"`
}

type ModifyGoalDetails struct {
	GoalIdentifier string       `json:"goal_identifier" jsonschema:"description=Description to identify the existing goal"`
	Changes        []GoalChange `json:"changes" jsonschema:"description=List of changes to make"`
}

type RetrieveGoalDetails struct {
	GoalIdentifier string `json:"goal_identifier" jsonschema:"description=Description of the goal the user asks about"`
}

type Weather struct {
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature_2m"`
	WindSpeed   float64   `json:"wind_speed_10m"`
	Units       string    `json:"units,omitempty"`
}

type WeatherResponse struct {
	Temperature float64 `json:"temperature" jsonschema:"description=The current temperature in celsius for the given location"`
	Response    string  `json:"response" jsonschema:"description=A natural language response to the user's question"`
}

type KBRecord struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type KBResponse struct {
	Answer string `json:"answer" jsonschema:"description=The answer to the user's question"`
	Source int    `json:"source" jsonschema:"description=The record id of the answer"`
}
