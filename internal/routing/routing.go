// Package routing implements the classify → gate → dispatch → merge flow
// shared by the calendar and goal assistants.
//
// A Router makes one structured model call that labels free text with a
// request type, a confidence score and a cleaned description. The Gate drops
// low-confidence or unsupported decisions. Accepted decisions are handed to
// the Handler registered for their type, which extracts type-specific fields
// and merges them into the pipeline's State.
package routing

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/structured"
)

// ConfidenceThreshold is the minimum confidence a decision needs to be
// dispatched.
const ConfidenceThreshold = 0.7

// RejectionMessage is returned for decisions the gate drops.
const RejectionMessage = "Request not supported"

type RequestType string

// TypeOther is the catch-all type every router offers the model.
const TypeOther RequestType = "other"

type Decision struct {
	RequestType RequestType `json:"request_type" jsonschema:"description=Type of request being made"`
	Confidence  float64     `json:"confidence_score" jsonschema:"minimum=0,maximum=1,description=Confidence score between 0 and 1" validate:"gte=0,lte=1"`
	Description string      `json:"description" jsonschema:"description=Cleaned description of the request"`
}

type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Link    string            `json:"calendar_link,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Rejected reports whether the response came from the gate rather than a
// handler.
func (r *Response) Rejected() bool {
	return r != nil && !r.Success && r.Message == RejectionMessage
}

type Router struct {
	client llm.Client
	prompt string
	types  []RequestType
	logger zerolog.Logger
}

// NewRouter builds a router offering types plus TypeOther to the model.
func NewRouter(client llm.Client, prompt string, types []RequestType, logger zerolog.Logger) *Router {
	offered := make([]RequestType, 0, len(types)+1)
	offered = append(offered, types...)
	offered = append(offered, TypeOther)

	return &Router{
		client: client,
		prompt: prompt,
		types:  offered,
		logger: logger,
	}
}

func (r *Router) Types() []RequestType {
	return r.types
}

func (r *Router) Route(ctx context.Context, input string) (*Decision, error) {
	values := make([]string, len(r.types))
	for i, t := range r.types {
		values[i] = string(t)
	}

	schema, err := structured.SchemaWithEnum[Decision]("request_type", values)
	if err != nil {
		return nil, err
	}

	r.logger.Info().Str("input", truncate(input, 80)).Msg("routing request")

	decision, err := structured.Generate[Decision](ctx, r.client, &llm.Request{
		System:   r.prompt,
		Messages: []llm.Message{llm.UserMessage(input)},
		Format:   schema,
	})
	if err != nil {
		return nil, errors.Wrap(err, "routing failed")
	}

	r.logger.Info().
		Str("request_type", string(decision.RequestType)).
		Float64("confidence", decision.Confidence).
		Msg("request routed")

	return decision, nil
}

// Gate decides whether a decision may proceed to its handler.
type Gate struct {
	Threshold float64
	Supported map[RequestType]bool
}

func (g Gate) Allow(d *Decision) bool {
	if d == nil {
		return false
	}
	if d.Confidence < g.Threshold {
		return false
	}
	if d.RequestType == TypeOther {
		return false
	}
	return g.Supported[d.RequestType]
}

type Handler interface {
	Handle(ctx context.Context, description string, state *State) (*Response, error)
}

type HandlerFunc func(ctx context.Context, description string, state *State) (*Response, error)

func (f HandlerFunc) Handle(ctx context.Context, description string, state *State) (*Response, error) {
	return f(ctx, description, state)
}

// Formatter rewrites a handler's response into a user-facing message.
type Formatter interface {
	Format(ctx context.Context, input string, resp *Response) (string, error)
}

type Pipeline struct {
	router    *Router
	handlers  map[RequestType]Handler
	state     *State
	formatter Formatter
	logger    zerolog.Logger
}

type Option func(*Pipeline)

func WithFormatter(f Formatter) Option {
	return func(p *Pipeline) {
		p.formatter = f
	}
}

func WithState(s *State) Option {
	return func(p *Pipeline) {
		p.state = s
	}
}

func NewPipeline(router *Router, handlers map[RequestType]Handler, logger zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		router:   router,
		handlers: handlers,
		state:    NewState(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) State() *State {
	return p.state
}

func (p *Pipeline) Gate() Gate {
	supported := make(map[RequestType]bool, len(p.handlers))
	for t := range p.handlers {
		supported[t] = true
	}
	return Gate{Threshold: ConfidenceThreshold, Supported: supported}
}

// Process runs one request through the pipeline. Gated requests return a
// rejection response and leave state untouched.
func (p *Pipeline) Process(ctx context.Context, input string) (*Response, error) {
	decision, err := p.router.Route(ctx, input)
	if err != nil {
		return nil, err
	}

	return p.Dispatch(ctx, input, decision)
}

// Dispatch runs the gate and handler for an existing decision.
func (p *Pipeline) Dispatch(ctx context.Context, input string, decision *Decision) (*Response, error) {
	if decision == nil {
		return nil, errors.New("no routing decision")
	}
	if !p.Gate().Allow(decision) {
		p.logger.Warn().
			Str("request_type", string(decision.RequestType)).
			Float64("confidence", decision.Confidence).
			Msg("gate check failed")
		return &Response{Success: false, Message: RejectionMessage}, nil
	}

	handler := p.handlers[decision.RequestType]
	resp, err := handler.Handle(ctx, decision.Description, p.state)
	if err != nil {
		return nil, errors.Wrapf(err, "%s handler failed", decision.RequestType)
	}
	if resp == nil {
		return nil, errors.Newf("%s handler returned no response", decision.RequestType)
	}

	if p.formatter != nil && resp.Success {
		msg, err := p.formatter.Format(ctx, input, resp)
		if err != nil {
			return nil, errors.Wrap(err, "failed to format response")
		}
		resp.Message = msg
	}

	return resp, nil
}

// SupportedTypes lists the request types with a registered handler.
func (p *Pipeline) SupportedTypes() []RequestType {
	out := make([]RequestType, 0, len(p.handlers))
	for t := range p.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
