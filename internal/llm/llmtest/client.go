// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/nelssec/llm-workflows/internal/llm"
)

// Client replays queued responses in order and records every request.
type Client struct {
	mu        sync.Mutex
	responses []*llm.Response
	errs      []error
	Requests  []*llm.Request
}

func New() *Client {
	return &Client{}
}

// Reply queues a plain text reply.
func (c *Client) Reply(content string) *Client {
	return c.push(&llm.Response{Content: content, StopReason: llm.StopEndTurn}, nil)
}

// ReplyJSON queues a reply whose content is v encoded as JSON.
func (c *Client) ReplyJSON(v interface{}) *Client {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return c.Reply(string(b))
}

// ReplyToolCall queues a reply requesting a single tool call.
func (c *Client) ReplyToolCall(id, name string, input interface{}) *Client {
	b, err := json.Marshal(input)
	if err != nil {
		panic(err)
	}
	return c.push(&llm.Response{
		ToolCalls:  []llm.ToolCall{{ID: id, Name: name, Input: b}},
		StopReason: llm.StopToolUse,
	}, nil)
}

// Fail queues an error.
func (c *Client) Fail(err error) *Client {
	return c.push(nil, err)
}

func (c *Client) push(resp *llm.Response, err error) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, resp)
	c.errs = append(c.errs, err)
	return c
}

func (c *Client) Name() string {
	return "scripted"
}

func (c *Client) Chat(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Requests = append(c.Requests, req)
	if len(c.responses) == 0 {
		return nil, errors.New("llmtest: no scripted response left")
	}

	resp, err := c.responses[0], c.errs[0]
	c.responses, c.errs = c.responses[1:], c.errs[1:]
	return resp, err
}

func (c *Client) ChatStream(ctx context.Context, req *llm.Request, onChunk func(string)) (*llm.Response, error) {
	resp, err := c.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if onChunk != nil && resp.Content != "" {
		onChunk(resp.Content)
	}
	return resp, nil
}

// Calls reports how many requests were made.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

// Pending reports how many scripted responses are still queued.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}
