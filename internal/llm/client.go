// Package llm talks to an OpenAI-compatible chat completions endpoint and
// turns a free-form user utterance into at most one capability invocation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prismui/prism/internal/config"
	"github.com/prismui/prism/internal/dispatch"
	"github.com/prismui/prism/internal/errors"
	"github.com/prismui/prism/internal/intent"
)

const systemPrompt = `You are the intent router for a personal task and note
assistant. When the user's message maps onto one of the available tools, call
that tool with whatever arguments you can extract from the message. Call at
most one tool. If nothing fits, reply with a short plain-text sentence
instead of calling a tool. Never invent field values the user did not state.`

// Client selects capability invocations via an OpenAI-compatible API.
type Client struct {
	apiBase    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New builds a client from config. The API key is read from the environment
// variable named by cfg.LLMAPIKeyEnv; an empty key is allowed for local
// endpoints that do not check authorization.
func New(cfg *config.Config) *Client {
	return &Client{
		apiBase:    strings.TrimRight(cfg.LLMAPIBase, "/"),
		apiKey:     os.Getenv(cfg.LLMAPIKeyEnv),
		model:      cfg.LLMModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Result is the model's routing decision for one utterance.
// Invocation is nil when the model declined to call a tool; Reply then
// carries its plain-text answer.
type Result struct {
	Invocation *dispatch.Invocation
	Reply      string
}

// Decide sends the utterance with the compiled tool list and parses the
// model's choice. Transport and protocol failures come back as
// TRANSPORT_FAILURE so callers can fall back to the full capability surface.
func (c *Client) Decide(ctx context.Context, utterance string, tools []intent.ToolSpec) (*Result, error) {
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": utterance},
		},
	}
	if len(tools) > 0 {
		body["tools"] = wireTools(tools)
		body["tool_choice"] = "auto"
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransportFailure(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportFailure(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewTransportFailure(
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(raw), 300)))
	}

	return parseResponse(raw)
}

// wireTools wraps compiled tool specs in the chat completions function
// envelope.
func wireTools(tools []intent.ToolSpec) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return out
}

// respBody is the subset of the chat completion response we care about.
type respBody struct {
	Choices []struct {
		Message struct {
			Content   any `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func parseResponse(raw []byte) (*Result, error) {
	var body respBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errors.NewTransportFailure(fmt.Errorf("parse response: %w", err))
	}
	if len(body.Choices) == 0 {
		return nil, errors.NewTransportFailure(fmt.Errorf("empty choices in response"))
	}

	msg := body.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0].Function
		args, err := parseArguments(call.Arguments)
		if err != nil {
			return nil, errors.NewTransportFailure(
				fmt.Errorf("tool %s: bad arguments: %w", call.Name, err))
		}
		return &Result{
			Invocation: &dispatch.Invocation{Capability: call.Name, Arguments: args},
		}, nil
	}

	if s, ok := msg.Content.(string); ok {
		return &Result{Reply: s}, nil
	}
	return &Result{}, nil
}

// parseArguments unmarshals tool-call arguments, tolerating the empty
// string some models emit for zero-argument calls.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
