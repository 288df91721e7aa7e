package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oraculo-ai/oraculo/internal/model"
)

// OllamaClient talks to a local Ollama server's chat API with native
// tool calling. Inference stays on-premises: no external API costs, and
// sales data never leaves the network.
type OllamaClient struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewOllamaClient creates a chat client for the given Ollama server and
// model. timeout bounds each Generate call end to end.
func NewOllamaClient(baseURL, chatModel string, temperature float64, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaClient{
		baseURL:     baseURL,
		model:       chatModel,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model identifier.
func (c *OllamaClient) Model() string { return c.model }

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []wireMessage  `json:"messages"`
	Tools    []wireTool     `json:"tools,omitempty"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type wireMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolName  string     `json:"tool_name,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaChatResponse struct {
	Message wireMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Generate sends the accumulated context plus the tool catalog and
// returns the model's next message: either free text (final answer) or
// one tool call.
func (c *OllamaClient) Generate(ctx context.Context, messages []Message, catalog []model.ToolDescriptor) (Message, error) {
	req := ollamaChatRequest{
		Model:   c.model,
		Stream:  false,
		Options: map[string]any{"temperature": c.temperature},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, wireMessage{
			Role: m.Role, Content: m.Content, ToolName: m.ToolName, ToolCalls: m.ToolCalls,
		})
	}
	for _, desc := range catalog {
		req.Tools = append(req.Tools, descriptorToWire(desc))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Message{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Message{}, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return Message{}, fmt.Errorf("ollama: %w", model.ErrModelTimeout)
		}
		return Message{}, fmt.Errorf("ollama: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Message{}, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(detail))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Message{}, fmt.Errorf("ollama: decode response: %w", err)
	}

	return Message{
		Role:      RoleAssistant,
		Content:   chatResp.Message.Content,
		ToolCalls: chatResp.Message.ToolCalls,
	}, nil
}

// descriptorToWire converts a ToolDescriptor into the JSON-schema shape
// the chat API expects.
func descriptorToWire(desc model.ToolDescriptor) wireTool {
	properties := make(map[string]any, len(desc.Params))
	var required []string
	for _, p := range desc.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return wireTool{
		Type: "function",
		Function: wireFunction{
			Name:        desc.Name,
			Description: desc.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// isClientTimeout detects the http.Client timeout, which surfaces as a
// url.Error with Timeout() true rather than context.DeadlineExceeded.
func isClientTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
