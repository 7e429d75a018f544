package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	defaultModel  = "gpt-4o-mini"
	maxToolRounds = 6
)

// ChatClient is the part of the OpenAI client the generator uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient builds a chat client for an OpenAI compatible endpoint. An
// empty baseURL keeps the library default.
func NewOpenAIClient(apiKey, baseURL string, httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

// OpenAIGenerator asks a chat model for a desk, letting it call the lookup tools
// and forcing the answer into a strict JSON schema.
type OpenAIGenerator struct {
	client ChatClient
	model  string
	logger *slog.Logger
}

// OpenAIOption configures an OpenAIGenerator.
type OpenAIOption func(*OpenAIGenerator)

// WithModel sets the chat model name.
func WithModel(model string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if strings.TrimSpace(model) != "" {
			g.model = model
		}
	}
}

// WithGeneratorLogger sets the generator logger.
func WithGeneratorLogger(logger *slog.Logger) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewOpenAIGenerator wraps client.
func NewOpenAIGenerator(client ChatClient, opts ...OpenAIOption) *OpenAIGenerator {
	g := &OpenAIGenerator{client: client, model: defaultModel, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the tool-call loop until the model produces a final answer.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	if g == nil || g.client == nil {
		return Result{}, errors.New("openai generator not configured")
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.Instructions},
		{Role: openai.ChatMessageRoleUser, Content: req.Facts.Prompt()},
	}
	tools := toolDefinitions(req.Tools)

	for round := 0; round < maxToolRounds; round++ {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:          g.model,
			Messages:       messages,
			Tools:          tools,
			ResponseFormat: responseFormat(req.AllowedDesks),
		})
		if err != nil {
			return Result{}, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Result{}, errors.New("chat completion returned no choices")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return decodeResult(msg.Content)
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    g.invoke(ctx, req, call),
			})
		}
	}
	return Result{}, fmt.Errorf("no answer after %d tool rounds", maxToolRounds)
}

func (g *OpenAIGenerator) invoke(ctx context.Context, req Request, call openai.ToolCall) string {
	tool, ok := req.Tool(call.Function.Name)
	if !ok {
		return toolError(fmt.Sprintf("unknown tool %q", call.Function.Name))
	}

	var args map[string]string
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return toolError("arguments must be a JSON object")
	}

	values, err := tool.Invoke(ctx, args[tool.Parameter])
	if err != nil {
		g.logger.WarnContext(ctx, "tool call failed", "tool", tool.Name, "error", err)
		return toolError(err.Error())
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return toolError(err.Error())
	}
	return string(payload)
}

func toolError(message string) string {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return string(payload)
}

func toolDefinitions(tools []Tool) []openai.Tool {
	defs := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Strict:      true,
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						t.Parameter: {Type: jsonschema.String, Description: t.ParameterDescription},
					},
					Required:             []string{t.Parameter},
					AdditionalProperties: false,
				},
			},
		})
	}
	return defs
}

func responseFormat(allowed []string) *openai.ChatCompletionResponseFormat {
	desk := jsonschema.Definition{
		Type:        jsonschema.String,
		Description: "Identifier of the suggested desk.",
	}
	if len(allowed) > 0 {
		desk.Enum = append([]string(nil), allowed...)
	}
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   "desk_suggestion",
			Strict: true,
			Schema: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"deskNumber": desk,
					"reasoning":  {Type: jsonschema.String, Description: "Short explanation of the choice."},
				},
				Required:             []string{"deskNumber", "reasoning"},
				AdditionalProperties: false,
			},
		},
	}
}

func decodeResult(content string) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(content))))
	dec.DisallowUnknownFields()
	var out Result
	if err := dec.Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode answer: %w", err)
	}
	if strings.TrimSpace(out.DeskNumber) == "" || strings.TrimSpace(out.Reasoning) == "" {
		return Result{}, errors.New("answer is missing deskNumber or reasoning")
	}
	return out, nil
}
