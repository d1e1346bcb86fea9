package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// DefaultChatModel is used for curation, summaries, keywords and query expansion.
const DefaultChatModel = openai.GPT4oMini

var (
	// ErrEmptyCompletion is returned when the provider sends no choices or an empty message.
	ErrEmptyCompletion = errors.New("no completion content returned")
	// ErrInvalidOutput is returned when model output does not match the requested schema.
	ErrInvalidOutput = errors.New("model output does not match schema")
)

// ChatAPI is the subset of the SDK used for chat completions.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatAdapter forwards chat completions to the SDK client.
type ChatAdapter struct {
	client *openai.Client
}

func NewChatAdapter(client *openai.Client) *ChatAdapter {
	return &ChatAdapter{client: client}
}

func (a *ChatAdapter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return a.client.CreateChatCompletion(ctx, req)
}

// ChatRequest is a single-turn prompt.
type ChatRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

func (c *Client) buildRequest(req ChatRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	return openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.chat == nil {
		return "", errors.New("chat completions not configured")
	}

	var content string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.chat.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return ErrEmptyCompletion
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return content, nil
}

// CompleteText returns the raw assistant message.
func (c *Client) CompleteText(ctx context.Context, req ChatRequest) (string, error) {
	return c.complete(ctx, c.buildRequest(req))
}

// CompleteStructured asks for output matching out's JSON schema (strict mode)
// and decodes it into out. out must be a pointer to a struct.
func (c *Client) CompleteStructured(ctx context.Context, req ChatRequest, schemaName string, out any) error {
	schema, err := jsonschema.GenerateSchemaForType(out)
	if err != nil {
		return fmt.Errorf("failed to build schema %s: %w", schemaName, err)
	}

	chatReq := c.buildRequest(req)
	chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schemaName,
			Schema: schema,
			Strict: true,
		},
	}

	content, err := c.complete(ctx, chatReq)
	if err != nil {
		return err
	}
	return decode(schema, content, out)
}

// CompleteJSON uses JSON mode and validates the result against out's schema.
// The prompt itself must describe the expected shape.
func (c *Client) CompleteJSON(ctx context.Context, req ChatRequest, out any) error {
	schema, err := jsonschema.GenerateSchemaForType(out)
	if err != nil {
		return fmt.Errorf("failed to build schema: %w", err)
	}

	chatReq := c.buildRequest(req)
	chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}

	content, err := c.complete(ctx, chatReq)
	if err != nil {
		return err
	}
	return decode(schema, content, out)
}

func decode(schema *jsonschema.Definition, content string, out any) error {
	if err := schema.Unmarshal(content, out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	return nil
}
