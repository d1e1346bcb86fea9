package openai

import (
	"context"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

type testOutput struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

func TestClient_CompleteStructured(t *testing.T) {
	chat := new(MockChatAPI)
	client := newTestClient(nil, chat)

	chat.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == DefaultChatModel &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			req.ResponseFormat != nil &&
			req.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONSchema &&
			req.ResponseFormat.JSONSchema.Name == "summary" &&
			req.ResponseFormat.JSONSchema.Strict
	})).Return(completion(`{"summary":"Juega ajedrez","keywords":["ajedrez","club"]}`), nil)

	var out testOutput
	err := client.CompleteStructured(context.Background(), ChatRequest{System: "sys", User: "user"}, "summary", &out)

	require.NoError(t, err)
	assert.Equal(t, "Juega ajedrez", out.Summary)
	assert.Equal(t, []string{"ajedrez", "club"}, out.Keywords)
	chat.AssertExpectations(t)
}

func TestClient_CompleteStructured_InvalidOutput(t *testing.T) {
	chat := new(MockChatAPI)
	client := newTestClient(nil, chat)

	chat.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(completion(`{"summary":"sin keywords"}`), nil)

	var out testOutput
	err := client.CompleteStructured(context.Background(), ChatRequest{User: "user"}, "summary", &out)

	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestClient_CompleteJSON_NotJSON(t *testing.T) {
	chat := new(MockChatAPI)
	client := newTestClient(nil, chat)

	chat.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.ResponseFormat != nil && req.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONObject
	})).Return(completion("no es json"), nil)

	var out testOutput
	err := client.CompleteJSON(context.Background(), ChatRequest{User: "user"}, &out)

	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestClient_CompleteText_EmptyCompletion(t *testing.T) {
	chat := new(MockChatAPI)
	client := newTestClient(nil, chat)

	chat.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(openai.ChatCompletionResponse{}, nil)

	_, err := client.CompleteText(context.Background(), ChatRequest{User: "user"})

	assert.ErrorIs(t, err, ErrEmptyCompletion)
	chat.AssertNumberOfCalls(t, "CreateChatCompletion", 1)
}

func TestClient_CompleteText_RetriesServerError(t *testing.T) {
	chat := new(MockChatAPI)
	client := newTestClient(nil, chat)

	chat.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, &openai.APIError{HTTPStatusCode: http.StatusBadGateway}).Once()
	chat.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(completion("ajedrez club"), nil).Once()

	text, err := client.CompleteText(context.Background(), ChatRequest{User: "user"})

	require.NoError(t, err)
	assert.Equal(t, "ajedrez club", text)
}

func TestClient_CompleteText_NotConfigured(t *testing.T) {
	client := newTestClient(nil, nil)

	_, err := client.CompleteText(context.Background(), ChatRequest{User: "user"})

	assert.Error(t, err)
}

func TestRetryPolicy_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fastRetry().Do(ctx, func(ctx context.Context) error {
		calls++
		return &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, p.BaseDelay, p.backoff(1))
	assert.Equal(t, 2*p.BaseDelay, p.backoff(2))
	assert.Equal(t, p.MaxDelay, p.backoff(10))
}
