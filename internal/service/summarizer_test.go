package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/florianreyes/shipba-rag/internal/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRelevanceSummarizer_Relevant(t *testing.T) {
	llm := new(MockLLM)
	s := NewRelevanceSummarizer(llm, 0, nil)
	ctx := context.Background()

	llm.On("CompleteJSON", ctx, mock.MatchedBy(func(req openai.ChatRequest) bool {
		return strings.Contains(req.User, "quien juega al ajedrez") && strings.Contains(req.User, "150 caracteres")
	}), mock.AnythingOfType("*service.summaryOutput")).
		Run(fillOutput(2, summaryOutput{ShouldRender: true, Summary: " juega al ajedrez los fines de semana "})).
		Return(nil)

	got := s.Summarize(ctx, "Juego al ajedrez los fines de semana.", "quien juega al ajedrez")
	assert.True(t, got.ShouldRender)
	assert.False(t, got.NeedsReview)
	assert.Equal(t, "juega al ajedrez los fines de semana", got.Summary)
	assert.Equal(t, got.Summary, got.Text())
}

func TestRelevanceSummarizer_Rejected(t *testing.T) {
	llm := new(MockLLM)
	s := NewRelevanceSummarizer(llm, 150, nil)

	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).
		Run(fillOutput(2, summaryOutput{ShouldRender: false, Summary: "le gusta el fútbol", Reason: "habla de fútbol, no de tenis"})).
		Return(nil)

	got := s.Summarize(context.Background(), "Me gusta el fútbol.", "quien juega tenis")
	assert.False(t, got.ShouldRender)
	assert.Equal(t, "habla de fútbol, no de tenis", got.Text())
}

func TestRelevanceSummarizer_RejectedWithoutReason(t *testing.T) {
	llm := new(MockLLM)
	s := NewRelevanceSummarizer(llm, 150, nil)

	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).
		Run(fillOutput(2, summaryOutput{ShouldRender: false})).
		Return(nil)

	got := s.Summarize(context.Background(), "Me gusta el fútbol.", "quien juega tenis")
	assert.Equal(t, rejectedReasonFallback, got.Reason)
}

func TestRelevanceSummarizer_FailsOpen(t *testing.T) {
	llm := new(MockLLM)
	s := NewRelevanceSummarizer(llm, 20, nil)

	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Return(openai.ErrInvalidOutput)

	got := s.Summarize(context.Background(), "Soy fotógrafa y viajo mucho por la Patagonia.", "fotografía")
	assert.True(t, got.ShouldRender)
	assert.True(t, got.NeedsReview)
	assert.Equal(t, "Soy fotógrafa y...", got.Summary)
}

func TestRelevanceSummarizer_EmptySummaryUsesContent(t *testing.T) {
	llm := new(MockLLM)
	s := NewRelevanceSummarizer(llm, 150, nil)

	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).
		Run(fillOutput(2, summaryOutput{ShouldRender: true, Summary: "  "})).
		Return(nil)

	got := s.Summarize(context.Background(), "Hago cerámica.", "cerámica")
	assert.Equal(t, "Hago cerámica.", got.Summary)
	assert.True(t, got.NeedsReview)
}

func TestRelevanceSummarizer_TransportError(t *testing.T) {
	llm := new(MockLLM)
	s := NewRelevanceSummarizer(llm, 150, nil)

	llm.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	got := s.Summarize(context.Background(), "Hago cerámica.", "cerámica")
	assert.True(t, got.ShouldRender)
	assert.Equal(t, "Hago cerámica.", got.Summary)
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short text untouched", in: "hola", max: 10, want: "hola"},
		{name: "cuts on word boundary", in: "me gusta mucho el ajedrez", max: 15, want: "me gusta..."},
		{name: "counts runes not bytes", in: "ñandú ñandú", max: 11, want: "ñandú ñandú"},
		{name: "no space falls back to hard cut", in: "abcdefghijkl", max: 8, want: "abcde..."},
		{name: "tiny limit", in: "abcdef", max: 2, want: "ab"},
		{name: "zero means no limit", in: "abc", max: 0, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateText(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			if tt.max > 0 {
				assert.LessOrEqual(t, len([]rune(got)), tt.max)
			}
		})
	}
}
