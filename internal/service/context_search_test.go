package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fixedTokens charges the same cost for every text.
type fixedTokens int

func (f fixedTokens) CountTokens(string) int { return int(f) }

func TestContextSearch_StrictnessContract(t *testing.T) {
	candidates := new(MockCandidateSource)
	llm := new(MockLLM)
	ctx := context.Background()

	tenis := testProfile("p1", "Ana", "Juego al tenis todos los sábados.")
	futbol := testProfile("p2", "Beto", "Me gusta el futbol.")
	candidates.On("ListEligibleProfiles", mock.Anything, "ws-1").Return([]*domain.Profile{tenis, futbol}, nil)

	// The stub curator behaves like a model honoring the policy it was given:
	// it only returns p1 when the tennis/padel rule is present in the prompt.
	llm.On("CompleteStructured", mock.Anything, mock.MatchedBy(func(req openai.ChatRequest) bool {
		return req.System == curatorSystemPrompt &&
			strings.Contains(req.User, "CONSULTA DE BÚSQUEDA: quien juega tenis") &&
			strings.Contains(req.User, strictnessPolicy) &&
			strings.Contains(req.User, "USER_ID: p2")
	}), "profile_matches", mock.AnythingOfType("*service.curatorOutput")).
		Run(fillOutput(3, curatorOutput{Matches: []curatorMatch{{
			UserID:         "p1",
			ContentSummary: "juega al tenis los sábados",
			Keywords:       []string{"tenis", "sábados"},
			MatchReason:    "juega al tenis",
		}}})).
		Return(nil)

	s := NewContextSearch(candidates, llm, nil, ContextSearchConfig{}, nil)
	matches, err := s.Search(ctx, "quien juega tenis", "ws-1")
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "p1", matches[0].ProfileID)
	for _, m := range matches {
		assert.NotEqual(t, "p2", m.ProfileID)
	}
	llm.AssertExpectations(t)
}

func TestContextSearch_EmptyPool(t *testing.T) {
	candidates := new(MockCandidateSource)
	llm := new(MockLLM)

	candidates.On("ListEligibleProfiles", mock.Anything, "ws-1").Return([]*domain.Profile{
		testProfile("p1", "Ana", "   "),
	}, nil)

	s := NewContextSearch(candidates, llm, nil, ContextSearchConfig{}, nil)
	matches, err := s.Search(context.Background(), "quien cocina", "ws-1")
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
	llm.AssertNotCalled(t, "CompleteStructured", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestContextSearch_TrustsModelOnlyForGeneratedFields(t *testing.T) {
	candidates := new(MockCandidateSource)
	llm := new(MockLLM)

	ana := testProfile("p1", "Ana", "Cocino pastas caseras.")
	ana.Social = domain.SocialHandles{Telegram: "ana_cocina"}
	beto := testProfile("p2", "Beto", "Hago pan de masa madre.")
	candidates.On("ListEligibleProfiles", mock.Anything, "ws-1").Return([]*domain.Profile{ana, beto}, nil)

	llm.On("CompleteStructured", mock.Anything, mock.Anything, "profile_matches", mock.Anything).
		Run(fillOutput(3, curatorOutput{Matches: []curatorMatch{
			{UserID: "invented", Name: "Nadie", ContentSummary: "x"},
			{UserID: " p1 ", Name: "Otra Persona", Content: "contenido inventado", ContentSummary: "cocina pastas", Keywords: []string{"pastas", "cocina casera", "Pastas", "cocina"}},
			{UserID: "p1", ContentSummary: "duplicado"},
			{UserID: "p2", ContentSummary: strings.Repeat("pan ", 200), Keywords: nil},
		}})).
		Return(nil)

	s := NewContextSearch(candidates, llm, nil, ContextSearchConfig{SummaryMaxChars: 40}, nil)
	matches, err := s.Search(context.Background(), "quien cocina", "ws-1")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "p1", matches[0].ProfileID)
	assert.Equal(t, "Ana", matches[0].Name)
	assert.Equal(t, "Cocino pastas caseras.", matches[0].Content)
	assert.Equal(t, "ana_cocina", matches[0].Social.Telegram)
	assert.Equal(t, "cocina pastas", matches[0].Summary)
	assert.Equal(t, []string{"pastas", "cocina"}, matches[0].Keywords)

	assert.Equal(t, "p2", matches[1].ProfileID)
	assert.LessOrEqual(t, len([]rune(matches[1].Summary)), 40)
	assert.True(t, strings.HasSuffix(matches[1].Summary, "..."))
	assert.Equal(t, []string{}, matches[1].Keywords)
}

func TestContextSearch_CapsAtFiveMatches(t *testing.T) {
	candidates := new(MockCandidateSource)
	llm := new(MockLLM)

	var pool []*domain.Profile
	var raw []curatorMatch
	for i := range 8 {
		id := fmt.Sprintf("p%d", i)
		pool = append(pool, testProfile(id, "Persona", "Me gusta correr."))
		raw = append(raw, curatorMatch{UserID: id, ContentSummary: "corre"})
	}
	candidates.On("ListEligibleProfiles", mock.Anything, "ws-1").Return(pool, nil)
	llm.On("CompleteStructured", mock.Anything, mock.Anything, "profile_matches", mock.Anything).
		Run(fillOutput(3, curatorOutput{Matches: raw})).
		Return(nil)

	s := NewContextSearch(candidates, llm, nil, ContextSearchConfig{}, nil)
	matches, err := s.Search(context.Background(), "quien corre", "ws-1")
	require.NoError(t, err)
	require.Len(t, matches, maxCuratedMatches)
	assert.Equal(t, "p4", matches[4].ProfileID)
}

func TestContextSearch_ContextBudget(t *testing.T) {
	candidates := new(MockCandidateSource)
	llm := new(MockLLM)

	pool := []*domain.Profile{
		testProfile("p1", "Ana", "uno."),
		testProfile("p2", "Beto", "dos."),
		testProfile("p3", "Carla", "tres."),
	}
	candidates.On("ListEligibleProfiles", mock.Anything, "ws-1").Return(pool, nil)
	llm.On("CompleteStructured", mock.Anything, mock.MatchedBy(func(req openai.ChatRequest) bool {
		return strings.Contains(req.User, "USER_ID: p2") && !strings.Contains(req.User, "USER_ID: p3")
	}), "profile_matches", mock.Anything).
		Run(fillOutput(3, curatorOutput{Matches: []curatorMatch{{UserID: "p3"}}})).
		Return(nil)

	// prompt 10 + two blocks of 10 fit in 35, the third does not.
	s := NewContextSearch(candidates, llm, fixedTokens(10), ContextSearchConfig{MaxContextTokens: 35}, nil)
	matches, err := s.Search(context.Background(), "quien cuenta", "ws-1")
	require.NoError(t, err)
	assert.Empty(t, matches)
	llm.AssertExpectations(t)
}

func TestContextSearch_Failures(t *testing.T) {
	t.Run("candidates", func(t *testing.T) {
		candidates := new(MockCandidateSource)
		dbErr := errors.New("db down")
		candidates.On("ListEligibleProfiles", mock.Anything, "ws-1").Return(nil, dbErr)

		s := NewContextSearch(candidates, new(MockLLM), nil, ContextSearchConfig{}, nil)
		_, err := s.Search(context.Background(), "quien cocina", "ws-1")
		require.ErrorIs(t, err, dbErr)
		assert.Equal(t, "load_candidates", failedStage(err))
	})

	t.Run("curator", func(t *testing.T) {
		candidates := new(MockCandidateSource)
		llm := new(MockLLM)
		candidates.On("ListEligibleProfiles", mock.Anything, "ws-1").Return([]*domain.Profile{testProfile("p1", "Ana", "x.")}, nil)
		llm.On("CompleteStructured", mock.Anything, mock.Anything, "profile_matches", mock.Anything).Return(openai.ErrInvalidOutput)

		s := NewContextSearch(candidates, llm, nil, ContextSearchConfig{}, nil)
		_, err := s.Search(context.Background(), "quien cocina", "ws-1")
		require.ErrorIs(t, err, openai.ErrInvalidOutput)
		assert.Equal(t, "curate", failedStage(err))
	})
}

func TestBuildContext(t *testing.T) {
	ana := testProfile("p1", "Ana", "Juego al tenis.")
	ana.Social = domain.SocialHandles{X: "@ana", Instagram: "ana.ig"}
	anon := testProfile("p2", "", "Cocino.")
	empty := testProfile("p3", "Carla", "")

	got := BuildContext([]*domain.Profile{ana, anon, empty})
	want := "USER_ID: p1\nNAME: Ana\nCONTENT: Juego al tenis.\nSOCIAL: X: @ana, Instagram: ana.ig\n---\n" +
		"\n" +
		"USER_ID: p2\nNAME: Unknown\nCONTENT: Cocino.\n---\n"
	assert.Equal(t, want, got)
}
