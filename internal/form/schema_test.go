package form

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
version: 1
fields:
  - key: hobby
    question: "¿Qué hacés los fines de semana?"
    kind: text
    min_length: 5
    required: true
  - key: topics
    question: "Temas que te apasionan:"
    kind: choices
    min_length: 2
    required: true
    options: [Ajedrez, Tenis, Música]
  - key: extra
    question: "Algo más"
    kind: text
`

func mustParse(t *testing.T) *Schema {
	t.Helper()
	s, err := Parse([]byte(testSchema))
	require.NoError(t, err)
	return s
}

func TestDefault_Loads(t *testing.T) {
	s := Default()
	require.NotEmpty(t, s.Fields)

	f, ok := s.Field("passions")
	require.True(t, ok)
	assert.Equal(t, KindChoices, f.Kind)
	assert.Contains(t, f.Options, "Tecnología")
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Fields, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"no fields", "version: 1\nfields: []\n", "no fields"},
		{"duplicate", "fields:\n  - {key: a, question: q, kind: text}\n  - {key: a, question: q, kind: text}\n", "twice"},
		{"bad kind", "fields:\n  - {key: a, question: q, kind: date}\n", "unknown kind"},
		{"no question", "fields:\n  - {key: a, kind: text}\n", "no question"},
		{"not yaml", "fields: [", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestBuildContent_StableOrder(t *testing.T) {
	s := mustParse(t)

	// Answers arrive in arbitrary order; content follows the form.
	answers := []domain.ProfileAnswer{
		{Key: "extra", Value: "  Tengo un perro  "},
		{Key: "topics", Value: "Ajedrez,  Música"},
		{Key: "hobby", Value: "Juego al ajedrez en el club"},
	}

	content, normalized, err := s.BuildContent(answers)
	require.NoError(t, err)

	expected := "¿Qué hacés los fines de semana?: Juego al ajedrez en el club\n" +
		"Temas que te apasionan: Ajedrez, Música\n" +
		"Algo más: Tengo un perro"
	assert.Equal(t, expected, content)
	require.Len(t, normalized, 3)
	assert.Equal(t, "hobby", normalized[0].Key)
	assert.Equal(t, "Temas que te apasionan:", normalized[1].Question)
}

func TestBuildContent_SameAnswersSameContent(t *testing.T) {
	s := mustParse(t)
	a := []domain.ProfileAnswer{{Key: "hobby", Value: "Juego tenis"}, {Key: "topics", Value: "Tenis, Música"}}
	b := []domain.ProfileAnswer{{Key: "topics", Value: "Tenis, Música"}, {Key: "hobby", Value: "Juego tenis"}}

	ca, _, err := s.BuildContent(a)
	require.NoError(t, err)
	cb, _, err := s.BuildContent(b)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}

func TestNormalize_Errors(t *testing.T) {
	s := mustParse(t)

	tests := []struct {
		name    string
		answers []domain.ProfileAnswer
		msg     string
	}{
		{
			name:    "unknown key",
			answers: []domain.ProfileAnswer{{Key: "hobby", Value: "Juego tenis"}, {Key: "topics", Value: "Tenis, Música"}, {Key: "age", Value: "30"}},
			msg:     "unknown form fields: age",
		},
		{
			name:    "missing required",
			answers: []domain.ProfileAnswer{{Key: "topics", Value: "Tenis, Música"}},
			msg:     "hobby is required",
		},
		{
			name:    "too short",
			answers: []domain.ProfileAnswer{{Key: "hobby", Value: "yo"}, {Key: "topics", Value: "Tenis, Música"}},
			msg:     "at least 5 characters",
		},
		{
			name:    "not enough choices",
			answers: []domain.ProfileAnswer{{Key: "hobby", Value: "Juego tenis"}, {Key: "topics", Value: "Tenis"}},
			msg:     "at least 2 choices",
		},
		{
			name:    "unknown choice",
			answers: []domain.ProfileAnswer{{Key: "hobby", Value: "Juego tenis"}, {Key: "topics", Value: "Tenis, Pádel"}},
			msg:     "unknown choices: Pádel",
		},
		{
			name:    "duplicate answer",
			answers: []domain.ProfileAnswer{{Key: "hobby", Value: "Juego tenis"}, {Key: "hobby", Value: "Juego pádel"}},
			msg:     "more than once",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Normalize(tt.answers)
			require.Error(t, err)
			assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRenderContent_FallsBackToKey(t *testing.T) {
	content := RenderContent([]domain.ProfileAnswer{{Key: "bio", Value: "Hola"}})
	assert.Equal(t, "bio: Hola", content)
}
