//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/florianreyes/shipba-rag/internal/config"
	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchResponse struct {
	Matches []domain.CandidateMatch `json:"matches"`
}

// seedWorkspace creates two active members, one invited member and returns
// them in that order.
func seedWorkspace(env *E2ETestEnv) (ana, beto, carla *Member) {
	env.Bootstrap()

	ana = env.AddMember("Ana", "ana@shipba.test", domain.MembershipStatusActive)
	beto = env.AddMember("Beto", "beto@shipba.test", domain.MembershipStatusAdmin)
	carla = env.AddMember("Carla", "carla@shipba.test", domain.MembershipStatusInvited)

	env.SetContent(ana, "Juego al ajedrez los domingos. Trabajo de programadora.", &domain.SocialHandles{Telegram: "ana_ajedrez"})
	env.SetContent(beto, "Juego al tenis en el club. Estudio diseño.", nil)
	env.SetContent(carla, "Enseño ajedrez a chicos del barrio.", nil)
	return ana, beto, carla
}

func TestE2E_ContextSearch(t *testing.T) {
	env := SetupE2EEnv(t, config.SearchModeContext)
	defer env.Cleanup()

	ana, beto, _ := seedWorkspace(env)

	t.Run("finds the member the query is about", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]string{"query": "quien juega al ajedrez"}, beto.Token)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))

		var out searchResponse
		resp.Decode(t, &out)
		require.Len(t, out.Matches, 1)
		assert.Equal(t, ana.ProfileID, out.Matches[0].ProfileID)
		assert.Equal(t, "Ana", out.Matches[0].Name)
		assert.Equal(t, "Juego al ajedrez los domingos. Trabajo de programadora.", out.Matches[0].Content)
		assert.Equal(t, "ana_ajedrez", out.Matches[0].Social.Telegram)
		assert.NotEmpty(t, out.Matches[0].Summary)
	})

	t.Run("invited members are not candidates", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]string{"query": "quien enseña ajedrez", "workspace_id": env.WorkspaceID}, ana.Token)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out searchResponse
		resp.Decode(t, &out)
		for _, m := range out.Matches {
			assert.NotEqual(t, "Carla", m.Name)
		}
	})

	t.Run("no match returns an empty list", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]string{"query": "quien cocina pastas"}, beto.Token)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"matches":[]}`, string(resp.Body))
	})

	t.Run("searches are logged", func(t *testing.T) {
		n := env.CountRows("search_logs", "workspace_id = $1 AND profile_id = $2", env.WorkspaceID, beto.ProfileID)
		assert.GreaterOrEqual(t, n, 2)
	})

	t.Run("provider failure is a generic 500", func(t *testing.T) {
		env.LLM.FailChat(true)
		defer env.LLM.FailChat(false)

		resp, err := env.Post("/search", map[string]string{"query": "quien juega al ajedrez"}, beto.Token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "search failed", resp.ErrorMessage())
	})
}

func TestE2E_VectorSearch(t *testing.T) {
	env := SetupE2EEnv(t, config.SearchModeVector)
	defer env.Cleanup()

	ana, beto, carla := seedWorkspace(env)

	t.Run("content is chunked and embedded", func(t *testing.T) {
		assert.Equal(t, 2, env.CountRows("profile_chunks", "profile_id = $1", ana.ProfileID))
		assert.Equal(t, 1, env.CountRows("profile_chunks", "profile_id = $1", carla.ProfileID))
	})

	t.Run("ranks, summarizes and tags matches", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]string{"query": "quien juega al ajedrez"}, beto.Token)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))

		var out searchResponse
		resp.Decode(t, &out)
		require.Len(t, out.Matches, 1)
		assert.Equal(t, ana.ProfileID, out.Matches[0].ProfileID)
		assert.Equal(t, "le interesa ajedrez", out.Matches[0].Summary)
		assert.Contains(t, out.Matches[0].Keywords, "ajedrez")
	})

	t.Run("unrelated query finds nobody", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]string{"query": "quien cocina pastas"}, beto.Token)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out searchResponse
		resp.Decode(t, &out)
		assert.Empty(t, out.Matches)
	})

	t.Run("rewriting content replaces the chunks", func(t *testing.T) {
		env.SetContent(ana, "Cocino pastas caseras.", nil)
		assert.Equal(t, 1, env.CountRows("profile_chunks", "profile_id = $1", ana.ProfileID))

		resp, err := env.Post("/search", map[string]string{"query": "quien cocina pastas"}, beto.Token)
		require.NoError(t, err)

		var out searchResponse
		resp.Decode(t, &out)
		require.Len(t, out.Matches, 1)
		assert.Equal(t, ana.ProfileID, out.Matches[0].ProfileID)
	})
}

func TestE2E_SearchScope(t *testing.T) {
	env := SetupE2EEnv(t, config.SearchModeContext)
	defer env.Cleanup()

	_, beto, carla := seedWorkspace(env)

	other, err := env.App.Workspaces.CreateWorkspace(env.Ctx, "Otro", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		body   map[string]string
		status int
	}{
		{"missing key", "", map[string]string{"query": "quien juega al ajedrez"}, http.StatusUnauthorized},
		{"unknown key", "shp_" + strings.Repeat("0", 64), map[string]string{"query": "quien juega al ajedrez"}, http.StatusUnauthorized},
		{"query too short", beto.Token, map[string]string{"query": "ab"}, http.StatusBadRequest},
		{"invited member has no scope", carla.Token, map[string]string{"query": "quien juega al ajedrez"}, http.StatusBadRequest},
		{"foreign workspace", beto.Token, map[string]string{"query": "quien juega al ajedrez", "workspace_id": other.ID}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.Post("/search", tt.body, tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode, string(resp.Body))
			assert.NotEmpty(t, resp.ErrorMessage())
		})
	}
}

func TestE2E_Profile(t *testing.T) {
	env := SetupE2EEnv(t, config.SearchModeContext)
	defer env.Cleanup()

	env.Bootstrap()
	dani := env.AddMember("Dani", "dani@shipba.test", domain.MembershipStatusActive)

	t.Run("form is public", func(t *testing.T) {
		resp, err := env.Get("/form", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var form struct {
			Fields []struct {
				Key string `json:"key"`
			} `json:"fields"`
		}
		resp.Decode(t, &form)
		assert.NotEmpty(t, form.Fields)
	})

	t.Run("new profile starts empty", func(t *testing.T) {
		resp, err := env.Get("/profiles/me", dani.Token)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var p struct {
			Mail    string `json:"mail"`
			Content string `json:"content"`
		}
		resp.Decode(t, &p)
		assert.Equal(t, "dani@shipba.test", p.Mail)
		assert.Empty(t, p.Content)
	})

	t.Run("content update is stored and indexed", func(t *testing.T) {
		env.SetContent(dani, "Juego al tenis. Cocino recetas de mi abuela.", &domain.SocialHandles{X: "@dani"})

		resp, err := env.Get("/profiles/me", dani.Token)
		require.NoError(t, err)

		var p struct {
			Content string               `json:"content"`
			Social  domain.SocialHandles `json:"social"`
		}
		resp.Decode(t, &p)
		assert.Equal(t, "Juego al tenis. Cocino recetas de mi abuela.", p.Content)
		assert.Equal(t, "@dani", p.Social.X)
		assert.Equal(t, 2, env.CountRows("profile_chunks", "profile_id = $1", dani.ProfileID))
	})

	t.Run("members can issue their own keys", func(t *testing.T) {
		resp, err := env.Post("/apikeys", map[string]string{"name": "laptop"}, dani.Token)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var key struct {
			Token string `json:"token"`
			Name  string `json:"name"`
		}
		resp.Decode(t, &key)
		assert.Len(t, key.Token, 68) // shp_ + 64 hex chars
		assert.Equal(t, "laptop", key.Name)

		me, err := env.Get("/profiles/me", key.Token)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, me.StatusCode)
	})
}

func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t, config.SearchModeContext)
	defer env.Cleanup()

	env.BuildBinaries()
	ana, beto, _ := seedWorkspace(env)

	t.Run("init saves verified credentials", func(t *testing.T) {
		workDir := t.TempDir()
		out, err := env.RunShipba(workDir, nil, "init", "--api-key", beto.Token, "--api-url", env.ServerURL)
		require.NoError(t, err, out)
		assert.Contains(t, out, "Authenticated as Beto <beto@shipba.test>")

		out, err = env.RunShipba(workDir, nil, "auth", "status")
		require.NoError(t, err, out)
		assert.Contains(t, out, "Source:    global_config")
		assert.NotContains(t, out, beto.Token)
	})

	t.Run("search prints matches", func(t *testing.T) {
		out, err := env.RunShipba(t.TempDir(), beto, "search", "quien juega al ajedrez", "-w", env.WorkspaceID)
		require.NoError(t, err, out)
		assert.Contains(t, out, "Found 1 matches:")
		assert.Contains(t, out, "1. Ana")
		assert.Contains(t, out, "ana_ajedrez")
	})

	t.Run("search json output", func(t *testing.T) {
		out, err := env.RunShipba(t.TempDir(), beto, "--output", "search", "quien juega al ajedrez")
		require.NoError(t, err, out)

		var resp searchResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
		require.Len(t, resp.Matches, 1)
		assert.Equal(t, ana.ProfileID, resp.Matches[0].ProfileID)
	})

	t.Run("profile show", func(t *testing.T) {
		out, err := env.RunShipba(t.TempDir(), ana, "profile", "show")
		require.NoError(t, err, out)
		assert.Contains(t, out, "ajedrez")
	})

	t.Run("admin search and search log", func(t *testing.T) {
		out, err := env.RunShipbad("search", "quien juega al ajedrez", "--workspace", env.WorkspaceID)
		require.NoError(t, err, out)
		assert.Contains(t, out, "Ana")

		out, err = env.RunShipbad("searchlog", "list", "--workspace", env.WorkspaceID)
		require.NoError(t, err, out)
		assert.Contains(t, out, `"quien juega al ajedrez"`)
		assert.Contains(t, out, "(by cli)")
	})

	t.Run("admin member list", func(t *testing.T) {
		out, err := env.RunShipbad("member", "list", "--workspace", env.WorkspaceID)
		require.NoError(t, err, out)
		assert.Contains(t, out, "ana@shipba.test")
		assert.Contains(t, out, "invited")
	})
}
