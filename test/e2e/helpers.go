//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/florianreyes/shipba-rag/internal/cli/admin"
	"github.com/florianreyes/shipba-rag/internal/config"
	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	LLM          *FakeOpenAI
	Config       *config.Config
	App          *admin.App
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	WorkspaceID  string
	HTTPClient   *http.Client
}

// Member is a bootstrapped profile with its plaintext API key.
type Member struct {
	ProfileID string
	Name      string
	Mail      string
	Token     string
}

// SetupE2EEnv starts Postgres, the fake model provider and the API server in
// the given search mode.
func SetupE2EEnv(t *testing.T, searchMode string) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	llm := NewFakeOpenAI()

	cfg := testConfig(pgC.ConnectionString(), llm.BaseURL(), searchMode)

	app, err := admin.NewApp(cfg, pool, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to wire app: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, app.Handler, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		LLM:          llm,
		Config:       cfg,
		App:          app,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func testConfig(databaseURL, openAIBaseURL, searchMode string) *config.Config {
	return &config.Config{
		Port:                    "0",
		DatabaseURL:             databaseURL,
		DBMaxConns:              5,
		OpenAIAPIKey:            "sk-e2e",
		OpenAIBaseURL:           openAIBaseURL,
		EmbeddingModel:          "text-embedding-ada-002",
		EmbeddingDimensions:     fakeDimensions,
		ChatModel:               "gpt-4o-mini",
		LLMMaxRetries:           1,
		SearchMode:              searchMode,
		SearchTimeout:           20 * time.Second,
		VectorMinSimilarity:     0.5,
		VectorLimit:             6,
		SummaryMaxChars:         150,
		CuratorSummaryMaxChars:  400,
		CuratorMaxContextTokens: 100000,
		EnrichPoolSize:          4,
		KeywordCount:            5,
		Environment:             "test",
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.App != nil {
		e.App.Close()
	}
	if e.LLM != nil {
		e.LLM.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		_ = os.RemoveAll(e.BinaryDir)
	}
}

// Bootstrap creates the workspace every member is added to.
func (e *E2ETestEnv) Bootstrap() {
	ws, err := e.App.Workspaces.CreateWorkspace(e.Ctx, "Shipba E2E", "end to end workspace")
	if err != nil {
		e.T.Fatalf("failed to create workspace: %v", err)
	}
	e.WorkspaceID = ws.ID
}

// AddMember creates a profile, joins it to the workspace with status and
// issues an API key for it.
func (e *E2ETestEnv) AddMember(name, mail string, status domain.MembershipStatus) *Member {
	profile, err := e.App.Profiles.Create(e.Ctx, name, mail)
	if err != nil {
		e.T.Fatalf("failed to create profile %s: %v", mail, err)
	}
	if _, err := e.App.Workspaces.AddMember(e.Ctx, e.WorkspaceID, profile.ID, status); err != nil {
		e.T.Fatalf("failed to add member %s: %v", mail, err)
	}
	token, err := e.App.Auth.CreateAPIKey(e.Ctx, profile.ID, "e2e")
	if err != nil {
		e.T.Fatalf("failed to create API key for %s: %v", mail, err)
	}
	return &Member{ProfileID: profile.ID, Name: name, Mail: mail, Token: token}
}

// SetContent writes member content through the API so it gets indexed.
func (e *E2ETestEnv) SetContent(m *Member, content string, social *domain.SocialHandles) {
	body := map[string]any{"content": content}
	if social != nil {
		body["social"] = social
	}
	resp, err := e.Put("/profiles/me/content", body, m.Token)
	if err != nil {
		e.T.Fatalf("failed to set content for %s: %v", m.Mail, err)
	}
	if resp.StatusCode != http.StatusOK {
		e.T.Fatalf("set content for %s: HTTP %d: %s", m.Mail, resp.StatusCode, resp.Body)
	}
}

// BuildBinaries builds the shipba and shipbad binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "shipba-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"shipbad", "shipba"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunShipba runs the client CLI as m with an isolated config directory.
func (e *E2ETestEnv) RunShipba(workDir string, m *Member, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "shipba"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+workDir,
		"SHIPBA_API_URL="+e.ServerURL,
		"SHIPBA_WORKSPACE=",
	)
	if m != nil {
		cmd.Env = append(cmd.Env, "SHIPBA_API_KEY="+m.Token)
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// RunShipbad runs the admin CLI against the test database.
func (e *E2ETestEnv) RunShipbad(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "shipbad"), args...)
	cmd.Dir = e.T.TempDir()
	cmd.Env = append(os.Environ(),
		"SHIPBA_DATABASE_URL="+e.Config.DatabaseURL,
		"SHIPBA_OPENAI_API_KEY="+e.Config.OpenAIAPIKey,
		"SHIPBA_OPENAI_BASE_URL="+e.Config.OpenAIBaseURL,
		"SHIPBA_SEARCH_MODE="+e.Config.SearchMode,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse is a raw API response; the API does not wrap payloads.
type APIResponse struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the body into out, failing the test on error.
func (r *APIResponse) Decode(t *testing.T, out any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, out); err != nil {
		t.Fatalf("failed to decode response %q: %v", r.Body, err)
	}
}

// ErrorMessage returns the error field of an error body.
func (r *APIResponse) ErrorMessage() string {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(r.Body, &body)
	return body.Error
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body any, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body any, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPut, path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body any, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &APIResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// CountRows counts rows of a table matching where.
func (e *E2ETestEnv) CountRows(table, where string, args ...any) int {
	var n int
	query := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", table, where)
	if err := e.Pool.QueryRow(e.Ctx, query, args...).Scan(&n); err != nil {
		e.T.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func startServer(t *testing.T, handler http.Handler, port int) (string, func()) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
