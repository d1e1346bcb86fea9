//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
)

const fakeDimensions = 1536

// topics maps a topic to the stems that select it. Each topic owns one axis
// of the fake embedding space, so texts sharing a topic have cosine 1.
var topics = []struct {
	name  string
	stems []string
}{
	{"ajedrez", []string{"ajedrez"}},
	{"tenis", []string{"tenis"}},
	{"cocina", []string{"cocin", "pasta", "receta"}},
}

// FakeOpenAI answers the embeddings and chat completions endpoints with
// deterministic output derived from topic stems in the input.
type FakeOpenAI struct {
	server *httptest.Server

	embeddingCalls atomic.Int64
	chatCalls      atomic.Int64
	failChat       atomic.Bool
}

func NewFakeOpenAI() *FakeOpenAI {
	f := &FakeOpenAI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/embeddings", f.handleEmbeddings)
	mux.HandleFunc("POST /v1/chat/completions", f.handleChat)
	f.server = httptest.NewServer(mux)
	return f
}

// BaseURL is the value for SHIPBA_OPENAI_BASE_URL.
func (f *FakeOpenAI) BaseURL() string {
	return f.server.URL + "/v1"
}

func (f *FakeOpenAI) Close() {
	f.server.Close()
}

// FailChat makes every chat completion return a non-retryable 400.
func (f *FakeOpenAI) FailChat(fail bool) {
	f.failChat.Store(fail)
}

func (f *FakeOpenAI) EmbeddingCalls() int64 { return f.embeddingCalls.Load() }
func (f *FakeOpenAI) ChatCalls() int64      { return f.chatCalls.Load() }

func (f *FakeOpenAI) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	f.embeddingCalls.Add(1)

	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProviderError(w, http.StatusBadRequest, "invalid embeddings request")
		return
	}

	type embedding struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	data := make([]embedding, len(req.Input))
	for i, text := range req.Input {
		data[i] = embedding{Object: "embedding", Embedding: topicVector(text), Index: i}
	}

	writeJSON(w, map[string]any{
		"object": "list",
		"data":   data,
		"model":  req.Model,
		"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	})
}

type chatRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type       string `json:"type"`
		JSONSchema *struct {
			Name string `json:"name"`
		} `json:"json_schema"`
	} `json:"response_format"`
}

func (r chatRequest) user() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

func (f *FakeOpenAI) handleChat(w http.ResponseWriter, r *http.Request) {
	f.chatCalls.Add(1)

	if f.failChat.Load() {
		writeProviderError(w, http.StatusBadRequest, "model rejected the request")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProviderError(w, http.StatusBadRequest, "invalid chat request")
		return
	}

	var content string
	switch {
	case req.ResponseFormat == nil:
		content = keywordsFor(req.user())
	case req.ResponseFormat.JSONSchema != nil && req.ResponseFormat.JSONSchema.Name == "profile_matches":
		content = mustJSON(curate(req.user()))
	case req.ResponseFormat.JSONSchema != nil && req.ResponseFormat.JSONSchema.Name == "query_expansion":
		content = mustJSON(map[string][]string{"questions": {"¿Quién " + queryOf(req.user()) + "?"}})
	default:
		content = mustJSON(summarize(req.user()))
	}

	writeJSON(w, map[string]any{
		"id":      "chatcmpl-e2e",
		"object":  "chat.completion",
		"created": 0,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]string{"role": "assistant", "content": content},
		}},
	})
}

// curate returns every profile block that shares a topic with the query.
func curate(prompt string) map[string]any {
	query := queryOf(prompt)
	want := topicsOf(query)

	matches := []map[string]any{}
	for _, block := range strings.Split(prompt, "---") {
		id := fieldOf(block, "USER_ID:")
		text := fieldOf(block, "CONTENT:")
		if id == "" || !sharesTopic(want, topicsOf(text)) {
			continue
		}
		matches = append(matches, map[string]any{
			"userId":         id,
			"name":           fieldOf(block, "NAME:"),
			"content":        text,
			"contentSummary": "le interesa " + strings.Join(want, " y "),
			"keywords":       want,
			"matchReason":    "menciona " + strings.Join(want, " y "),
		})
	}
	return map[string]any{"matches": matches}
}

func summarize(prompt string) map[string]any {
	query := queryOf(prompt)
	profile := fieldOf(prompt, "PERFIL:")
	want := topicsOf(query)
	if !sharesTopic(want, topicsOf(profile)) {
		return map[string]any{"shouldRender": false, "summary": "", "reason": "no menciona " + query}
	}
	return map[string]any{"shouldRender": true, "summary": "le interesa " + strings.Join(want, " y "), "reason": ""}
}

func keywordsFor(prompt string) string {
	found := topicsOf(prompt)
	if len(found) == 0 {
		return "perfil"
	}
	return strings.Join(found, ", ")
}

func queryOf(prompt string) string {
	if q := fieldOf(prompt, "CONSULTA DE BÚSQUEDA:"); q != "" {
		return q
	}
	// expansion prompt: Analiza esta consulta: "<query>".
	if _, rest, ok := strings.Cut(prompt, `consulta: "`); ok {
		q, _, _ := strings.Cut(rest, `"`)
		return q
	}
	return prompt
}

func fieldOf(text, prefix string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			return strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, prefix)), `"`)
		}
	}
	return ""
}

func topicsOf(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, t := range topics {
		for _, stem := range t.stems {
			if strings.Contains(lower, stem) {
				found = append(found, t.name)
				break
			}
		}
	}
	return found
}

func sharesTopic(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// topicVector puts weight on each topic axis the text mentions. Texts with
// no known topic land on a separate axis orthogonal to all of them.
func topicVector(text string) []float32 {
	v := make([]float32, fakeDimensions)
	found := topicsOf(text)
	if len(found) == 0 {
		v[len(topics)] = 1
		return v
	}
	for _, name := range found {
		for i, t := range topics {
			if t.name == name {
				v[i] = 1
			}
		}
	}
	norm := float32(1 / math.Sqrt(float64(len(found))))
	for i := range v {
		v[i] *= norm
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeProviderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "invalid_request_error", "code": nil},
	})
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal fake response: %v", err))
	}
	return string(data)
}
