package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	SearchModeContext = "context"
	SearchModeVector  = "vector"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	LLMMaxRetries       int    `envconfig:"LLM_MAX_RETRIES" default:"3"`

	SearchMode              string        `envconfig:"SEARCH_MODE" default:"context"`
	SearchTimeout           time.Duration `envconfig:"SEARCH_TIMEOUT" default:"30s"`
	VectorMinSimilarity     float64       `envconfig:"VECTOR_MIN_SIMILARITY" default:"0.5"`
	VectorLimit             int           `envconfig:"VECTOR_LIMIT" default:"6"`
	SummaryMaxChars         int           `envconfig:"SUMMARY_MAX_CHARS" default:"150"`
	CuratorSummaryMaxChars  int           `envconfig:"CURATOR_SUMMARY_MAX_CHARS" default:"400"`
	CuratorMaxContextTokens int           `envconfig:"CURATOR_MAX_CONTEXT_TOKENS" default:"100000"`
	EnrichPoolSize          int           `envconfig:"ENRICH_POOL_SIZE" default:"4"`
	KeywordCount            int           `envconfig:"KEYWORD_COUNT" default:"5"`

	// Rewrite form answers into prose before indexing
	ProfileRewrite bool   `envconfig:"PROFILE_REWRITE" default:"false"`
	FormPath       string `envconfig:"FORM_PATH"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Bootstrap: ensure this profile exists on startup, optionally with a known API key
	InitProfileMail string `envconfig:"INIT_PROFILE_MAIL"`
	InitAPIKey      string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SHIPBA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the search pipeline cannot run with.
func (c *Config) Validate() error {
	if c.SearchMode != SearchModeContext && c.SearchMode != SearchModeVector {
		return fmt.Errorf("invalid SEARCH_MODE %q (expected %q or %q)", c.SearchMode, SearchModeContext, SearchModeVector)
	}
	if c.VectorMinSimilarity < 0 || c.VectorMinSimilarity >= 1 {
		return fmt.Errorf("VECTOR_MIN_SIMILARITY must be in [0, 1), got %v", c.VectorMinSimilarity)
	}
	if c.VectorLimit <= 0 {
		return fmt.Errorf("VECTOR_LIMIT must be positive, got %d", c.VectorLimit)
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT must be positive, got %s", c.SearchTimeout)
	}
	return nil
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// TracesSampleRate samples every trace outside production.
func (c *Config) TracesSampleRate() float64 {
	if c.Environment == "production" {
		return 0.1
	}
	return 1.0
}

func (c *Config) UsesVectorSearch() bool {
	return c.SearchMode == SearchModeVector
}
