package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/florianreyes/shipba-rag/internal/api/handlers"
	"github.com/florianreyes/shipba-rag/internal/config"
	"github.com/florianreyes/shipba-rag/internal/database"
	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/form"
	"github.com/florianreyes/shipba-rag/internal/logging"
	"github.com/florianreyes/shipba-rag/internal/openai"
	"github.com/florianreyes/shipba-rag/internal/repository"
	"github.com/florianreyes/shipba-rag/internal/server"
	"github.com/florianreyes/shipba-rag/internal/service"
	"github.com/florianreyes/shipba-rag/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the shipba search API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.HasSentry() {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.TracesSampleRate(),
			Debug:            cfg.Debug,
			Logger:           logger,
		})
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		} else {
			defer shutdownTelemetry()
		}
	}

	if !cfg.HasOpenAI() {
		return errors.New("SHIPBA_OPENAI_API_KEY is required to serve searches")
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	app, err := NewApp(cfg, pool, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.InitProfileMail != "" {
		if err := bootstrapInitialProfile(ctx, cfg, repository.NewProfileRepository(pool), app.Profiles, app.Auth, logger); err != nil {
			return fmt.Errorf("failed to bootstrap initial profile: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port), zap.String("search_mode", cfg.SearchMode))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// App is the wired API handler together with the services the bootstrap
// path needs.
type App struct {
	Handler    http.Handler
	Profiles   *service.ProfileService
	Auth       *service.AuthService
	Workspaces *service.WorkspaceService

	closeSearch func()
}

// NewApp wires repositories, services and handlers over pool. Close releases
// the search path.
func NewApp(cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	client := newLLMClient(cfg)

	profileRepo := repository.NewProfileRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}

	profileSvc, err := newProfileService(cfg, pool, client, logger)
	if err != nil {
		return nil, err
	}
	authSvc := service.NewAuthService(profileRepo, repository.NewAPIKeyRepository(pool), uuidGen)
	workspaceSvc := service.NewWorkspaceService(
		repository.NewWorkspaceRepository(pool),
		repository.NewMembershipRepository(pool),
		profileRepo,
		uuidGen,
	)

	searchSvc, closeSearch, err := newSearchService(cfg, pool, client, logger)
	if err != nil {
		return nil, err
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:  authSvc,
		SearchHandler:  handlers.NewSearchHandler(searchSvc, workspaceSvc),
		ProfileHandler: handlers.NewProfileHandler(profileSvc),
		APIKeyHandler:  handlers.NewAPIKeyHandler(authSvc),
		Logger:         logger,
	})

	return &App{
		Handler:     router,
		Profiles:    profileSvc,
		Auth:        authSvc,
		Workspaces:  workspaceSvc,
		closeSearch: closeSearch,
	}, nil
}

func (a *App) Close() {
	if a.closeSearch != nil {
		a.closeSearch()
	}
}

func newLLMClient(cfg *config.Config) *openai.Client {
	return openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.ChatModel,
		MaxRetries:          cfg.LLMMaxRetries,
	})
}

// newProfileService wires profile writes to the chunk indexer. The rewriter
// is only attached when PROFILE_REWRITE is on.
func newProfileService(cfg *config.Config, pool *pgxpool.Pool, client *openai.Client, logger *zap.Logger) (*service.ProfileService, error) {
	schema := form.Default()
	if cfg.FormPath != "" {
		loaded, err := form.Load(cfg.FormPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load form: %w", err)
		}
		schema = loaded
	}

	opts := []service.ProfileServiceOption{service.WithProfileLogger(logger)}
	if cfg.ProfileRewrite {
		opts = append(opts, service.WithRewriter(service.NewProfileRewriter(client, logger)))
	}

	return service.NewProfileService(
		repository.NewProfileRepository(pool),
		repository.NewTxRunner(pool),
		service.NewEmbeddingService(client),
		schema,
		opts...,
	), nil
}

// newSearchService builds the configured search path behind a logging
// SearchService. The returned func releases the path.
func newSearchService(cfg *config.Config, pool *pgxpool.Pool, client *openai.Client, logger *zap.Logger) (*service.SearchService, func(), error) {
	path, closePath, err := buildSearchPath(cfg, client,
		repository.NewProfileRepository(pool),
		repository.NewProfileChunkRepository(pool),
		logger,
	)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewSearchService(path, cfg.SearchMode, cfg.SearchTimeout, logger).
		WithSearchLog(repository.NewSearchLogRepository(pool))
	return svc, closePath, nil
}

// buildSearchPath returns the configured search path and a func releasing
// whatever it holds.
func buildSearchPath(
	cfg *config.Config,
	client *openai.Client,
	profiles *repository.ProfileRepository,
	chunks *repository.ProfileChunkRepository,
	logger *zap.Logger,
) (service.SearchPath, func(), error) {
	if !cfg.UsesVectorSearch() {
		var tokens service.TokenCounter
		counter, err := service.NewTiktokenCounter()
		if err != nil {
			logger.Warn("tiktoken unavailable, using approximate token counts", zap.Error(err))
			tokens = service.ApproxTokenCounter{}
		} else {
			tokens = counter
		}
		path := service.NewContextSearch(profiles, client, tokens, service.ContextSearchConfig{
			SummaryMaxChars:  cfg.CuratorSummaryMaxChars,
			MaxContextTokens: cfg.CuratorMaxContextTokens,
		}, logger)
		return path, func() {}, nil
	}

	vs, err := service.NewVectorSearch(
		service.NewQueryExpander(client),
		service.NewEmbeddingService(client),
		chunks,
		profiles,
		service.NewRelevanceSummarizer(client, cfg.SummaryMaxChars, logger),
		service.NewKeywordExtractor(client, cfg.KeywordCount, logger),
		service.VectorSearchConfig{
			MinSimilarity: cfg.VectorMinSimilarity,
			Limit:         cfg.VectorLimit,
			PoolSize:      cfg.EnrichPoolSize,
			KeywordCount:  cfg.KeywordCount,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}
	return vs, vs.Close, nil
}

func bootstrapInitialProfile(
	ctx context.Context,
	cfg *config.Config,
	profileRepo *repository.ProfileRepository,
	profileSvc *service.ProfileService,
	authSvc *service.AuthService,
	logger *zap.Logger,
) error {
	profile, err := profileRepo.GetByMail(ctx, cfg.InitProfileMail)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return fmt.Errorf("failed to check existing profile: %w", err)
	}

	if profile == nil {
		name, _, _ := strings.Cut(cfg.InitProfileMail, "@")
		profile, err = profileSvc.Create(ctx, name, cfg.InitProfileMail)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		logger.Info("bootstrap: created profile", zap.String("profile_id", profile.ID), zap.String("mail", profile.Mail))
	} else {
		logger.Info("bootstrap: profile already exists", zap.String("profile_id", profile.ID))
	}

	if cfg.InitAPIKey == "" {
		return nil
	}
	if !service.IsValidAPIToken(cfg.InitAPIKey) {
		return errors.New("invalid SHIPBA_INIT_API_KEY format (expected 'shp_<64 hex chars>')")
	}

	existing, err := authSvc.GetAPIKeyByToken(ctx, cfg.InitAPIKey)
	if err == nil && existing != nil {
		logger.Info("bootstrap: API key already exists", zap.String("key_id", existing.ID))
		return nil
	}

	if err := authSvc.CreateAPIKeyWithToken(ctx, profile.ID, "bootstrap", cfg.InitAPIKey); err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	logger.Info("bootstrap: created API key", zap.String("profile_id", profile.ID))
	return nil
}

func runMigrations(databaseURL string, logger *zap.Logger) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("migrations: no migrations applied")
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Info("migrations: database is up to date", zap.Uint("version", version))
	default:
		logger.Info("migrations: applied successfully", zap.Uint("version", version))
	}

	return nil
}
