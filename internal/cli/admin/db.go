package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/florianreyes/shipba-rag/internal/config"
	"github.com/florianreyes/shipba-rag/internal/database"
	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type workspaceFinder interface {
	GetByID(ctx context.Context, id string) (*domain.Workspace, error)
	GetByName(ctx context.Context, name string) (*domain.Workspace, error)
}

type profileFinder interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByMail(ctx context.Context, mail string) (*domain.Profile, error)
}

// resolveWorkspaceID accepts a workspace ID or name.
func resolveWorkspaceID(ctx context.Context, repo workspaceFinder, ref string) (string, error) {
	var (
		ws  *domain.Workspace
		err error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		ws, err = repo.GetByID(ctx, ref)
	} else {
		ws, err = repo.GetByName(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, domain.ErrWorkspaceNotFound) {
			return "", fmt.Errorf("workspace not found: %s", ref)
		}
		return "", err
	}
	return ws.ID, nil
}

// resolveProfileID accepts a profile ID or mail.
func resolveProfileID(ctx context.Context, repo profileFinder, ref string) (string, error) {
	var (
		p   *domain.Profile
		err error
	)
	if strings.Contains(ref, "@") {
		p, err = repo.GetByMail(ctx, ref)
	} else {
		p, err = repo.GetByID(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return "", fmt.Errorf("profile not found: %s", ref)
		}
		return "", err
	}
	return p.ID, nil
}

func printJSON(v any) {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonBytes))
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return pool, cfg, nil
}
