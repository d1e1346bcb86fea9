package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/logging"
	"github.com/florianreyes/shipba-rag/internal/repository"
	"github.com/spf13/cobra"
)

// cliCaller marks searches run from shipbad; the log stores no profile for it.
const cliCaller = "cli"

// SearchCmd runs the search pipeline directly against the database.
func SearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a workspace from the server host",
		Long:  "Run the configured search pipeline against a workspace without going through the API",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().StringP("workspace", "w", "", "Workspace ID or name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("workspace")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	wsRef, _ := cmd.Flags().GetString("workspace")
	outputFormat, _ := cmd.Flags().GetString("output")
	query := strings.Join(args, " ")

	pool, cfg, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if !cfg.HasOpenAI() {
		return errors.New("SHIPBA_OPENAI_API_KEY is required to search")
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	workspaceID, err := resolveWorkspaceID(ctx, repository.NewWorkspaceRepository(pool), wsRef)
	if err != nil {
		return err
	}

	searchSvc, closeSearch, err := newSearchService(cfg, pool, newLLMClient(cfg), logger)
	if err != nil {
		return err
	}
	defer closeSearch()

	matches, err := searchSvc.Search(ctx, domain.SearchQuery{Text: query, WorkspaceID: workspaceID, ProfileID: cliCaller})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]any{"matches": matches})
		return nil
	}

	if len(matches) == 0 {
		fmt.Println("No matches")
		return nil
	}
	for i, m := range matches {
		fmt.Printf("%d. %s (%s)\n", i+1, m.Name, m.ProfileID)
		if m.Summary != "" {
			fmt.Printf("   %s\n", m.Summary)
		}
		if len(m.Keywords) > 0 {
			fmt.Printf("   keywords: %s\n", strings.Join(m.Keywords, ", "))
		}
	}
	return nil
}

func SearchLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchlog",
		Short: "Inspect logged searches",
	}

	cmd.AddCommand(SearchLogListCmd())

	return cmd
}

func SearchLogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent searches of a workspace",
		Long:  "List the most recent completed searches of a workspace, newest first",
		RunE:  runSearchLogList,
	}

	cmd.Flags().StringP("workspace", "w", "", "Workspace ID or name (required)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("workspace")

	return cmd
}

func runSearchLogList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	wsRef, _ := cmd.Flags().GetString("workspace")
	limit, _ := cmd.Flags().GetInt("limit")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaceID, err := resolveWorkspaceID(ctx, repository.NewWorkspaceRepository(pool), wsRef)
	if err != nil {
		return err
	}

	logs, err := repository.NewSearchLogRepository(pool).ListRecent(ctx, workspaceID, limit)
	if err != nil {
		return fmt.Errorf("failed to list search logs: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]any, len(logs))
		for i, l := range logs {
			data[i] = map[string]any{
				"id":          l.ID,
				"profile_id":  l.ProfileID,
				"query":       l.Query,
				"mode":        l.Mode,
				"results":     l.Results,
				"duration_ms": l.DurationMs,
				"created_at":  l.CreatedAt,
			}
		}
		printJSON(map[string]any{"workspace_id": workspaceID, "items": data})
		return nil
	}

	if len(logs) == 0 {
		fmt.Printf("No searches logged for workspace %s\n", workspaceID)
		return nil
	}
	fmt.Printf("Recent searches in workspace %s:\n", workspaceID)
	for _, l := range logs {
		caller := l.ProfileID
		if caller == "" {
			caller = cliCaller
		}
		fmt.Printf("  %s  %-8s %5dms  %d results  %q (by %s)\n",
			l.CreatedAt.Format("2006-01-02 15:04:05"), l.Mode, l.DurationMs, len(l.Results), l.Query, caller)
	}
	return nil
}
