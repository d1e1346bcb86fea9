package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/florianreyes/shipba-rag/internal/logging"
	"github.com/florianreyes/shipba-rag/internal/pagination"
	"github.com/florianreyes/shipba-rag/internal/repository"
	"github.com/spf13/cobra"
)

func ProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles",
		Long:  "Create, list, and reindex member profiles",
	}

	cmd.AddCommand(ProfileCreateCmd())
	cmd.AddCommand(ProfileListCmd())
	cmd.AddCommand(ProfileReindexCmd())

	return cmd
}

func ProfileCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new profile",
		Long:  "Create a profile with empty content. Members fill it in through the API.",
		RunE:  runProfileCreate,
	}

	cmd.Flags().StringP("name", "n", "", "Display name (required)")
	cmd.Flags().StringP("mail", "m", "", "Mail address (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("mail")

	return cmd
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name, _ := cmd.Flags().GetString("name")
	mail, _ := cmd.Flags().GetString("mail")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, cfg, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Creating a profile never embeds, so the client is not required here.
	profileSvc, err := newProfileService(cfg, pool, newLLMClient(cfg), nil)
	if err != nil {
		return err
	}

	profile, err := profileSvc.Create(ctx, name, mail)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]any{
			"id":         profile.ID,
			"name":       profile.Name,
			"mail":       profile.Mail,
			"created_at": profile.CreatedAt,
		})
	} else {
		fmt.Printf("Profile created: %s <%s> (%s)\n", profile.Name, profile.Mail, profile.ID)
	}

	return nil
}

func ProfileListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Long:  "List profiles, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runProfileList(outputFormat, limit, cursor)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runProfileList(outputFormat string, limit int, cursorStr string) error {
	ctx := context.Background()

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	cursor, _ := pagination.DecodeCursor(cursorStr)
	result, err := repository.NewProfileRepository(pool).ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]any, len(result.Items))
		for i, p := range result.Items {
			data[i] = map[string]any{
				"id":          p.ID,
				"name":        p.Name,
				"mail":        p.Mail,
				"has_content": p.HasContent(),
				"updated_at":  p.UpdatedAt,
			}
		}
		printJSON(map[string]any{
			"items":    data,
			"cursor":   result.NextCursor,
			"has_more": result.HasMore,
		})
		return nil
	}

	if len(result.Items) == 0 {
		fmt.Println("No profiles found")
		return nil
	}
	fmt.Println("Profiles:")
	for _, p := range result.Items {
		state := "empty"
		if p.HasContent() {
			state = "filled"
		}
		fmt.Printf("  %s: %s <%s> (%s, updated: %s)\n", p.ID, p.Name, p.Mail, state, p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if result.HasMore && result.NextCursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", result.NextCursor)
	}
	return nil
}

func ProfileReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex [id|mail]",
		Short: "Rebuild profile chunks",
		Long:  "Re-chunk and re-embed stored profile content. Use --all to reindex every profile.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProfileReindex,
	}

	cmd.Flags().Bool("all", false, "Reindex every profile")

	return cmd
}

func runProfileReindex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		return errors.New("pass either a profile ID or mail, or --all")
	}

	pool, cfg, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if !cfg.HasOpenAI() {
		return errors.New("SHIPBA_OPENAI_API_KEY is required to reindex profiles")
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	profileSvc, err := newProfileService(cfg, pool, newLLMClient(cfg), logger)
	if err != nil {
		return err
	}
	profileRepo := repository.NewProfileRepository(pool)

	var ids []string
	if all {
		var cursor *pagination.Cursor
		for {
			page, err := profileRepo.ListWithCursor(ctx, cursor, 100)
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}
			for _, p := range page.Items {
				ids = append(ids, p.ID)
			}
			if !page.HasMore {
				break
			}
			cursor, err = pagination.DecodeCursor(page.NextCursor)
			if err != nil {
				return err
			}
		}
	} else {
		id, err := resolveProfileID(ctx, profileRepo, args[0])
		if err != nil {
			return err
		}
		ids = []string{id}
	}

	for _, id := range ids {
		n, err := profileSvc.Reindex(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to reindex profile %s: %w", id, err)
		}
		fmt.Printf("Reindexed %s (%d chunks)\n", id, n)
	}
	return nil
}
