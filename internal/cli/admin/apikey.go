package admin

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/pagination"
	"github.com/florianreyes/shipba-rag/internal/repository"
	"github.com/florianreyes/shipba-rag/internal/service"
	"github.com/spf13/cobra"
)

// apiKeyView is the JSON shape printed by the apikey commands. The token is
// only ever set on create.
type apiKeyView struct {
	ID        string     `json:"id"`
	ProfileID string     `json:"profile_id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	Token     string     `json:"token,omitempty"`
}

func newAPIKeyView(key *domain.APIKey) apiKeyView {
	return apiKeyView{
		ID:        key.ID,
		ProfileID: key.ProfileID,
		Name:      key.Name,
		Status:    key.Status(),
		CreatedAt: key.CreatedAt,
		RevokedAt: key.RevokedAt,
	}
}

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apikey",
		Aliases: []string{"apikeys"},
		Short:   "Issue, list and revoke profile API keys",
	}
	cmd.PersistentFlags().StringP("output", "o", "text", "Output format (text or json)")

	cmd.AddCommand(apiKeyCreateCmd(), apiKeyListCmd(), apiKeyRevokeCmd())
	return cmd
}

func apiKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Issue a new API key for a profile",
		Example: "  shipbad apikey create -p ana@example.com -n laptop",
		RunE: func(cmd *cobra.Command, args []string) error {
			profileRef, _ := cmd.Flags().GetString("profile")
			name, _ := cmd.Flags().GetString("name")
			return withAPIKeys(cmd, func(ctx context.Context, profiles *repository.ProfileRepository, auth *service.AuthService) (any, string, error) {
				profileID, err := resolveProfileID(ctx, profiles, profileRef)
				if err != nil {
					return nil, "", err
				}
				token, err := auth.CreateAPIKey(ctx, profileID, name)
				if err != nil {
					return nil, "", fmt.Errorf("failed to create API key: %w", err)
				}
				key, err := auth.GetAPIKeyByToken(ctx, token)
				if err != nil {
					return nil, "", fmt.Errorf("failed to load created key: %w", err)
				}

				view := newAPIKeyView(key)
				view.Token = token
				text := fmt.Sprintf("Created key %s (%s) for profile %s\nToken: %s\n\nThe token is shown once. Store it now.\n",
					key.ID, key.Name, profileID, token)
				return view, text, nil
			})
		},
	}

	cmd.Flags().StringP("profile", "p", "", "Profile ID or mail (required)")
	cmd.Flags().StringP("name", "n", "", "Key name, e.g. the device it is used on (required)")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func apiKeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a profile's API keys, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			profileRef, _ := cmd.Flags().GetString("profile")
			limit, _ := cmd.Flags().GetInt("limit")
			token, _ := cmd.Flags().GetString("cursor")

			cursor, err := pagination.DecodeCursor(token)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, _, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			profileID, err := resolveProfileID(ctx, repository.NewProfileRepository(pool), profileRef)
			if err != nil {
				return err
			}
			page, err := repository.NewAPIKeyRepository(pool).ListByProfileWithCursor(ctx, profileID, cursor, limit)
			if err != nil {
				return fmt.Errorf("failed to list API keys: %w", err)
			}

			views := make([]apiKeyView, len(page.Items))
			for i, key := range page.Items {
				views[i] = newAPIKeyView(key)
			}
			if isJSON(cmd) {
				printJSON(pagination.Page[apiKeyView]{Items: views, NextCursor: page.NextCursor, HasMore: page.HasMore})
				return nil
			}
			printAPIKeyTable(views)
			if page.HasMore {
				fmt.Printf("\nMore keys available: --cursor %s\n", page.NextCursor)
			}
			return nil
		},
	}

	cmd.Flags().StringP("profile", "p", "", "Profile ID or mail (required)")
	cmd.Flags().IntP("limit", "n", pagination.DefaultLimit, "Maximum number of keys")
	cmd.Flags().String("cursor", "", "Cursor from a previous page")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func apiKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key; requests using it get 401 afterwards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyID := args[0]
			return withAPIKeys(cmd, func(ctx context.Context, _ *repository.ProfileRepository, auth *service.AuthService) (any, string, error) {
				if err := auth.RevokeAPIKey(ctx, keyID); err != nil {
					return nil, "", fmt.Errorf("failed to revoke API key: %w", err)
				}
				return map[string]any{"id": keyID, "status": "revoked"}, fmt.Sprintf("Revoked key %s\n", keyID), nil
			})
		},
	}
}

// withAPIKeys opens the database, runs fn and prints its result in the
// format chosen by --output.
func withAPIKeys(cmd *cobra.Command, fn func(context.Context, *repository.ProfileRepository, *service.AuthService) (any, string, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	profiles := repository.NewProfileRepository(pool)
	auth := service.NewAuthService(profiles, repository.NewAPIKeyRepository(pool), &service.DefaultUUIDGenerator{})

	result, text, err := fn(ctx, profiles, auth)
	if err != nil {
		return err
	}
	if isJSON(cmd) {
		printJSON(result)
	} else {
		fmt.Print(text)
	}
	return nil
}

func printAPIKeyTable(keys []apiKeyView) {
	if len(keys) == 0 {
		fmt.Println("No API keys")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tCREATED")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.ID, k.Name, k.Status, k.CreatedAt.Format(time.DateTime))
	}
	_ = tw.Flush()
}

func isJSON(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("output")
	return format == "json"
}
