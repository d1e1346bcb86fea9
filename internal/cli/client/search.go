package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query       string `json:"query"`
	WorkspaceID string `json:"workspace_id,omitempty"`
}

type Social struct {
	X         string `json:"x,omitempty"`
	Telegram  string `json:"telegram,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// Match is one person returned by a search.
type Match struct {
	UserID         string   `json:"userId"`
	Name           string   `json:"name"`
	Content        string   `json:"content"`
	ContentSummary string   `json:"contentSummary"`
	Keywords       []string `json:"keywords"`
	MatchReason    string   `json:"matchReason,omitempty"`
	Social         Social   `json:"social"`
}

type SearchResponse struct {
	Matches []Match `json:"matches"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find people in your workspace",
		Long:  "Asks who in the workspace matches a natural-language description, e.g. 'quien juega al ajedrez'.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if workspace == "" {
				workspace = DefaultWorkspace()
			}
			return runSearch(cmd.Context(), api, os.Stdout, strings.Join(args, " "), workspace, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace ID (defaults to config or your only workspace)")

	return cmd
}

func runSearch(ctx context.Context, api *APIClient, w io.Writer, query, workspace string, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var resp SearchResponse
	if err := api.Post(ctx, "/search", SearchRequest{Query: query, WorkspaceID: workspace}, &resp); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Fprintln(w, string(output))
		return nil
	}

	if len(resp.Matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d matches:\n\n", len(resp.Matches))
	for i, m := range resp.Matches {
		fmt.Fprintf(w, "%d. %s\n", i+1, m.Name)
		if m.ContentSummary != "" {
			fmt.Fprintf(w, "   %s\n", m.ContentSummary)
		}
		if len(m.Keywords) > 0 {
			fmt.Fprintf(w, "   Keywords: %s\n", strings.Join(m.Keywords, ", "))
		}
		if handles := formatSocial(m.Social); handles != "" {
			fmt.Fprintf(w, "   Contact: %s\n", handles)
		}
		if i < len(resp.Matches)-1 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
	}
	return nil
}

func formatSocial(s Social) string {
	var parts []string
	if s.Telegram != "" {
		parts = append(parts, "Telegram: "+s.Telegram)
	}
	if s.X != "" {
		parts = append(parts, "X: "+s.X)
	}
	if s.Instagram != "" {
		parts = append(parts, "Instagram: "+s.Instagram)
	}
	return strings.Join(parts, ", ")
}
