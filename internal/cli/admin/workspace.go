package admin

import (
	"context"
	"fmt"

	"github.com/florianreyes/shipba-rag/internal/repository"
	"github.com/florianreyes/shipba-rag/internal/service"
	"github.com/spf13/cobra"
)

func WorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
		Long:  "Create and list workspaces",
	}

	cmd.AddCommand(WorkspaceCreateCmd())
	cmd.AddCommand(WorkspaceListCmd())

	return cmd
}

func WorkspaceCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new workspace",
		Long:  "Create a new workspace with the specified name",
		Args:  cobra.ExactArgs(1),
		RunE:  runWorkspaceCreate,
	}

	cmd.Flags().StringP("description", "d", "", "Workspace description")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runWorkspaceCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]
	description, _ := cmd.Flags().GetString("description")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaceSvc := service.NewWorkspaceService(
		repository.NewWorkspaceRepository(pool),
		repository.NewMembershipRepository(pool),
		repository.NewProfileRepository(pool),
		&service.DefaultUUIDGenerator{},
	)

	ws, err := workspaceSvc.CreateWorkspace(ctx, name, description)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]any{
			"id":          ws.ID,
			"name":        ws.Name,
			"description": ws.Description,
			"created_at":  ws.CreatedAt,
		})
	} else {
		fmt.Printf("Workspace created: %s (%s)\n", ws.Name, ws.ID)
	}

	return nil
}

func WorkspaceListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all workspaces",
		RunE:  runWorkspaceList,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaces, err := repository.NewWorkspaceRepository(pool).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]any, len(workspaces))
		for i, ws := range workspaces {
			data[i] = map[string]any{
				"id":          ws.ID,
				"name":        ws.Name,
				"description": ws.Description,
				"created_at":  ws.CreatedAt,
			}
		}
		printJSON(map[string]any{"items": data})
		return nil
	}

	if len(workspaces) == 0 {
		fmt.Println("No workspaces found")
		return nil
	}
	fmt.Println("Workspaces:")
	for _, ws := range workspaces {
		fmt.Printf("  %s: %s (created: %s)\n", ws.ID, ws.Name, ws.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
