package admin

import (
	"context"
	"fmt"

	"github.com/florianreyes/shipba-rag/internal/domain"
	"github.com/florianreyes/shipba-rag/internal/repository"
	"github.com/florianreyes/shipba-rag/internal/service"
	"github.com/spf13/cobra"
)

func MemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage workspace memberships",
		Long:  "Add profiles to workspaces, change their status, and list members",
	}

	cmd.AddCommand(MemberAddCmd())
	cmd.AddCommand(MemberStatusCmd())
	cmd.AddCommand(MemberListCmd())

	return cmd
}

func MemberAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a profile to a workspace",
		RunE:  runMemberAdd,
	}

	cmd.Flags().StringP("workspace", "w", "", "Workspace ID or name (required)")
	cmd.Flags().StringP("profile", "p", "", "Profile ID or mail (required)")
	cmd.Flags().StringP("status", "s", string(domain.MembershipStatusActive), "Membership status (active, admin, invited, rejected)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("workspace")
	cmd.MarkFlagRequired("profile")

	return cmd
}

func runMemberAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	wsRef, _ := cmd.Flags().GetString("workspace")
	profileRef, _ := cmd.Flags().GetString("profile")
	statusStr, _ := cmd.Flags().GetString("status")
	outputFormat, _ := cmd.Flags().GetString("output")

	status, err := domain.ParseMembershipStatus(statusStr)
	if err != nil {
		return err
	}

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaceRepo := repository.NewWorkspaceRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	workspaceSvc := service.NewWorkspaceService(workspaceRepo, repository.NewMembershipRepository(pool), profileRepo, &service.DefaultUUIDGenerator{})

	workspaceID, err := resolveWorkspaceID(ctx, workspaceRepo, wsRef)
	if err != nil {
		return err
	}
	profileID, err := resolveProfileID(ctx, profileRepo, profileRef)
	if err != nil {
		return err
	}

	m, err := workspaceSvc.AddMember(ctx, workspaceID, profileID, status)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]any{
			"id":           m.ID,
			"workspace_id": m.WorkspaceID,
			"profile_id":   m.ProfileID,
			"status":       m.Status,
			"created_at":   m.CreatedAt,
		})
	} else {
		fmt.Printf("Profile %s added to workspace %s as %s\n", m.ProfileID, m.WorkspaceID, m.Status)
	}
	return nil
}

func MemberStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <status>",
		Short: "Change a member's status",
		Long:  "Set a membership to active, admin, invited, or rejected",
		Args:  cobra.ExactArgs(1),
		RunE:  runMemberStatus,
	}

	cmd.Flags().StringP("workspace", "w", "", "Workspace ID or name (required)")
	cmd.Flags().StringP("profile", "p", "", "Profile ID or mail (required)")
	cmd.MarkFlagRequired("workspace")
	cmd.MarkFlagRequired("profile")

	return cmd
}

func runMemberStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	wsRef, _ := cmd.Flags().GetString("workspace")
	profileRef, _ := cmd.Flags().GetString("profile")

	status, err := domain.ParseMembershipStatus(args[0])
	if err != nil {
		return err
	}

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaceRepo := repository.NewWorkspaceRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	workspaceSvc := service.NewWorkspaceService(workspaceRepo, repository.NewMembershipRepository(pool), profileRepo, nil)

	workspaceID, err := resolveWorkspaceID(ctx, workspaceRepo, wsRef)
	if err != nil {
		return err
	}
	profileID, err := resolveProfileID(ctx, profileRepo, profileRef)
	if err != nil {
		return err
	}

	if err := workspaceSvc.SetMemberStatus(ctx, workspaceID, profileID, status); err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}
	fmt.Printf("Profile %s is now %s in workspace %s\n", profileID, status, workspaceID)
	return nil
}

func MemberListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the members of a workspace",
		RunE:  runMemberList,
	}

	cmd.Flags().StringP("workspace", "w", "", "Workspace ID or name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("workspace")

	return cmd
}

func runMemberList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	wsRef, _ := cmd.Flags().GetString("workspace")
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

	members, err := repository.NewMembershipRepository(pool).ListMembers(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]any, len(members))
		for i, m := range members {
			data[i] = map[string]any{
				"profile_id": m.ProfileID,
				"name":       m.Name,
				"mail":       m.Mail,
				"status":     m.Status,
			}
		}
		printJSON(map[string]any{"workspace_id": workspaceID, "items": data})
		return nil
	}

	if len(members) == 0 {
		fmt.Printf("No members in workspace %s\n", workspaceID)
		return nil
	}
	fmt.Printf("Members of workspace %s:\n", workspaceID)
	for _, m := range members {
		fmt.Printf("  %s: %s <%s> (%s)\n", m.ProfileID, m.Name, m.Mail, m.Status)
	}
	return nil
}
