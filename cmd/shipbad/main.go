package main

import (
	"fmt"
	"os"

	"github.com/florianreyes/shipba-rag/internal/cli"
	"github.com/florianreyes/shipba-rag/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shipbad",
		Short: "Shipba daemon and admin CLI",
		Long:  "Shipba daemon for running the search API server and managing workspaces, profiles, and API keys",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.WorkspaceCmd())
	rootCmd.AddCommand(admin.ProfileCmd())
	rootCmd.AddCommand(admin.MemberCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())
	rootCmd.AddCommand(admin.SearchCmd())
	rootCmd.AddCommand(admin.SearchLogCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
