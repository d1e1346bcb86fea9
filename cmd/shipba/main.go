package main

import (
	"fmt"
	"os"

	"github.com/florianreyes/shipba-rag/internal/cli"
	"github.com/florianreyes/shipba-rag/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "shipba",
		Short: "Shipba CLI - find people in your community",
		Long: `Shipba CLI searches your workspace for people and manages your profile.

Environment variables:
  SHIPBA_API_KEY     API key for authentication
  SHIPBA_API_URL     API base URL (default: http://localhost:8080)
  SHIPBA_WORKSPACE   Default workspace ID for searches`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.ProfileCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
