package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Store credentials for the shipba API",
		Long:  "Verifies the API key (--api-key, or prompted) against the server and saves it to the global config.yaml.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			apiKey, _ := cmd.Flags().GetString("api-key")
			apiURL, _ := cmd.Flags().GetString("api-url")
			return runInit(cmd.Context(), os.Stdin, apiKey, apiURL, workspace, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Default workspace ID for searches")

	return cmd
}

func runInit(ctx context.Context, stdin io.Reader, apiKey, apiURL, workspace string, outputJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	_ = godotenv.Load()
	if apiKey == "" {
		apiKey = os.Getenv(envAPIKey)
	}
	if apiKey == "" {
		fmt.Print("Enter API key: ")
		input, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && input == "" {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(input)
	}
	if !IsValidAPIKey(apiKey) {
		return fmt.Errorf("invalid API key format (expected: shp_ + 64 hex characters)")
	}

	if apiURL == "" {
		apiURL = orDefaultURL(os.Getenv(envAPIURL))
	}

	api := NewAPIClientWithConfig(apiKey, apiURL)
	var me Profile
	if err := api.Get(ctx, "/profiles/me", &me); err != nil {
		return fmt.Errorf("failed to verify API key: %w", err)
	}

	config := &GlobalConfig{APIKey: apiKey, APIURL: apiURL, Workspace: workspace}
	if err := SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	configPath, _ := GetConfigPath()

	if outputJSON {
		data, _ := json.MarshalIndent(map[string]any{
			"success":    true,
			"profile_id": me.ID,
			"mail":       me.Mail,
			"api_url":    apiURL,
			"workspace":  workspace,
			"config":     configPath,
		}, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Authenticated as %s <%s>\n", me.Name, me.Mail)
	fmt.Printf("Config saved to %s\n", configPath)
	return nil
}
