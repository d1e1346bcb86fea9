package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// AuthStatus describes which credentials the next command would use.
type AuthStatus struct {
	Authenticated bool             `json:"authenticated"`
	Source        CredentialSource `json:"source"`
	APIKey        string           `json:"api_key,omitempty"`
	APIURL        string           `json:"api_url,omitempty"`
	Workspace     string           `json:"workspace,omitempty"`
}

func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect or clear stored credentials",
		Long:  "Check or clear the credentials saved by 'shipba init'",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which credentials are in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("output")
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			return writeAuthStatus(cmd.OutOrStdout(), currentAuthStatus(flagKey, flagURL), asJSON)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Delete the stored config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(cmd.OutOrStdout())
		},
	})

	return cmd
}

func runAuthLogout(w io.Writer) error {
	if err := DeleteGlobalConfig(); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	fmt.Fprintln(w, "Logged out")
	return nil
}

func currentAuthStatus(flagKey, flagURL string) AuthStatus {
	source, key, url := GetCredentialSource(flagKey, flagURL)
	if source == SourceNone {
		return AuthStatus{Source: source}
	}
	return AuthStatus{
		Authenticated: true,
		Source:        source,
		APIKey:        maskAPIKey(key),
		APIURL:        url,
		Workspace:     DefaultWorkspace(),
	}
}

func writeAuthStatus(w io.Writer, status AuthStatus, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	if !status.Authenticated {
		fmt.Fprintln(w, "Not authenticated. Run 'shipba init' first.")
		return nil
	}
	fmt.Fprintf(w, "Source:    %s\n", status.Source)
	fmt.Fprintf(w, "API key:   %s\n", status.APIKey)
	fmt.Fprintf(w, "API URL:   %s\n", status.APIURL)
	if status.Workspace != "" {
		fmt.Fprintf(w, "Workspace: %s\n", status.Workspace)
	}
	return nil
}

// maskAPIKey keeps the prefix and last four characters so keys can be told
// apart without being printed.
func maskAPIKey(key string) string {
	if len(key) < 12 {
		return "***"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
