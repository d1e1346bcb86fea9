package client

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	envAPIKey    = "SHIPBA_API_KEY"
	envAPIURL    = "SHIPBA_API_URL"
	envWorkspace = "SHIPBA_WORKSPACE"

	defaultAPIURL = "http://localhost:8080"
)

var apiKeyPattern = regexp.MustCompile(`^shp_[0-9a-fA-F]{64}$`)

// GlobalConfig is the member's stored credentials in config.yaml.
type GlobalConfig struct {
	APIKey string `yaml:"api_key"`
	APIURL string `yaml:"api_url"`
	// Workspace is sent with every search when no --workspace flag is given.
	Workspace string `yaml:"workspace,omitempty"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "shipba"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetConfigDir returns the platform-specific configuration directory
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path to config.yaml
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.yaml. A missing file yields a nil config.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes config.yaml with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DeleteGlobalConfig removes config.yaml
func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete config file: %w", err)
	}

	return nil
}

// IsValidAPIKey validates the API key format: shp_ + 64 hex chars
func IsValidAPIKey(key string) bool {
	return apiKeyPattern.MatchString(key)
}

// CredentialSource represents where credentials came from
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceNone         CredentialSource = "none"
)

// GetCredentialSource checks flags, then the environment, then config.yaml.
// A source counts only when it provides the key.
func GetCredentialSource(flagAPIKey, flagAPIURL string) (CredentialSource, string, string) {
	if flagAPIKey != "" {
		return SourceFlag, flagAPIKey, orDefaultURL(flagAPIURL)
	}

	if key := os.Getenv(envAPIKey); key != "" {
		url := flagAPIURL
		if url == "" {
			url = os.Getenv(envAPIURL)
		}
		return SourceEnv, key, orDefaultURL(url)
	}

	config, err := LoadGlobalConfig()
	if err == nil && config != nil && config.APIKey != "" {
		url := flagAPIURL
		if url == "" {
			url = config.APIURL
		}
		return SourceGlobalConfig, config.APIKey, orDefaultURL(url)
	}

	return SourceNone, "", ""
}

// DefaultWorkspace returns the workspace from the environment or config.yaml.
func DefaultWorkspace() string {
	if ws := os.Getenv(envWorkspace); ws != "" {
		return ws
	}
	config, err := LoadGlobalConfig()
	if err != nil || config == nil {
		return ""
	}
	return config.Workspace
}

func orDefaultURL(url string) string {
	if url == "" {
		return defaultAPIURL
	}
	return url
}
