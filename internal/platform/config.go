package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// SystemDirName is the hidden workspace directory holding the
	// configuration and the token file.
	SystemDirName = ".arbor"
	// ConfigFileName sits inside the system directory and marks a
	// directory as a workspace root.
	ConfigFileName = "config.yaml"
	// TokenFileName holds the session token, readable by the owner only.
	TokenFileName = "etapi_token"
	// TokenEnvVar overrides the token file when set.
	TokenEnvVar = "ARBOR_ETAPI_TOKEN"
)

// Config is the persisted workspace configuration.
type Config struct {
	WorkingDir string `yaml:"-"`
	ServerURL  string `yaml:"source_url"`
	RootNoteID string `yaml:"root_note_id"`
}

func configPath(dir string) string {
	return filepath.Join(dir, SystemDirName, ConfigFileName)
}

func tokenPath(dir string) string {
	return filepath.Join(dir, SystemDirName, TokenFileName)
}

// LoadConfig reads the workspace configuration rooted at dir.
func LoadConfig(dir string) (Config, error) {
	data, err := os.ReadFile(configPath(dir))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read workspace configuration: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", configPath(dir), err)
	}
	if cfg.ServerURL == "" || cfg.RootNoteID == "" {
		return Config{}, fmt.Errorf("incomplete configuration in %s: source_url and root_note_id are required", configPath(dir))
	}

	cfg.WorkingDir = dir
	return cfg, nil
}

// Save writes the configuration into the workspace system directory.
func (c Config) Save() error {
	if err := os.MkdirAll(filepath.Join(c.WorkingDir, SystemDirName), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}
	if err := os.WriteFile(configPath(c.WorkingDir), data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}

// Token resolves the session token: an explicit value wins, then the
// environment, then the workspace token file.
func (c Config) Token(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(TokenEnvVar); env != "" {
		return env, nil
	}

	data, err := os.ReadFile(tokenPath(c.WorkingDir))
	if err == nil {
		return strings.TrimSpace(string(data)), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return "", fmt.Errorf("no token configured: pass one explicitly, set %s, or run 'arbor set-token'", TokenEnvVar)
}

// SaveToken stores the token in the workspace system directory, readable by
// the owner only.
func SaveToken(dir, token string) error {
	if err := os.MkdirAll(filepath.Join(dir, SystemDirName), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}
	if err := os.WriteFile(tokenPath(dir), []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}
