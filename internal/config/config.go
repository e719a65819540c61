// Package config loads and saves the token-watcher TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/felipe-tactile/token-watcher/internal/anthropic"
	"github.com/felipe-tactile/token-watcher/internal/codex"
)

// Config holds all token-watcher configuration.
type Config struct {
	General     GeneralConfig     `toml:"general"`
	Services    ServicesConfig    `toml:"services"`
	Credentials CredentialsConfig `toml:"credentials"`
	Appearance  AppearanceConfig  `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultRange string `toml:"default_range"`
	ClaudeDir    string `toml:"claude_dir,omitempty"`
}

// ServicesConfig toggles which providers the status views query.
type ServicesConfig struct {
	Claude bool `toml:"claude"`
	Codex  bool `toml:"codex"`
}

// CredentialsConfig holds overrides for credential file locations.
type CredentialsConfig struct {
	ClaudePath string `toml:"claude_path,omitempty"`
	CodexPath  string `toml:"codex_path,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultRange: "today",
		},
		Services: ServicesConfig{
			Claude: true,
			Codex:  false,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "token-watcher")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "token-watcher")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// ProjectsDir resolves the transcript root: claude_dir override if set,
// otherwise ~/.claude, with /projects appended.
func (c Config) ProjectsDir() string {
	dir := c.General.ClaudeDir
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".claude")
	}
	return filepath.Join(expandHome(dir), "projects")
}

// ClaudeCredentialsPath resolves the Anthropic credential file location.
func (c Config) ClaudeCredentialsPath() string {
	if p := c.Credentials.ClaudePath; p != "" {
		return expandHome(p)
	}
	return anthropic.CredentialsPath()
}

// CodexAuthPath resolves the Codex auth file location.
func (c Config) CodexAuthPath() string {
	if p := c.Credentials.CodexPath; p != "" {
		return expandHome(p)
	}
	return codex.AuthPath()
}

// ServiceAvailability reports which providers have credential files on disk.
// Enablement in [services] is a preference; availability is a fact about the
// filesystem, and the status views need both.
type ServiceAvailability struct {
	Claude bool
	Codex  bool
}

// Availability stats the resolved credential paths.
func (c Config) Availability() ServiceAvailability {
	return ServiceAvailability{
		Claude: fileExists(c.ClaudeCredentialsPath()),
		Codex:  fileExists(c.CodexAuthPath()),
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
