// Package config handles configuration loading and silsilah home resolution.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the per-home configuration file.
const FileName = "config.yaml"

// AdminTokenEnv overrides server.admin_token when set.
const AdminTokenEnv = "SILSILAH_ADMIN_TOKEN"

// HomeEnv overrides the persisted and default home directory.
const HomeEnv = "SILSILAH_HOME"

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// StoreConfig selects the member store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite3" | "sqlite" | "pgx"
	DSN    string `yaml:"dsn"`
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	Theme string `yaml:"theme"` // "auto" | "light" | "dark"
}

// ServerConfig controls `silsilah serve`.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	AdminToken string `yaml:"admin_token"` // #nosec G117 -- bearer token for mutating HTTP routes
}

// S3Config holds settings for the s3 backup driver.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// BackupConfig selects where snapshots are written.
type BackupConfig struct {
	Driver string   `yaml:"driver"` // "fs" | "memory" | "s3"
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// Config is the root per-home configuration.
type Config struct {
	Language string       `yaml:"language"`
	Store    StoreConfig  `yaml:"store"`
	Render   RenderConfig `yaml:"render"`
	Server   ServerConfig `yaml:"server"`
	Backup   BackupConfig `yaml:"backup"`
}

var (
	languages = map[string]bool{"en": true, "ms": true}
	themes    = map[string]bool{"auto": true, "light": true, "dark": true}
)

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Language: "en",
		Store:    StoreConfig{Driver: "sqlite3"},
		Render:   RenderConfig{Theme: "auto"},
		Server:   ServerConfig{Addr: "127.0.0.1:8080"},
		Backup:   BackupConfig{Driver: "fs"},
	}
}

// Load reads a per-home config.yaml from path.
// If the file does not exist it returns Default() with no error.
// Missing keys retain their default values. An unknown language or theme is
// logged and replaced by its default.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	// Unmarshal into a plain map so we can apply only the keys that are present.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if v, ok := raw["language"].(string); ok && v != "" {
		cfg.Language = strings.ToLower(strings.TrimSpace(v))
	}

	if st, ok := raw["store"].(map[string]any); ok {
		if v, ok := st["driver"].(string); ok && v != "" {
			cfg.Store.Driver = v
		}
		if v, ok := st["dsn"].(string); ok {
			cfg.Store.DSN = v
		}
	}

	if r, ok := raw["render"].(map[string]any); ok {
		if v, ok := r["theme"].(string); ok && v != "" {
			cfg.Render.Theme = strings.ToLower(strings.TrimSpace(v))
		}
	}

	if srv, ok := raw["server"].(map[string]any); ok {
		if v, ok := srv["addr"].(string); ok && v != "" {
			cfg.Server.Addr = v
		}
		if v, ok := srv["admin_token"].(string); ok {
			cfg.Server.AdminToken = v
		}
	}

	if b, ok := raw["backup"].(map[string]any); ok {
		if v, ok := b["driver"].(string); ok && v != "" {
			cfg.Backup.Driver = v
		}
		if v, ok := b["fs_root"].(string); ok {
			cfg.Backup.FSRoot = v
		}
		if s3, ok := b["s3"].(map[string]any); ok {
			if v, ok := s3["bucket"].(string); ok {
				cfg.Backup.S3.Bucket = v
			}
			if v, ok := s3["region"].(string); ok {
				cfg.Backup.S3.Region = v
			}
			if v, ok := s3["endpoint"].(string); ok {
				cfg.Backup.S3.Endpoint = v
			}
			if v, ok := s3["path_style"].(bool); ok {
				cfg.Backup.S3.PathStyle = v
			}
		}
	}

	if !languages[cfg.Language] {
		slog.Warn("unknown language in config, using en", "language", cfg.Language)
		cfg.Language = "en"
	}
	if !themes[cfg.Render.Theme] {
		slog.Warn("unknown theme in config, using auto", "theme", cfg.Render.Theme)
		cfg.Render.Theme = "auto"
	}

	return cfg, nil
}

// StoreDSN returns the configured DSN, defaulting to <home>/family.db for
// the sqlite drivers.
func (c *Config) StoreDSN(home string) string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	if c.Store.Driver == "pgx" {
		return ""
	}
	return filepath.Join(home, "family.db")
}

// BackupRoot returns the fs backup directory, defaulting to <home>/backups.
func (c *Config) BackupRoot(home string) string {
	if c.Backup.FSRoot != "" {
		return c.Backup.FSRoot
	}
	return filepath.Join(home, "backups")
}

// AdminToken returns the admin token, preferring SILSILAH_ADMIN_TOKEN.
func (c *Config) AdminToken() string {
	if v := strings.TrimSpace(os.Getenv(AdminTokenEnv)); v != "" {
		return v
	}
	return c.Server.AdminToken
}

// ---------------------------------------------------------------------------
// Home resolution
// ---------------------------------------------------------------------------

// globalConfigPath returns the path to the global silsilah config file.
// This file stores only the persisted home (and future global settings).
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "silsilah", FileName), nil
}

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// ResolveHome returns the silsilah home path and the source of the resolution.
// Priority: SILSILAH_HOME env → persisted global config → ~/.silsilah
// source is one of "env", "config", or "default". The --home flag is applied
// by the CLI before this is consulted.
func ResolveHome() (path, source string) {
	if env := os.Getenv(HomeEnv); env != "" {
		p, err := normalizePath(env)
		if err == nil {
			return p, "env"
		}
	}

	if persisted, ok, _ := GetPersistedHome(); ok {
		return persisted, "config"
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".silsilah"), "default"
}

// GetHome returns the resolved home path.
func GetHome() string {
	path, _ := ResolveHome()
	return path
}

// GetPersistedHome reads the home key from the global config.
// Returns ("", false, nil) if not set.
func GetPersistedHome() (string, bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", false, nil
	}

	val, _ := raw["home"].(string)
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false, nil
	}

	p, err := normalizePath(val)
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

// SetPersistedHome normalizes path and persists it in the global config.
// Returns the normalized path.
func SetPersistedHome(path string) (string, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return "", err
	}

	cfgPath, err := globalConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", err
	}

	// Read existing global config, preserving any other keys.
	var raw map[string]any
	if data, err := os.ReadFile(cfgPath); err == nil {
		_ = yaml.Unmarshal(data, &raw)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	raw["home"] = normalized

	out, err := yaml.Marshal(raw)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(cfgPath, out, 0o600); err != nil {
		return "", err
	}
	return normalized, nil
}

// ClearPersistedHome removes the home key from the global config.
// Returns true if the key was present and removed.
// If the file becomes empty after removal it is deleted.
func ClearPersistedHome() (bool, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false, nil
	}

	if _, ok := raw["home"]; !ok {
		return false, nil
	}
	delete(raw, "home")

	if len(raw) == 0 {
		_ = os.Remove(cfgPath)
		return true, nil
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		return false, err
	}
	return true, os.WriteFile(cfgPath, out, 0o600)
}
