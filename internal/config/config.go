package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TermConfig bounds the academic term for the ICS/XLSX exports: weekly
// class meetings recur from the first matching weekday on/after Start
// until End.
type TermConfig struct {
	// Start is the first day of the term, "YYYY-MM-DD".
	Start string `yaml:"start" json:"start"`
	// End is the last day of the term, "YYYY-MM-DD".
	End string `yaml:"end" json:"end"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// BackendBaseURL is the scheduling backend this service consumes,
	// e.g. "http://localhost:9000/api".
	BackendBaseURL string `yaml:"backend_base_url" json:"backend_base_url"`

	// Timezone is the IANA timezone used for export timestamps.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for periodic background refresh of the schedule data.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// FetchDebounceMs and ConflictDebounceMs override the debounce quiet
	// periods. Zero selects the built-in defaults (160ms / 220ms).
	FetchDebounceMs    int `yaml:"fetch_debounce_ms" json:"fetch_debounce_ms"`
	ConflictDebounceMs int `yaml:"conflict_debounce_ms" json:"conflict_debounce_ms"`

	// InitialHeightPx seeds the container height before the UI reports a
	// real viewport measurement.
	InitialHeightPx int `yaml:"initial_height_px" json:"initial_height_px"`

	// LogLevel: debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Term bounds the export recurrence window.
	Term TermConfig `yaml:"term" json:"term"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		BackendBaseURL:  "http://127.0.0.1:9000/api",
		Timezone:        "Asia/Manila",
		RefreshCron:     "*/15 * * * *",
		InitialHeightPx: 600,
		LogLevel:        "info",
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.BackendBaseURL == "" {
		c.BackendBaseURL = "http://127.0.0.1:9000/api"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Manila"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.FetchDebounceMs < 0 {
		c.FetchDebounceMs = 0
	}
	if c.ConflictDebounceMs < 0 {
		c.ConflictDebounceMs = 0
	}
	if c.InitialHeightPx <= 0 {
		c.InitialHeightPx = 600
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".schedcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
