// Package config loads import job configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppDir is the directory name under the XDG base directories.
	AppDir = "bpi"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// DBFile is the default database file name.
	DBFile = "bpi.db"
	// FilesDir is the default directory for stored galley files.
	FilesDir = "files"
	// LedgerFile is the default import ledger file name.
	LedgerFile = "imports.jsonl"
	// DefaultGenreKey is the genre assigned to imported galley files.
	DefaultGenreKey = "SUBMISSION"
)

// Environment variables that override the config file.
const (
	EnvDB           = "BPI_DB"
	EnvFilesDir     = "BPI_FILES_DIR"
	EnvLedger       = "BPI_LEDGER"
	EnvJournal      = "BPI_JOURNAL"
	EnvDefaultEmail = "BPI_DEFAULT_EMAIL"
	EnvGenreKey     = "BPI_GENRE_KEY"
	EnvRate         = "BPI_RATE"
)

// ErrDefaultEmailNotConfigured is returned when no default contact email is set.
var ErrDefaultEmailNotConfigured = errors.New("default_email not configured")

// Config holds the settings of an import job.
type Config struct {
	DB           string  `yaml:"db,omitempty"`
	FilesDir     string  `yaml:"files_dir,omitempty"`
	Ledger       string  `yaml:"ledger,omitempty"`
	Journal      string  `yaml:"journal,omitempty"`       // Journal path used when --journal is not given
	User         string  `yaml:"user,omitempty"`          // Importing user's username
	Editor       string  `yaml:"editor,omitempty"`        // Username assigned to the production stage
	DefaultEmail string  `yaml:"default_email,omitempty"` // Contact email for authors without one
	GenreKey     string  `yaml:"genre_key,omitempty"`
	Rate         float64 `yaml:"rate,omitempty"` // Batch imports per second; 0 means unlimited
	Burst        int     `yaml:"burst,omitempty"`
}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bpi/config.yml.
func Path() string {
	return filepath.Join(xdg.ConfigHome, AppDir, ConfigFile)
}

// Load reads the config file at Path, then applies .env and environment
// overrides and fills defaults. A missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(Path(), os.Getenv)
}

// LoadFrom reads the config file at path and applies overrides read through
// getenv.
func LoadFrom(path string, getenv func(string) string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	for env, field := range map[string]*string{
		EnvDB:           &c.DB,
		EnvFilesDir:     &c.FilesDir,
		EnvLedger:       &c.Ledger,
		EnvJournal:      &c.Journal,
		EnvDefaultEmail: &c.DefaultEmail,
		EnvGenreKey:     &c.GenreKey,
	} {
		if v := getenv(env); v != "" {
			*field = v
		}
	}
	if v := getenv(EnvRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 {
			return fmt.Errorf("invalid %s: %q", EnvRate, v)
		}
		c.Rate = rate
	}
	return nil
}

func (c *Config) applyDefaults() {
	dataDir := filepath.Join(xdg.DataHome, AppDir)
	if c.DB == "" {
		c.DB = filepath.Join(dataDir, DBFile)
	}
	if c.FilesDir == "" {
		c.FilesDir = filepath.Join(dataDir, FilesDir)
	}
	if c.Ledger == "" {
		c.Ledger = filepath.Join(dataDir, LedgerFile)
	}
	if c.GenreKey == "" {
		c.GenreKey = DefaultGenreKey
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	c.DB = ExpandPath(c.DB)
	c.FilesDir = ExpandPath(c.FilesDir)
	c.Ledger = ExpandPath(c.Ledger)
}

// Validate checks the settings every import needs.
func (c *Config) Validate() error {
	if c.DefaultEmail == "" {
		return ErrDefaultEmailNotConfigured
	}
	if c.Rate < 0 {
		return fmt.Errorf("invalid rate: %v", c.Rate)
	}
	return nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}

// HelpfulConfigMessage returns a hint for creating the config file.
func HelpfulConfigMessage() string {
	path := Path()
	return fmt.Sprintf(`No default contact email configured.

Tip: Create %s:
  mkdir -p %s
  echo 'default_email: editor@example.org' > %s

or set %s.`,
		path,
		filepath.Dir(path),
		path,
		EnvDefaultEmail)
}
