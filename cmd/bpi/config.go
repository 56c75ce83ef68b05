package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/bepress/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  bpi config                                # Show the effective config
  bpi config default-email                  # Get specific value
  bpi config default-email editor@example.org

Keys:
  db             SQLite database path
  files-dir      Directory galley files are copied into
  ledger         Import ledger (JSONL)
  journal        Journal path used when --journal is not given
  user           Username recorded as the importer
  editor         Username assigned to the production stage
  default-email  Contact email for authors without one
  genre-key      Genre of imported galley files
  rate           Batch imports per second (0 = unlimited)
  burst          Imports allowed back to back before pacing applies

Environment variables (BPI_DB, BPI_FILES_DIR, BPI_LEDGER, BPI_JOURNAL,
BPI_DEFAULT_EMAIL, BPI_GENRE_KEY, BPI_RATE) override the file.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// ConfigResponse is the effective configuration.
type ConfigResponse struct {
	Path   string            `json:"path"`
	Values map[string]string `json:"values"`
}

// UpdateResponse reports a changed configuration value.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// configKey reads and writes one config setting as text.
type configKey struct {
	get func(*config.Config) string
	set func(*config.Config, string) error
}

func stringKey(field func(*config.Config) *string) configKey {
	return configKey{
		get: func(c *config.Config) string { return *field(c) },
		set: func(c *config.Config, v string) error {
			*field(c) = v
			return nil
		},
	}
}

var configKeys = map[string]configKey{
	"db":            stringKey(func(c *config.Config) *string { return &c.DB }),
	"files-dir":     stringKey(func(c *config.Config) *string { return &c.FilesDir }),
	"ledger":        stringKey(func(c *config.Config) *string { return &c.Ledger }),
	"journal":       stringKey(func(c *config.Config) *string { return &c.Journal }),
	"user":          stringKey(func(c *config.Config) *string { return &c.User }),
	"editor":        stringKey(func(c *config.Config) *string { return &c.Editor }),
	"default-email": stringKey(func(c *config.Config) *string { return &c.DefaultEmail }),
	"genre-key":     stringKey(func(c *config.Config) *string { return &c.GenreKey }),
	"rate": {
		get: func(c *config.Config) string { return strconv.FormatFloat(c.Rate, 'f', -1, 64) },
		set: func(c *config.Config, v string) error {
			rate, err := strconv.ParseFloat(v, 64)
			if err != nil || rate < 0 {
				return fmt.Errorf("rate must be a non-negative number, got %q", v)
			}
			c.Rate = rate
			return nil
		},
	},
	"burst": {
		get: func(c *config.Config) string { return strconv.Itoa(c.Burst) },
		set: func(c *config.Config, v string) error {
			burst, err := strconv.Atoi(v)
			if err != nil || burst < 1 {
				return fmt.Errorf("burst must be a positive integer, got %q", v)
			}
			c.Burst = burst
			return nil
		},
	},
}

func runConfig(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		cfg := loadConfig()
		values := make(map[string]string, len(configKeys))
		for name, key := range configKeys {
			values[name] = key.get(cfg)
		}
		if humanOutput {
			outputHuman("# %s\n", config.Path())
			for _, name := range sortedKeyNames() {
				outputHuman("%-14s %s\n", name+":", values[name])
			}
			return nil
		}
		return outputJSON(ConfigResponse{Path: config.Path(), Values: values})
	}

	name := normalizeKey(args[0])
	key, ok := configKeys[name]
	if !ok {
		exitWithError(ExitError, "unknown configuration key: %s", args[0])
	}

	if len(args) == 1 {
		value := key.get(loadConfig())
		if humanOutput {
			outputHuman("%s\n", value)
			return nil
		}
		return outputJSON(map[string]string{name: value})
	}

	// Write only what the file holds, not environment overrides.
	cfg, err := config.LoadFrom(config.Path(), func(string) string { return "" })
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := key.set(cfg, args[1]); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(config.Path()); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		outputHuman("Updated %s to %s\n", name, args[1])
		return nil
	}
	return outputJSON(UpdateResponse{Status: "updated", Key: name, Value: args[1]})
}

// normalizeKey converts key formats (default-email, default_email, DEFAULT_EMAIL) to one form.
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "_", "-")
}

func sortedKeyNames() []string {
	names := make([]string, 0, len(configKeys))
	for name := range configKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
