package main

import (
	"os"

	"github.com/matsen/bepress/internal/config"
	"github.com/spf13/cobra"
)

var (
	initDB           string
	initFilesDir     string
	initDefaultEmail string
	initJournal      string
	initUser         string
	initEditor       string
	initForce        bool
)

func init() {
	initCmd.Flags().StringVar(&initDB, "db", "", "SQLite database path")
	initCmd.Flags().StringVar(&initFilesDir, "files-dir", "", "Directory galley files are copied into")
	initCmd.Flags().StringVar(&initDefaultEmail, "default-email", "", "Contact email for authors without one")
	initCmd.Flags().StringVar(&initJournal, "journal", "", "Default journal path")
	initCmd.Flags().StringVar(&initUser, "user", "", "Username recorded as the importer")
	initCmd.Flags().StringVar(&initEditor, "editor", "", "Username assigned to the production stage")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file, database and file area",
	Long: `Create the config file, database and file area.

Creates:
  ~/.config/bpi/config.yml     # Settings given as flags
  ~/.local/share/bpi/bpi.db    # Database with an empty schema
  ~/.local/share/bpi/files/    # Copied galley files

Seed a journal afterwards with 'bpi journal seed'.`,
	RunE: runInit,
}

// InitResponse reports what init created.
type InitResponse struct {
	Status   string `json:"status"`
	Config   string `json:"config"`
	DB       string `json:"db"`
	FilesDir string `json:"files_dir"`
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.Path()
	if _, err := os.Stat(path); err == nil && !initForce {
		exitWithError(ExitConfigError, "config already exists: %s (use --force to overwrite)", path)
	}

	cfg := &config.Config{
		DB:           initDB,
		FilesDir:     initFilesDir,
		DefaultEmail: initDefaultEmail,
		Journal:      initJournal,
		User:         initUser,
		Editor:       initEditor,
	}
	if err := cfg.Save(path); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	// Reload to pick up defaults for the paths left unset.
	cfg = loadConfig()
	db := openDB(cfg)
	db.Close()
	if err := os.MkdirAll(cfg.FilesDir, 0755); err != nil {
		exitWithError(ExitError, "creating files directory: %v", err)
	}

	if humanOutput {
		outputHuman("Wrote %s\n", path)
		outputHuman("  Database: %s\n", cfg.DB)
		outputHuman("  Files:    %s\n", cfg.FilesDir)
		if cfg.DefaultEmail == "" {
			outputHuman("\nSet a default contact email before importing:\n  bpi config default-email editor@example.org\n")
		}
		return nil
	}
	return outputJSON(InitResponse{Status: "initialized", Config: path, DB: cfg.DB, FilesDir: cfg.FilesDir})
}
