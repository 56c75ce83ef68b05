package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/matsen/bepress/internal/config"
	"github.com/matsen/bepress/internal/filestore"
	"github.com/matsen/bepress/internal/i18n"
	"github.com/matsen/bepress/internal/importer"
	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/search"
	"github.com/matsen/bepress/internal/storage"
	"github.com/matsen/bepress/internal/xmltree"
	"github.com/sirupsen/logrus"
)

// Flags shared by the commands that import.
var (
	journalFlag string
	userFlag    string
	editorFlag  string
	genreFlag   string
)

// importEnv holds everything an import command needs.
type importEnv struct {
	cfg      *config.Config
	db       *storage.DB
	catalog  *i18n.Catalog
	journal  *journal.Journal
	user     *journal.User
	editor   *journal.User
	importer *importer.Importer
}

// loadConfig loads the config, exiting with ExitConfigError on failure.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cfg
}

// openDB opens the configured database, exiting with ExitConfigError on failure.
func openDB(cfg *config.Config) *storage.DB {
	if err := os.MkdirAll(filepath.Dir(cfg.DB), 0755); err != nil {
		exitWithError(ExitConfigError, "creating database directory: %v", err)
	}
	db, err := storage.OpenDB(cfg.DB)
	if err != nil {
		exitWithError(ExitConfigError, "opening database: %v", err)
	}
	return db
}

// resolveJournal looks up the journal named by --journal or the config.
func resolveJournal(cfg *config.Config, db *storage.DB) *journal.Journal {
	path := firstNonEmpty(journalFlag, cfg.Journal)
	if path == "" {
		exitWithError(ExitConfigError, "no journal given: use --journal or set %s", config.EnvJournal)
	}
	j, err := db.GetJournalByPath(path)
	if err != nil {
		exitWithError(ExitError, "looking up journal %s: %v", path, err)
	}
	if j == nil {
		exitWithError(ExitConfigError, "journal not found: %s (seed it with 'bpi journal seed')", path)
	}
	return j
}

// newImportEnv wires the importer to the configured storage and file area.
func newImportEnv() *importEnv {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrDefaultEmailNotConfigured) {
			exitWithError(ExitConfigError, "%s", config.HelpfulConfigMessage())
		}
		exitWithError(ExitConfigError, "%v", err)
	}

	env := &importEnv{cfg: cfg, db: openDB(cfg)}
	env.journal = resolveJournal(cfg, env.db)
	env.user = resolveUser(env.db, firstNonEmpty(userFlag, cfg.User), "user")
	env.editor = resolveUser(env.db, firstNonEmpty(editorFlag, cfg.Editor, cfg.User), "editor")

	catalog, err := i18n.Load()
	if err != nil {
		exitWithError(ExitError, "loading messages: %v", err)
	}
	env.catalog = catalog

	files, err := filestore.NewOS(cfg.FilesDir)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	log := logrus.WithField("journal", env.journal.Path)
	indexer := search.NewIndexer(env.db, files, log)
	env.importer = importer.New(importer.DepsFromDB(env.db, files, indexer, catalog), importer.WithLogger(log))
	return env
}

func resolveUser(db *storage.DB, username, role string) *journal.User {
	if username == "" {
		exitWithError(ExitConfigError, "no %s given: use --%s or set %s in %s", role, role, role, config.Path())
	}
	u, err := db.GetUserByUsername(username)
	if err != nil {
		exitWithError(ExitError, "looking up %s %s: %v", role, username, err)
	}
	if u == nil {
		exitWithError(ExitConfigError, "%s not found: %s", role, username)
	}
	return u
}

// request builds an import request for one record.
func (env *importEnv) request(rec record) (importer.Request, error) {
	root, err := xmltree.ParseFile(rec.Source)
	if err != nil {
		return importer.Request{}, err
	}
	return importer.Request{
		Journal:      env.journal,
		User:         env.user,
		Editor:       env.editor,
		Root:         root,
		PDFPaths:     rec.Files,
		Volume:       rec.Volume,
		Number:       rec.Number,
		DefaultEmail: env.cfg.DefaultEmail,
		GenreKey:     firstNonEmpty(genreFlag, env.cfg.GenreKey),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
