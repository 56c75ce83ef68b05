package storage

import (
	"fmt"
	"os"

	"github.com/matsen/bepress/internal/journal"
	"gopkg.in/yaml.v3"
)

// Seed describes a journal and the users, groups and genres imports need.
type Seed struct {
	Journal    journal.Journal     `yaml:"journal"`
	Users      []journal.User      `yaml:"users"`
	UserGroups []journal.UserGroup `yaml:"user_groups"`
	Genres     []journal.Genre     `yaml:"genres"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("reading seed: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parsing seed %s: %w", path, err)
	}
	if s.Journal.Path == "" {
		return Seed{}, fmt.Errorf("seed %s: journal path is required", path)
	}
	if s.Journal.PrimaryLocale == "" {
		return Seed{}, fmt.Errorf("seed %s: journal primary_locale is required", path)
	}
	return s, nil
}

// SeedResult reports what ApplySeed created.
type SeedResult struct {
	Journal    journal.Journal `json:"journal"`
	Users      int             `json:"users_created"`
	UserGroups int             `json:"user_groups_created"`
	Genres     int             `json:"genres_created"`
}

// ApplySeed creates the seeded journal with its groups and genres. Users are
// shared between journals and only created when their username is new.
func (d *DB) ApplySeed(s Seed) (SeedResult, error) {
	existing, err := d.GetJournalByPath(s.Journal.Path)
	if err != nil {
		return SeedResult{}, err
	}
	if existing != nil {
		return SeedResult{}, fmt.Errorf("journal %q already exists", s.Journal.Path)
	}

	var res SeedResult
	if res.Journal, err = d.CreateJournal(s.Journal); err != nil {
		return SeedResult{}, err
	}

	for _, u := range s.Users {
		found, err := d.GetUserByUsername(u.Username)
		if err != nil {
			return res, fmt.Errorf("looking up user %s: %w", u.Username, err)
		}
		if found != nil {
			continue
		}
		if _, err := d.CreateUser(u); err != nil {
			return res, err
		}
		res.Users++
	}

	for _, g := range s.UserGroups {
		g.JournalID = res.Journal.ID
		if _, err := d.CreateUserGroup(g); err != nil {
			return res, err
		}
		res.UserGroups++
	}

	for _, g := range s.Genres {
		g.JournalID = res.Journal.ID
		if _, err := d.CreateGenre(g); err != nil {
			return res, err
		}
		res.Genres++
	}
	return res, nil
}
