// Package filestore copies uploaded files into the journal file area.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Store copies files from a source filesystem into a destination area keyed
// by slash-separated file IDs.
type Store struct {
	src afero.Fs
	dst afero.Fs
}

// New returns a Store reading from src and writing into dst.
func New(src, dst afero.Fs) *Store {
	return &Store{src: src, dst: dst}
}

// NewOS returns a Store that reads from the local disk and writes below root.
func NewOS(root string) (*Store, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating files dir: %w", err)
	}
	return New(osFs, afero.NewBasePathFs(osFs, root)), nil
}

// ArticleKey returns a fresh storage key for a file of submissionID.
func ArticleKey(journalID, submissionID int64, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "pdf"
	}
	return fmt.Sprintf("journals/%d/articles/%d/%s.%s", journalID, submissionID, uuid.NewString(), strings.ToLower(ext))
}

// Add copies srcPath into the store under key and returns the file ID.
func (s *Store) Add(srcPath, key string) (string, error) {
	in, err := s.src.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer in.Close()

	if err := s.dst.MkdirAll(path.Dir(key), 0755); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", key, err)
	}
	out, err := s.dst.OpenFile(key, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", key, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		s.dst.Remove(key)
		return "", fmt.Errorf("copying %s: %w", srcPath, err)
	}
	if err := out.Close(); err != nil {
		s.dst.Remove(key)
		return "", fmt.Errorf("closing %s: %w", key, err)
	}
	return key, nil
}

// Open opens a stored file for reading and reports its size.
func (s *Store) Open(fileID string) (afero.File, int64, error) {
	f, err := s.dst.Open(fileID)
	if err != nil {
		return nil, 0, fmt.Errorf("opening stored file %s: %w", fileID, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", fileID, err)
	}
	return f, info.Size(), nil
}

// Remove deletes a stored file.
func (s *Store) Remove(fileID string) error {
	if err := s.dst.Remove(fileID); err != nil {
		return fmt.Errorf("removing stored file %s: %w", fileID, err)
	}
	return nil
}

// Exists reports whether fileID is present in the store.
func (s *Store) Exists(fileID string) (bool, error) {
	return afero.Exists(s.dst, fileID)
}
