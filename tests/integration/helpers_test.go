// Package integration provides end-to-end tests of the bpi command.
package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	bpiBinary     string
	bpiBinaryOnce sync.Once
	bpiBinaryErr  error
)

// getBPIBinary builds the bpi binary once and returns its path.
func getBPIBinary(t *testing.T) string {
	t.Helper()
	bpiBinaryOnce.Do(func() {
		_, filename, _, ok := runtime.Caller(0)
		if !ok {
			bpiBinaryErr = os.ErrInvalid
			return
		}
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(filename)))

		tmpDir, err := os.MkdirTemp("", "bpi-test-*")
		if err != nil {
			bpiBinaryErr = err
			return
		}
		bpiBinary = filepath.Join(tmpDir, "bpi")

		cmd := exec.Command("go", "build", "-o", bpiBinary, "./cmd/bpi")
		cmd.Dir = moduleRoot
		if output, err := cmd.CombinedOutput(); err != nil {
			bpiBinaryErr = &buildError{output: string(output), err: err}
			return
		}
	})
	if bpiBinaryErr != nil {
		t.Fatalf("failed to build bpi: %v", bpiBinaryErr)
	}
	return bpiBinary
}

type buildError struct {
	output string
	err    error
}

func (e *buildError) Error() string {
	return e.err.Error() + ": " + e.output
}

// workspace is a temp directory holding the config, data and input files of
// one test. XDG_CONFIG_HOME and XDG_DATA_HOME point inside it.
type workspace struct {
	dir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	return &workspace{dir: t.TempDir()}
}

// run executes bpi and returns its stdout. Logs on stderr are kept apart so
// stdout stays valid JSON.
func (w *workspace) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(getBPIBinary(t), args...)
	cmd.Dir = w.dir
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(w.dir, "config"),
		"XDG_DATA_HOME="+filepath.Join(w.dir, "data"),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// mustRun runs bpi and fails the test when it exits non-zero.
func (w *workspace) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := w.run(t, args...)
	if err != nil {
		t.Fatalf("bpi %v failed: %v\nstdout: %s\nstderr: %s", args, err, stdout, stderr)
	}
	return stdout
}

// write creates a file below the workspace and returns its path.
func (w *workspace) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(w.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const seedYAML = `journal:
  path: jcs
  primary_locale: en_US
  name:
    en_US: Journal of Coastal Studies
  license:
    copyright_holder_type: author
    license_url: https://creativecommons.org/licenses/by/4.0/
users:
  - username: importer
    email: importer@example.org
user_groups:
  - role_id: 16
    name: {en_US: Journal manager}
    abbrev: JM
    stages: [1, 3, 4, 5]
  - role_id: 65536
    name: {en_US: Author}
    abbrev: AU
    stages: [1, 5]
genres:
  - key: submission
`

// setupJournal initializes bpi and seeds the jcs journal.
func setupJournal(t *testing.T) *workspace {
	t.Helper()
	w := newWorkspace(t)
	w.mustRun(t, "init",
		"--default-email", "editor@example.org",
		"--journal", "jcs",
		"--user", "importer",
		"--editor", "importer")
	w.mustRun(t, "journal", "seed", w.write(t, "seed.yml", seedYAML))
	return w
}

func articleRecord(title string) string {
	titleElem := ""
	if title != "" {
		titleElem = "<title>" + title + "</title>"
	}
	return `<documents><document>` + titleElem + `
  <publication-date>2019-03-15</publication-date>
  <authors><author><lname>Doe</lname><fname>Jane</fname></author></authors>
</document></documents>`
}
