// Package workspace materializes the on-disk provisioning layout: the root
// directory and the fetched source trees.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/shopstack/shopctl/internal/logging"
)

// FetchError indicates that a source tree could not be cloned.
type FetchError struct {
	// URL is the repository that failed to clone.
	URL string
	// Err is the underlying cause.
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// runFunc executes an external command; it exists so tests can stub git.
type runFunc func(ctx context.Context, dir string, name string, args ...string) error

// Materializer ensures the workspace root and its source trees exist.
// Everything is guarded by existence checks: a present directory is never
// re-created and a present source tree is never re-cloned or updated, even
// if it is stale.
type Materializer struct {
	// Root is the provisioning root directory.
	Root string

	logger *slog.Logger
	run    runFunc
}

// NewMaterializer constructs a Materializer rooted at root.
func NewMaterializer(root string, logger *slog.Logger) *Materializer {
	m := &Materializer{Root: root, logger: logger}
	m.run = m.runCommand
	return m
}

// EnsureRoot creates the workspace root if it does not exist.
func (m *Materializer) EnsureRoot() error {
	if err := os.MkdirAll(m.Root, 0o755); err != nil {
		return fmt.Errorf("create workspace root %q: %w", m.Root, err)
	}
	return nil
}

// Path resolves a workspace-relative path.
func (m *Materializer) Path(elem ...string) string {
	return filepath.Join(append([]string{m.Root}, elem...)...)
}

// HasRepo reports whether the source tree dir already exists in the workspace.
func (m *Materializer) HasRepo(dir string) bool {
	_, err := os.Stat(m.Path(dir))
	return err == nil
}

// EnsureRepo clones url into dir under the workspace root unless the
// directory already exists. Clone failures are fatal for the run since every
// later stage assumes the trees are present.
func (m *Materializer) EnsureRepo(ctx context.Context, url, dir string) error {
	if m.HasRepo(dir) {
		return nil
	}
	if err := m.run(ctx, m.Root, "git", "clone", "--depth", "1", url, dir); err != nil {
		return &FetchError{URL: url, Err: err}
	}
	return nil
}

func (m *Materializer) runCommand(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out := logging.NewWriter(m.logger, name)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v failed: %w", name, args, err)
	}
	return nil
}
