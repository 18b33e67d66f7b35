// Package render projects a resolved deployment configuration into the
// generated artifacts: the compose manifest, the reverse-proxy config and
// the per-service env files. Every artifact is written at most once per
// workspace; an existing destination file is never overwritten.
package render

import (
	"fmt"
	"os"
)

// RenderError indicates that an artifact could not be produced, either
// because a required template source is missing or because the rendered
// output could not be validated or written.
type RenderError struct {
	// Artifact names the artifact that failed.
	Artifact string
	// Err is the underlying cause.
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Artifact, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Artifact is one generated configuration file. Render is a deterministic
// function of the resolved deployment (plus any fresh per-render secrets);
// existence of Path on disk is the idempotency guard.
type Artifact struct {
	// Name identifies the artifact in logs and errors.
	Name string
	// Path is the destination file.
	Path string
	// Render produces the file contents.
	Render func() ([]byte, error)
}

// Exists reports whether the artifact's destination file is already present.
func (a Artifact) Exists() bool {
	_, err := os.Stat(a.Path)
	return err == nil
}

// WriteOnce renders and writes the artifact unless its destination already
// exists. It reports whether the file was written.
func WriteOnce(a Artifact) (bool, error) {
	if a.Exists() {
		return false, nil
	}
	data, err := a.Render()
	if err != nil {
		return false, &RenderError{Artifact: a.Name, Err: err}
	}
	if err := os.WriteFile(a.Path, data, 0o644); err != nil {
		return false, &RenderError{Artifact: a.Name, Err: err}
	}
	return true, nil
}
