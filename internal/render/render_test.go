package render

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOnce_WritesThenSkips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.txt")
	renders := 0
	artifact := Artifact{
		Name: "test",
		Path: path,
		Render: func() ([]byte, error) {
			renders++
			return []byte("first rendering\n"), nil
		},
	}

	wrote, err := WriteOnce(artifact)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, 1, renders)

	// An existing artifact is never re-rendered, even if the render
	// function would now produce different content.
	artifact.Render = func() ([]byte, error) {
		renders++
		return []byte("second rendering\n"), nil
	}
	wrote, err = WriteOnce(artifact)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, 1, renders)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first rendering\n", string(data))
}

func TestWriteOnce_RenderFailure(t *testing.T) {
	cause := errors.New("template missing")
	artifact := Artifact{
		Name:   "broken",
		Path:   filepath.Join(t.TempDir(), "broken.txt"),
		Render: func() ([]byte, error) { return nil, cause },
	}

	_, err := WriteOnce(artifact)
	require.Error(t, err)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "broken", renderErr.Artifact)
	assert.ErrorIs(t, err, cause)

	_, statErr := os.Stat(artifact.Path)
	assert.True(t, os.IsNotExist(statErr), "no partial artifact on render failure")
}

func TestArtifact_Exists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	artifact := Artifact{Name: "a", Path: path}

	assert.False(t, artifact.Exists())
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.True(t, artifact.Exists())
}
