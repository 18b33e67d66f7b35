package render

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/shopctl/internal/envfile"
)

func TestBuildBackendEnv(t *testing.T) {
	cfg := testConfig()
	data, err := BuildBackendEnv(cfg, sequenceSecrets())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "backend.env")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	vars, err := envfile.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-1", vars["SECRET_KEY"])
	assert.Equal(t, "shop.example.com,localhost", vars["ALLOWED_HOSTS"])
	assert.Equal(t, "postgres://saleor:test-db-password@db:5432/saleor", vars["DATABASE_URL"])
	assert.Equal(t, "redis://redis:6379/0", vars["CACHE_URL"])
}

func TestBuildBackendEnv_Deterministic(t *testing.T) {
	cfg := testConfig()
	fixed := func() (string, error) { return "fixed-secret", nil }

	a, err := BuildBackendEnv(cfg, fixed)
	require.NoError(t, err)
	b, err := BuildBackendEnv(cfg, fixed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildDashboardEnv_SubstitutesInPlace(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, ".env.template")
	template := "# dashboard configuration\nAPI_URI=http://localhost:8000/graphql/\nSTATIC_URL=/dashboard/static/\nAPP_URL=http://localhost:9000/\nMOUNT_PATH=/dashboard\n"
	require.NoError(t, os.WriteFile(tmplPath, []byte(template), 0o644))

	data, err := BuildDashboardEnv(testConfig(), tmplPath)
	require.NoError(t, err)

	expected := "# dashboard configuration\nAPI_URI=https://shop.example.com/graphql/\nSTATIC_URL=/dashboard/static/\nAPP_URL=https://shop.example.com/dashboard/\nMOUNT_PATH=/dashboard\n"
	assert.Equal(t, expected, string(data), "only the two URL keys change; everything else is preserved byte-for-byte")
}

func TestBuildDashboardEnv_MissingTemplate(t *testing.T) {
	_, err := BuildDashboardEnv(testConfig(), filepath.Join(t.TempDir(), ".env.template"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
