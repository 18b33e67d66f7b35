package config

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve_InvalidDomain(t *testing.T) {
	cases := []struct {
		name   string
		domain string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"no dots", "localhost"},
		{"leading dash", "-bad.example.com"},
		{"space inside", "shop example.com"},
		{"trailing dot label", "shop..example.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(Inputs{Domain: tc.domain, ImageOwner: "acme"}, discardLogger())
			require.Error(t, err)

			var invalid *InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, "domain", invalid.Field)
		})
	}
}

func TestResolve_EmptyImageOwner(t *testing.T) {
	_, err := Resolve(Inputs{Domain: "shop.example.com"}, discardLogger())
	require.Error(t, err)

	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "image-owner", invalid.Field)
}

func TestResolve_NormalizesDomain(t *testing.T) {
	cfg, err := Resolve(Inputs{Domain: "  Shop.Example.COM ", ImageOwner: "acme", DBPassword: "pw"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", cfg.Domain)
}

func TestResolve_KeepsSuppliedPassword(t *testing.T) {
	cfg, err := Resolve(Inputs{Domain: "shop.example.com", ImageOwner: "acme", DBPassword: "hunter2"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.DBPassword)
	assert.False(t, cfg.GeneratedPassword)
}

func TestResolve_GeneratesPassword(t *testing.T) {
	cfg, err := Resolve(Inputs{Domain: "shop.example.com", ImageOwner: "acme"}, discardLogger())
	require.NoError(t, err)
	assert.Len(t, cfg.DBPassword, 24)
	assert.True(t, cfg.GeneratedPassword)

	// A second resolution is a new run with its own password.
	other, err := Resolve(Inputs{Domain: "shop.example.com", ImageOwner: "acme"}, discardLogger())
	require.NoError(t, err)
	assert.NotEqual(t, cfg.DBPassword, other.DBPassword)
}

func TestEndpoints(t *testing.T) {
	cfg := &Deployment{Domain: "shop.example.com"}
	eps := cfg.Endpoints()

	assert.Equal(t, "https://shop.example.com/", eps.Storefront)
	assert.Equal(t, "https://shop.example.com/dashboard/", eps.Dashboard)
	assert.Equal(t, "https://shop.example.com/graphql/", eps.API)
}

func TestFromEnv_FillsEmptyFields(t *testing.T) {
	t.Setenv("SHOPCTL_DOMAIN", "env.example.com")
	t.Setenv("SHOPCTL_IMAGE_OWNER", "envowner")
	t.Setenv("SHOPCTL_DB_PASSWORD", "envpw")

	in, err := FromEnv(Inputs{})
	require.NoError(t, err)
	assert.Equal(t, "env.example.com", in.Domain)
	assert.Equal(t, "envowner", in.ImageOwner)
	assert.Equal(t, "envpw", in.DBPassword)
}

func TestFromEnv_FlagsWin(t *testing.T) {
	t.Setenv("SHOPCTL_DOMAIN", "env.example.com")

	in, err := FromEnv(Inputs{Domain: "flag.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "flag.example.com", in.Domain)
}

func TestFromEnv_RegistryCredentials(t *testing.T) {
	t.Setenv("SHOPCTL_REGISTRY_USER", "robot")
	t.Setenv("SHOPCTL_REGISTRY_PASSWORD", "token")

	in, err := FromEnv(Inputs{})
	require.NoError(t, err)
	assert.Equal(t, "robot", in.RegistryUser)
	assert.Equal(t, "token", in.RegistryPassword)
}
