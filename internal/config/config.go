// Package config contains the input model and resolver for a deployment run.
package config

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/shopstack/shopctl/internal/secrets"
)

// hostnameRE matches DNS-hostname-shaped values with at least one dot.
var hostnameRE = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,62})(\.[a-z0-9]([a-z0-9-]{0,62}))+$`)

// Inputs holds the raw operator-supplied parameters before resolution.
// Fields left empty on the command line fall back to the SHOPCTL_*
// environment variables.
type Inputs struct {
	// Domain is the public domain the stack is served on.
	Domain string `env:"SHOPCTL_DOMAIN"`
	// ImageOwner is the registry owner/prefix for the application images.
	ImageOwner string `env:"SHOPCTL_IMAGE_OWNER"`
	// DBPassword is the database password; generated when empty.
	DBPassword string `env:"SHOPCTL_DB_PASSWORD"`
	// RegistryUser is an optional registry login user for pulling images.
	RegistryUser string `env:"SHOPCTL_REGISTRY_USER"`
	// RegistryPassword is the matching registry login password.
	RegistryPassword string `env:"SHOPCTL_REGISTRY_PASSWORD"`
}

// Deployment is the fully resolved configuration for one run. It is
// immutable after Resolve: every artifact interpolates its values from this
// one struct so that domain, password and key material stay byte-identical
// across all rendered files.
type Deployment struct {
	Domain           string
	ImageOwner       string
	DBPassword       string
	RegistryUser     string
	RegistryPassword string

	// GeneratedPassword records whether DBPassword was generated this run.
	GeneratedPassword bool
}

// InvalidInputError reports a malformed or missing operator input. It is
// raised before any side effect has happened.
type InvalidInputError struct {
	// Field names the offending input.
	Field string
	// Reason describes what is wrong with it.
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FromEnv fills empty fields of in from the SHOPCTL_* environment variables.
func FromEnv(in Inputs) (Inputs, error) {
	var overlay Inputs
	if err := env.Parse(&overlay); err != nil {
		return in, fmt.Errorf("parse environment overrides: %w", err)
	}
	if in.Domain == "" {
		in.Domain = overlay.Domain
	}
	if in.ImageOwner == "" {
		in.ImageOwner = overlay.ImageOwner
	}
	if in.DBPassword == "" {
		in.DBPassword = overlay.DBPassword
	}
	if in.RegistryUser == "" {
		in.RegistryUser = overlay.RegistryUser
	}
	if in.RegistryPassword == "" {
		in.RegistryPassword = overlay.RegistryPassword
	}
	return in, nil
}

// Resolve validates the inputs and produces an immutable Deployment.
// A missing database password is generated and reported through the logger
// exactly once; it is not retrievable afterwards.
func Resolve(in Inputs, logger *slog.Logger) (*Deployment, error) {
	domain := strings.ToLower(strings.TrimSpace(in.Domain))
	if domain == "" {
		return nil, &InvalidInputError{Field: "domain", Reason: "must not be empty"}
	}
	if !hostnameRE.MatchString(domain) {
		return nil, &InvalidInputError{Field: "domain", Reason: fmt.Sprintf("%q is not a valid DNS hostname", domain)}
	}

	owner := strings.TrimSpace(in.ImageOwner)
	if owner == "" {
		return nil, &InvalidInputError{Field: "image-owner", Reason: "must not be empty"}
	}

	d := &Deployment{
		Domain:           domain,
		ImageOwner:       owner,
		DBPassword:       in.DBPassword,
		RegistryUser:     in.RegistryUser,
		RegistryPassword: in.RegistryPassword,
	}

	if d.DBPassword == "" {
		pw, err := secrets.NewPassword()
		if err != nil {
			return nil, err
		}
		d.DBPassword = pw
		d.GeneratedPassword = true
		if logger != nil {
			logger.Warn("generated database password; it will not be shown again", "password", pw)
		}
	}

	return d, nil
}

// Endpoints lists the externally reachable URLs of the deployed stack.
type Endpoints struct {
	Storefront string
	Dashboard  string
	API        string
}

// Endpoints derives the public endpoints from the deployment domain.
func (d *Deployment) Endpoints() Endpoints {
	return Endpoints{
		Storefront: fmt.Sprintf("https://%s/", d.Domain),
		Dashboard:  fmt.Sprintf("https://%s/dashboard/", d.Domain),
		API:        fmt.Sprintf("https://%s/graphql/", d.Domain),
	}
}
