// Package deploy assembles the provisioning pipeline: the ordered, guarded
// steps that take a resolved configuration to a running stack.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopstack/shopctl/internal/compose"
	"github.com/shopstack/shopctl/internal/config"
	"github.com/shopstack/shopctl/internal/envfile"
	"github.com/shopstack/shopctl/internal/render"
	"github.com/shopstack/shopctl/internal/secrets"
	"github.com/shopstack/shopctl/internal/steps"
	"github.com/shopstack/shopctl/internal/workspace"
)

// Fetched source trees. A tree that is already present is never updated.
const (
	coreRepoURL       = "https://github.com/saleor/saleor.git"
	dashboardRepoURL  = "https://github.com/saleor/saleor-dashboard.git"
	storefrontRepoURL = "https://github.com/saleor/saleor-storefront.git"

	coreDir       = "saleor"
	dashboardDir  = "saleor-dashboard"
	storefrontDir = "saleor-storefront"
)

// Workspace-relative artifact and secret locations.
const (
	manifestFile     = "docker-compose.yml"
	caddyFile        = "Caddyfile"
	backendEnvFile   = "backend.env"
	dashboardEnvTmpl = ".env.template"
	dashboardEnvFile = ".env"
	rsaKeyFile       = "rsa_private_key.pem"
)

// Mode selects how much of the pipeline runs.
type Mode int

const (
	// ModeRender materializes the workspace and artifacts only.
	ModeRender Mode = iota
	// ModeDeploy additionally creates the network and brings the stack up.
	ModeDeploy
)

// Orchestrator is the subset of the compose client the pipeline drives.
type Orchestrator interface {
	Down(ctx context.Context) error
	Pull(ctx context.Context) error
	Up(ctx context.Context) error
	HasNetwork(ctx context.Context, name string) bool
	EnsureNetwork(ctx context.Context, name string) error
	Login(ctx context.Context, user, password string) error
	RunMigrations(ctx context.Context) error
	CollectStatic(ctx context.Context) error
}

// ClientFactory builds an orchestrator client with the given scoped
// environment overlay. The overlay carries the RSA key at deploy time.
type ClientFactory func(extraEnv envfile.Vars) Orchestrator

// Pipeline wires configuration, workspace, renderer and orchestrator into
// one ordered step list.
type Pipeline struct {
	cfg    *config.Deployment
	ws     *workspace.Materializer
	logger *slog.Logger

	newSecret render.SecretSource
	newClient ClientFactory
}

// Option customizes a Pipeline; used by tests to stub secrets and the
// orchestrator.
type Option func(*Pipeline)

// WithSecretSource overrides the secret key generator.
func WithSecretSource(src render.SecretSource) Option {
	return func(p *Pipeline) { p.newSecret = src }
}

// WithClientFactory overrides how orchestrator clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(p *Pipeline) { p.newClient = f }
}

// New constructs a Pipeline for the given deployment and workspace.
func New(cfg *config.Deployment, ws *workspace.Materializer, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		ws:        ws,
		logger:    logger,
		newSecret: secrets.NewSecretKey,
	}
	// The manifest path stays relative: compose runs with the workspace
	// root as its working directory.
	p.newClient = func(extraEnv envfile.Vars) Orchestrator {
		return compose.NewClient(manifestFile, p.ws.Root, extraEnv, logger)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// KeyPath is the location of the persisted RSA private key.
func (p *Pipeline) KeyPath() string {
	return p.ws.Path(rsaKeyFile)
}

// Steps returns the ordered step list for the given mode. Order is
// significant: source trees before env rendering, key generation before
// manifest rendering, network creation before the stack starts.
func (p *Pipeline) Steps(mode Mode) []steps.Step {
	list := []steps.Step{
		{
			Name: "workspace",
			Skip: p.existsGuard(p.ws.Root, "workspace root already exists"),
			Run:  func(context.Context) error { return p.ws.EnsureRoot() },
		},
		p.fetchStep("fetch-core", coreRepoURL, coreDir),
		p.fetchStep("fetch-dashboard", dashboardRepoURL, dashboardDir),
		p.fetchStep("fetch-storefront", storefrontRepoURL, storefrontDir),
		{
			Name: "rsa-key",
			Skip: p.existsGuard(p.KeyPath(), "key file already exists"),
			Run: func(context.Context) error {
				_, _, err := secrets.EnsureRSAKey(p.KeyPath())
				return err
			},
		},
	}

	if mode == ModeDeploy {
		orch := p.newClient(nil)
		list = append(list, steps.Step{
			Name: "network",
			Skip: func(ctx context.Context) (bool, string, error) {
				if orch.HasNetwork(ctx, render.NetworkName) {
					return true, "network already exists", nil
				}
				return false, "", nil
			},
			Run: func(ctx context.Context) error {
				return orch.EnsureNetwork(ctx, render.NetworkName)
			},
		})
		if p.cfg.RegistryUser != "" && p.cfg.RegistryPassword != "" {
			list = append(list, steps.Step{
				Name: "registry-login",
				Run: func(ctx context.Context) error {
					return orch.Login(ctx, p.cfg.RegistryUser, p.cfg.RegistryPassword)
				},
			})
		}
	}

	for _, artifact := range p.Artifacts() {
		list = append(list, p.renderStep(artifact))
	}

	if mode == ModeDeploy {
		// The deploy step has no guard: it always tears down and restarts.
		list = append(list, steps.Step{
			Name: "deploy",
			Run:  p.deploy,
		})
	}

	return list
}

// Artifacts returns the generated files in render order.
func (p *Pipeline) Artifacts() []render.Artifact {
	return []render.Artifact{
		{
			Name: "compose-manifest",
			Path: p.ws.Path(manifestFile),
			Render: func() ([]byte, error) {
				m, err := render.BuildManifest(p.cfg, p.newSecret)
				if err != nil {
					return nil, err
				}
				return render.MarshalManifest(m)
			},
		},
		{
			Name: "caddyfile",
			Path: p.ws.Path(caddyFile),
			Render: func() ([]byte, error) {
				return render.BuildCaddyfile(p.cfg)
			},
		},
		{
			Name: "backend-env",
			Path: p.ws.Path(backendEnvFile),
			Render: func() ([]byte, error) {
				return render.BuildBackendEnv(p.cfg, p.newSecret)
			},
		},
		{
			Name: "dashboard-env",
			Path: p.ws.Path(dashboardDir, dashboardEnvFile),
			Render: func() ([]byte, error) {
				return render.BuildDashboardEnv(p.cfg, p.ws.Path(dashboardDir, dashboardEnvTmpl))
			},
		},
	}
}

// Run executes the pipeline for the given mode. In deploy mode it then runs
// the post-deploy maintenance commands; their failures are surfaced through
// the logger and the returned slice but do not fail the run (fail-forward).
func (p *Pipeline) Run(ctx context.Context, mode Mode) ([]error, error) {
	runner := steps.NewRunner(p.logger)
	if err := runner.Run(ctx, p.Steps(mode)); err != nil {
		return nil, err
	}

	if mode != ModeDeploy {
		return nil, nil
	}

	var maintenance []error
	key, err := secrets.LoadRSAKey(p.KeyPath())
	if err != nil {
		return nil, err
	}
	orch := p.newClient(envfile.Vars{"RSA_PRIVATE_KEY": string(key)})

	for _, task := range []struct {
		name string
		run  func(context.Context) error
	}{
		{"migrate", orch.RunMigrations},
		{"collectstatic", orch.CollectStatic},
	} {
		p.logger.Info("running maintenance command", "command", task.name)
		if err := task.run(ctx); err != nil {
			p.logger.Error("maintenance command failed", "command", task.name, "error", err)
			maintenance = append(maintenance, err)
		}
	}

	return maintenance, nil
}

// deploy hands the rendered manifest to the orchestrator: tear down any
// previous stack, pull images, then start everything with the RSA key
// supplied as a scoped environment overlay.
func (p *Pipeline) deploy(ctx context.Context) error {
	key, err := secrets.LoadRSAKey(p.KeyPath())
	if err != nil {
		return err
	}

	orch := p.newClient(envfile.Vars{"RSA_PRIVATE_KEY": string(key)})

	if err := orch.Down(ctx); err != nil {
		return err
	}
	if err := orch.Pull(ctx); err != nil {
		return err
	}
	return orch.Up(ctx)
}

// Down tears the stack down without touching the workspace.
func (p *Pipeline) Down(ctx context.Context) error {
	return p.newClient(nil).Down(ctx)
}

func (p *Pipeline) fetchStep(name, url, dir string) steps.Step {
	return steps.Step{
		Name: name,
		Skip: func(context.Context) (bool, string, error) {
			if p.ws.HasRepo(dir) {
				return true, fmt.Sprintf("source tree %q already present", dir), nil
			}
			return false, "", nil
		},
		Run: func(ctx context.Context) error {
			return p.ws.EnsureRepo(ctx, url, dir)
		},
	}
}

func (p *Pipeline) renderStep(artifact render.Artifact) steps.Step {
	return steps.Step{
		Name: "render-" + artifact.Name,
		Skip: func(context.Context) (bool, string, error) {
			if artifact.Exists() {
				return true, "artifact already exists", nil
			}
			return false, "", nil
		},
		Run: func(context.Context) error {
			_, err := render.WriteOnce(artifact)
			return err
		},
	}
}

func (p *Pipeline) existsGuard(path, reason string) func(context.Context) (bool, string, error) {
	return func(context.Context) (bool, string, error) {
		if _, err := os.Stat(path); err == nil {
			return true, reason, nil
		}
		return false, "", nil
	}
}
