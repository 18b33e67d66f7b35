package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"github.com/shopstack/shopctl/internal/config"
)

// NetworkName is the external docker network every service joins. It is
// created by the network provisioning step before the stack starts.
const NetworkName = "saleor-net"

// Internal service endpoints the reverse proxy routes to.
const (
	apiUpstream       = "api:8000"
	dashboardUpstream = "dashboard:80"
)

// Manifest is the compose file model. It is deliberately narrower than the
// full compose spec: only the fields this stack uses.
type Manifest struct {
	Services map[string]Service `yaml:"services"`
	Networks map[string]Network `yaml:"networks"`
	Volumes  map[string]Volume  `yaml:"volumes,omitempty"`
}

// Service is a single compose service declaration.
type Service struct {
	Image       string            `yaml:"image,omitempty"`
	Command     string            `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	Networks    []string          `yaml:"networks,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
	Restart     string            `yaml:"restart,omitempty"`
}

// Network is a compose network declaration.
type Network struct {
	Name     string `yaml:"name,omitempty"`
	External bool   `yaml:"external,omitempty"`
}

// Volume is a named compose volume declaration.
type Volume struct{}

// SecretSource produces a fresh secret key per call. The api and worker
// blocks each draw their own value within one rendering pass.
type SecretSource func() (string, error)

// BuildManifest assembles the compose manifest for the deployment. All
// domain and password interpolation sites draw from the one cfg value, so
// they are byte-identical across the manifest. The RSA key is not embedded;
// the manifest references the RSA_PRIVATE_KEY variable that the deployment
// driver supplies to the orchestrator. The reference defaults to empty so
// lifecycle commands that run without the key (teardown) do not warn.
func BuildManifest(cfg *config.Deployment, newSecret SecretSource) (*Manifest, error) {
	apiSecret, err := newSecret()
	if err != nil {
		return nil, err
	}
	workerSecret, err := newSecret()
	if err != nil {
		return nil, err
	}

	databaseURL := fmt.Sprintf("postgres://saleor:%s@db:5432/saleor", cfg.DBPassword)
	allowedHosts := fmt.Sprintf("%s,localhost", cfg.Domain)

	m := &Manifest{
		Services: map[string]Service{
			"api": {
				Image: fmt.Sprintf("%s/saleor-api:latest", cfg.ImageOwner),
				Environment: map[string]string{
					"SECRET_KEY":        apiSecret,
					"RSA_PRIVATE_KEY":   "${RSA_PRIVATE_KEY:-}",
					"ALLOWED_HOSTS":     allowedHosts,
					"DATABASE_URL":      databaseURL,
					"CACHE_URL":         "redis://redis:6379/0",
					"CELERY_BROKER_URL": "redis://redis:6379/1",
					"EMAIL_URL":         "smtp://mailpit:1025",
					"PUBLIC_URL":        fmt.Sprintf("https://%s/", cfg.Domain),
					"JAEGER_AGENT_HOST": "jaeger",
				},
				Volumes:   []string{"saleor-media:/app/media"},
				Networks:  []string{"backend"},
				DependsOn: []string{"db", "redis"},
				Restart:   "unless-stopped",
			},
			"worker": {
				Image:   fmt.Sprintf("%s/saleor-api:latest", cfg.ImageOwner),
				Command: "celery -A saleor --app=saleor.celery:app worker --loglevel=info",
				Environment: map[string]string{
					"SECRET_KEY":        workerSecret,
					"RSA_PRIVATE_KEY":   "${RSA_PRIVATE_KEY:-}",
					"ALLOWED_HOSTS":     allowedHosts,
					"DATABASE_URL":      databaseURL,
					"CACHE_URL":         "redis://redis:6379/0",
					"CELERY_BROKER_URL": "redis://redis:6379/1",
					"EMAIL_URL":         "smtp://mailpit:1025",
				},
				Volumes:   []string{"saleor-media:/app/media"},
				Networks:  []string{"backend"},
				DependsOn: []string{"db", "redis"},
				Restart:   "unless-stopped",
			},
			"dashboard": {
				Image:    fmt.Sprintf("%s/saleor-dashboard:latest", cfg.ImageOwner),
				Networks: []string{"backend"},
				Restart:  "unless-stopped",
			},
			"db": {
				Image: "postgres:15-alpine",
				Environment: map[string]string{
					"POSTGRES_USER":     "saleor",
					"POSTGRES_PASSWORD": cfg.DBPassword,
					"POSTGRES_DB":       "saleor",
				},
				Volumes:  []string{"db-data:/var/lib/postgresql/data"},
				Networks: []string{"backend"},
				Restart:  "unless-stopped",
			},
			"redis": {
				Image:    "redis:7-alpine",
				Volumes:  []string{"redis-data:/data"},
				Networks: []string{"backend"},
				Restart:  "unless-stopped",
			},
			"jaeger": {
				Image:    "jaegertracing/all-in-one:latest",
				Networks: []string{"backend"},
				Restart:  "unless-stopped",
			},
			"mailpit": {
				Image:    "axllent/mailpit:latest",
				Networks: []string{"backend"},
				Restart:  "unless-stopped",
			},
			"caddy": {
				Image: "caddy:2-alpine",
				Ports: []string{"80:80", "443:443"},
				Volumes: []string{
					"./Caddyfile:/etc/caddy/Caddyfile:ro",
					"caddy-data:/data",
					"caddy-config:/config",
				},
				Networks:  []string{"backend"},
				DependsOn: []string{"api", "dashboard"},
				Restart:   "unless-stopped",
			},
		},
		Networks: map[string]Network{
			"backend": {Name: NetworkName, External: true},
		},
		Volumes: map[string]Volume{
			"saleor-media": {},
			"db-data":      {},
			"redis-data":   {},
			"caddy-data":   {},
			"caddy-config": {},
		},
	}

	return m, nil
}

// MarshalManifest encodes the manifest as compose YAML and runs it through
// the compose loader so a manifest the orchestrator would reject fails at
// render time instead.
func MarshalManifest(m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize manifest: %w", err)
	}

	if err := ValidateManifest(buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidateManifest loads compose YAML through compose-go with validation
// enabled, without touching the filesystem.
func ValidateManifest(content []byte) error {
	var dict map[string]interface{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return fmt.Errorf("manifest is not valid YAML: %w", err)
	}

	_, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: content,
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("shopctl", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return fmt.Errorf("manifest failed compose validation: %w", err)
	}
	return nil
}
