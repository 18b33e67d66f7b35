package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopstack/shopctl/internal/config"
	"github.com/shopstack/shopctl/internal/envfile"
)

// BuildBackendEnv renders the backend .env file. The secret key is drawn
// fresh from newSecret; domain and password come verbatim from cfg.
func BuildBackendEnv(cfg *config.Deployment, newSecret SecretSource) ([]byte, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}

	vars := envfile.Vars{
		"SECRET_KEY":         secret,
		"ALLOWED_HOSTS":      fmt.Sprintf("%s,localhost", cfg.Domain),
		"DATABASE_URL":       fmt.Sprintf("postgres://saleor:%s@db:5432/saleor", cfg.DBPassword),
		"CACHE_URL":          "redis://redis:6379/0",
		"CELERY_BROKER_URL":  "redis://redis:6379/1",
		"EMAIL_URL":          "smtp://mailpit:1025",
		"DEFAULT_FROM_EMAIL": fmt.Sprintf("noreply@%s", cfg.Domain),
		"JAEGER_AGENT_HOST":  "jaeger",
	}
	return envfile.Marshal(vars), nil
}

// BuildDashboardEnv derives the dashboard .env from the template file
// shipped inside the fetched dashboard tree. Only the API_URI and APP_URL
// lines are substituted; every other line is preserved byte-for-byte.
func BuildDashboardEnv(cfg *config.Deployment, templatePath string) ([]byte, error) {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("dashboard env template %q: %w", templatePath, err)
	}

	endpoints := cfg.Endpoints()
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "API_URI="):
			lines[i] = "API_URI=" + endpoints.API
		case strings.HasPrefix(line, "APP_URL="):
			lines[i] = "APP_URL=" + endpoints.Dashboard
		}
	}
	return []byte(strings.Join(lines, "\n")), nil
}
