package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/shopstack/shopctl/internal/config"
)

// caddyfileTemplate routes the GraphQL API and media paths to the api
// service and everything else to the dashboard, with on-demand certificate
// issuance for the deployment domain. The MIME overrides work around
// dashboard assets being served without a content type.
const caddyfileTemplate = `{
	on_demand_tls {
		interval 2m
		burst 5
	}
}

{{.Domain}} {
	tls {
		on_demand
	}

	@api path /graphql/* /thumbnail/* /media/*
	handle @api {
		reverse_proxy {{.APIUpstream}}
	}

	@scripts path_regexp \.js$
	header @scripts Content-Type application/javascript

	@styles path_regexp \.css$
	header @styles Content-Type text/css

	handle {
		reverse_proxy {{.DashboardUpstream}}
	}
}
`

// BuildCaddyfile renders the reverse-proxy configuration for the deployment.
func BuildCaddyfile(cfg *config.Deployment) ([]byte, error) {
	tmpl, err := template.New("Caddyfile").Parse(caddyfileTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse Caddyfile template: %w", err)
	}

	data := struct {
		Domain            string
		APIUpstream       string
		DashboardUpstream string
	}{
		Domain:            cfg.Domain,
		APIUpstream:       apiUpstream,
		DashboardUpstream: dashboardUpstream,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute Caddyfile template: %w", err)
	}
	return buf.Bytes(), nil
}
