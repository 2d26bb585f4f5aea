package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Known values of server.environment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Deployment describes where the service runs. It is resolved once at startup
// and drives the session cookie identity.
type Deployment struct {
	// Shared is true when served under a shared hosting domain rather than a
	// local/dev host.
	Shared bool
	// Production is true on the production environment.
	Production bool

	ProductionDomain string
	StagingDomain    string
}

// ResolveDeployment builds a Deployment. Empty shared/production values fall
// back to the environment: production implies shared+production, staging
// implies shared, anything else is local.
func ResolveDeployment(environment, shared, production, productionDomain, stagingDomain string) (Deployment, error) {
	env := strings.ToLower(strings.TrimSpace(environment))

	d := Deployment{
		Shared:           env == EnvProduction || env == EnvStaging,
		Production:       env == EnvProduction,
		ProductionDomain: strings.TrimPrefix(strings.TrimSpace(productionDomain), "."),
		StagingDomain:    strings.TrimPrefix(strings.TrimSpace(stagingDomain), "."),
	}

	if shared != "" {
		b, err := strconv.ParseBool(shared)
		if err != nil {
			return Deployment{}, fmt.Errorf("invalid deployment.shared %q: %w", shared, err)
		}
		d.Shared = b
	}
	if production != "" {
		b, err := strconv.ParseBool(production)
		if err != nil {
			return Deployment{}, fmt.Errorf("invalid deployment.production %q: %w", production, err)
		}
		d.Production = b
	}

	if d.Shared && d.Production && d.ProductionDomain == "" {
		return Deployment{}, fmt.Errorf("deployment.production_domain is required for shared production deployments")
	}
	if d.Shared && !d.Production && d.StagingDomain == "" {
		return Deployment{}, fmt.Errorf("deployment.staging_domain is required for shared non-production deployments")
	}

	return d, nil
}
