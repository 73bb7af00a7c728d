package store

import "fmt"

// DefaultTenant is used when no tenant identifier is configured.
const DefaultTenant = "default-app-id"

// Paths are the tenant-scoped collection paths.
type Paths struct {
	Issues   string
	Profiles string
}

func TenantPaths(tenant string) Paths {
	if tenant == "" {
		tenant = DefaultTenant
	}
	base := fmt.Sprintf("artifacts/%s/public/data", tenant)
	return Paths{
		Issues:   base + "/issues",
		Profiles: base + "/profiles",
	}
}
