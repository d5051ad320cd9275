package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/onboarding-wizard/internal/http/v1/onboarding"
	"github.com/janisto/onboarding-wizard/internal/platform/auth"
)

// Register wires all v1 HTTP routes into the provided API router.
func Register(api huma.API, verifier auth.Verifier, registry *onboarding.Registry) {
	api.OpenAPI().Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	// Apply auth middleware for protected endpoints
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))

	onboarding.Register(api, registry)
}
