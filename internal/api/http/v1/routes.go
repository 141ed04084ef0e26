package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/mkravets/slug-registry/internal/middleware"
	"github.com/mkravets/slug-registry/internal/models"
)

// SlugRegistry defines the slug registry operations exposed over HTTP.
type SlugRegistry interface {
	// ValidateSlug checks a candidate against the format rules,
	// reporting every violated rule. Pure, no I/O.
	ValidateSlug(candidate string) models.ValidationResult

	// CheckAvailability reports whether a candidate is free to claim by
	// the given account. Advisory only: reservation re-checks atomically.
	CheckAvailability(ctx context.Context, candidate, accountID string) (bool, error)

	// ReserveSlug atomically claims a slug for an account that doesn't
	// have one yet.
	ReserveSlug(ctx context.Context, accountID string, accountType models.AccountType, candidate string) (*models.Slug, error)

	// UpdateSlug atomically renames the account's slug, appending the
	// rename history entry in the same transaction.
	UpdateSlug(ctx context.Context, accountID string, accountType models.AccountType, candidate string) (*models.Slug, error)

	// GetSlugHistory returns the account's rename history, newest first.
	GetSlugHistory(ctx context.Context, accountID string) ([]models.SlugChange, error)

	// GenerateSuggestions produces up to n available alternatives for an
	// unavailable base slug. Always terminates; n is capped server-side.
	GenerateSuggestions(ctx context.Context, base string, n int) ([]string, error)

	// ResolveRedirect determines where a slug requested under a route
	// category currently points.
	ResolveRedirect(ctx context.Context, routeType models.AccountType, value string) (models.Resolution, error)

	// ClearCache drops every cached resolution.
	ClearCache()

	// InvalidateSlug drops cached resolutions for one slug value.
	InvalidateSlug(value string)

	// PreloadCache warms the resolution cache, best effort.
	PreloadCache(ctx context.Context, values []string)
}

// getValidate initializes a validator instance for incoming request
// payloads, reporting field names by their JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes the HTTP router with all routes and middleware
// configured. The jwtSecret verifies bearer tokens issued by the external
// identity provider.
func NewRouter(logger *httplog.Logger, svc SlugRegistry, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Use(middleware.WithAccount(jwtSecret))

		r.Get("/ping", handlePing)

		r.Route("/slugs", func(r chi.Router) {
			r.Post("/validate", handleValidateSlug(svc, validate))

			r.With(middleware.RequireAccount).Post("/", handleReserveSlug(svc, validate))
			r.With(middleware.RequireAccount).Put("/", handleUpdateSlug(svc, validate))
			r.With(middleware.RequireAccount).Get("/history", handleGetSlugHistory(svc))

			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/availability", handleCheckAvailability(svc))
				r.Get("/suggestions", handleGenerateSuggestions(svc))
			})
		})

		r.Get("/redirects/{category}/{slug}", handleResolveRedirect(svc))

		r.Route("/cache", func(r chi.Router) {
			r.Use(middleware.RequireAccount)

			r.Delete("/", handleClearCache(svc))
			r.Delete("/{slug}", handleClearCache(svc))
			r.Post("/preload", handlePreloadCache(svc, validate))
		})
	})

	return r
}
