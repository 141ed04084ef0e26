package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mkravets/slug-registry/internal/database"
	"github.com/mkravets/slug-registry/internal/models"
)

// ResolveRedirect determines where a slug requested under a route category
// currently points:
//
//  1. A live slug in the requested category is found as-is. A live slug
//     owned by a different category redirects to its correct category path
//     instead of 404-ing, so links survive an account's category change.
//  2. A dead slug falls back to rename history; the redirect targets the
//     owning account's current path, so chained renames land on the final
//     slug.
//  3. Anything else is not found.
//
// All three outcomes are cached per (category, slug); store errors are
// returned uncached so callers can fail open.
func (r *Registry) ResolveRedirect(ctx context.Context, routeType models.AccountType, value string) (models.Resolution, error) {
	const op = "service.Registry.ResolveRedirect"

	key := resolutionKey(routeType, value)
	if res, ok := r.cache.Get(key); ok {
		return res, nil
	}

	res, err := r.resolve(ctx, routeType, value)
	if err != nil {
		return models.Resolution{}, fmt.Errorf("%s: %w", op, err)
	}

	r.cache.Set(key, res)

	return res, nil
}

func (r *Registry) resolve(ctx context.Context, routeType models.AccountType, value string) (models.Resolution, error) {
	rec, err := r.repo.GetByValue(ctx, value)
	if err == nil {
		if rec.AccountType == routeType {
			return models.Resolution{Found: true}, nil
		}

		return models.Resolution{Found: true, RedirectTo: rec.Path()}, nil
	}
	if !errors.Is(err, database.ErrSlugNotFound) {
		return models.Resolution{}, err
	}

	change, err := r.repo.LatestChangeByOldValue(ctx, value)
	if err != nil {
		if errors.Is(err, database.ErrSlugNotFound) {
			return models.Resolution{}, nil
		}

		return models.Resolution{}, err
	}

	cur, err := r.repo.GetByAccount(ctx, change.AccountID)
	if err != nil {
		// History references an account whose record is gone; treat the
		// old slug as dead rather than redirecting into a 404.
		if errors.Is(err, database.ErrAccountNotFound) {
			return models.Resolution{}, nil
		}

		return models.Resolution{}, err
	}

	return models.Resolution{Found: true, RedirectTo: cur.Path()}, nil
}

// ClearCache drops every cached resolution.
func (r *Registry) ClearCache() {
	r.cache.Clear()
}

// InvalidateSlug drops the cached resolutions for a single slug value
// across all route categories.
func (r *Registry) InvalidateSlug(value string) {
	r.invalidateValue(value)
}

// PreloadCache warms the resolution cache for the given slug values across
// all route categories. It is best effort: per-item failures are logged and
// never abort the rest of the batch.
func (r *Registry) PreloadCache(ctx context.Context, values []string) {
	const op = "service.Registry.PreloadCache"

	types := []models.AccountType{
		models.AccountTypeProvider,
		models.AccountTypeVendor,
		models.AccountTypeOrganization,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.preloadConcurrency)

	for _, value := range values {
		value := value
		g.Go(func() error {
			for _, t := range types {
				if _, err := r.ResolveRedirect(ctx, t, value); err != nil {
					r.logger.Warn("failed to preload slug resolution",
						slog.String("op", op),
						slog.String("slug", value),
						slog.String("category", t.Category()),
						slog.Any("err", err),
					)
				}
			}
			return nil
		})
	}

	g.Wait() //nolint:errcheck // goroutines never return errors
}

func (r *Registry) invalidateValue(value string) {
	suffix := ":" + value
	r.cache.DeleteFunc(func(key string) bool {
		return strings.HasSuffix(key, suffix)
	})
}

func resolutionKey(routeType models.AccountType, value string) string {
	return routeType.Category() + ":" + value
}
