// Package service implements the slug registry: validation, atomic
// reservation and renames, availability checks, suggestion generation and
// redirect resolution for the public marketplace profile paths.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkravets/slug-registry/internal/database"
	"github.com/mkravets/slug-registry/internal/models"
	"github.com/mkravets/slug-registry/pkg/cache"
)

// ErrUnknownAccountType is returned when a reservation or update names an
// account type outside the fixed set.
var ErrUnknownAccountType = errors.New("unknown account type")

// InvalidSlugError is returned when a candidate slug fails format
// validation. It carries the full validation result so callers can report
// every violated rule.
type InvalidSlugError struct {
	Result models.ValidationResult
}

func (e *InvalidSlugError) Error() string {
	return "invalid slug: " + strings.Join(e.Result.Reasons, "; ")
}

// SlugRepository defines the persistence contract the registry depends on.
// Create and UpdateValue must be atomic against concurrent claims of the
// same value: the registry never performs a separate availability read
// before claiming.
type SlugRepository interface {
	// Create inserts a new slug record, failing with
	// database.ErrSlugExists when the value is already claimed and
	// database.ErrAccountHasSlug when the account already owns one.
	Create(ctx context.Context, accountID string, accountType models.AccountType, value string) (*models.Slug, error)

	// GetByValue returns the live record for a slug value, or
	// database.ErrSlugNotFound.
	GetByValue(ctx context.Context, value string) (*models.Slug, error)

	// GetByAccount returns the record owned by the account, or
	// database.ErrAccountNotFound.
	GetByAccount(ctx context.Context, accountID string) (*models.Slug, error)

	// UpdateValue atomically rewrites the account's slug and appends the
	// old-to-new history entry in the same transaction.
	UpdateValue(ctx context.Context, accountID, value string) (*models.Slug, error)

	// History returns the account's rename history, newest first.
	History(ctx context.Context, accountID string) ([]models.SlugChange, error)

	// LatestChangeByOldValue returns the most recent rename away from
	// the given value, or database.ErrSlugNotFound.
	LatestChangeByOldValue(ctx context.Context, oldValue string) (*models.SlugChange, error)

	// FilterTaken returns the subset of values that are currently claimed.
	FilterTaken(ctx context.Context, values []string) (map[string]struct{}, error)
}

// Registry owns the slug namespace: it enforces uniqueness, records rename
// history and answers redirect queries for old slugs. The resolution cache
// is an injected optimization; correctness never depends on it.
type Registry struct {
	repo               SlugRepository
	cache              *cache.TTL[models.Resolution]
	logger             *slog.Logger
	preloadConcurrency int
}

// Option configures a Registry.
type Option func(*Registry)

// WithPreloadConcurrency bounds the fan-out of PreloadCache.
func WithPreloadConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.preloadConcurrency = n
		}
	}
}

const defaultPreloadConcurrency = 8

// NewRegistry creates a Registry backed by the given repository, resolution
// cache and logger.
func NewRegistry(repo SlugRepository, c *cache.TTL[models.Resolution], logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		repo:               repo,
		cache:              c,
		logger:             logger,
		preloadConcurrency: defaultPreloadConcurrency,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ValidateSlug checks a candidate against the format rules. Pure, no I/O.
func (r *Registry) ValidateSlug(candidate string) models.ValidationResult {
	return ValidateSlug(candidate)
}

// CheckAvailability reports whether the candidate slug is free to claim by
// the given account. A slug the account already owns counts as available.
// The answer is advisory only: the reserve and update paths re-check
// atomically at the store, so racing callers cannot both succeed.
func (r *Registry) CheckAvailability(ctx context.Context, candidate, accountID string) (bool, error) {
	const op = "service.Registry.CheckAvailability"

	rec, err := r.repo.GetByValue(ctx, candidate)
	if err != nil {
		if errors.Is(err, database.ErrSlugNotFound) {
			return true, nil
		}

		return false, fmt.Errorf("%s: failed to check availability: %w", op, err)
	}

	return rec.AccountID == accountID, nil
}

// ReserveSlug atomically claims the candidate slug for an account that does
// not yet have one. Concurrent reservations of the same value resolve to
// exactly one success; the loser gets database.ErrSlugExists.
func (r *Registry) ReserveSlug(ctx context.Context, accountID string, accountType models.AccountType, candidate string) (*models.Slug, error) {
	const op = "service.Registry.ReserveSlug"

	if !accountType.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownAccountType, accountType)
	}

	if result := ValidateSlug(candidate); !result.Valid {
		return nil, fmt.Errorf("%s: %w", op, &InvalidSlugError{Result: result})
	}

	rec, err := r.repo.Create(ctx, accountID, accountType, candidate)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to reserve slug: %w", op, err)
	}

	// A cached not-found for this value is now stale.
	r.invalidateValue(candidate)

	return rec, nil
}

// UpdateSlug atomically renames the account's existing slug to the
// candidate, appending the old-to-new history entry in the same store
// transaction. The old value becomes immediately claimable by others.
func (r *Registry) UpdateSlug(ctx context.Context, accountID string, accountType models.AccountType, candidate string) (*models.Slug, error) {
	const op = "service.Registry.UpdateSlug"

	if !accountType.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownAccountType, accountType)
	}

	if result := ValidateSlug(candidate); !result.Valid {
		return nil, fmt.Errorf("%s: %w", op, &InvalidSlugError{Result: result})
	}

	cur, err := r.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load current slug: %w", op, err)
	}

	rec, err := r.repo.UpdateValue(ctx, accountID, candidate)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to update slug: %w", op, err)
	}

	r.invalidateValue(cur.Value)
	r.invalidateValue(candidate)

	return rec, nil
}

// GetSlugHistory returns the account's rename history, newest first.
func (r *Registry) GetSlugHistory(ctx context.Context, accountID string) ([]models.SlugChange, error) {
	const op = "service.Registry.GetSlugHistory"

	changes, err := r.repo.History(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get slug history: %w", op, err)
	}

	return changes, nil
}
