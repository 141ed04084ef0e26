package models

import (
	"fmt"
	"time"
)

// AccountType identifies the kind of account that owns a slug.
type AccountType string

const (
	AccountTypeProvider     AccountType = "provider"
	AccountTypeVendor       AccountType = "vendor"
	AccountTypeOrganization AccountType = "organization"
)

// Category returns the public route prefix under which profiles of this
// account type are served, e.g. "providers" for an individual provider.
func (t AccountType) Category() string {
	switch t {
	case AccountTypeProvider:
		return "providers"
	case AccountTypeVendor:
		return "vendors"
	case AccountTypeOrganization:
		return "organizations"
	}
	return ""
}

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t.Category() != ""
}

// ParseCategory maps a route category prefix back to its account type.
// It returns an error for unknown categories.
func ParseCategory(category string) (AccountType, error) {
	switch category {
	case "providers":
		return AccountTypeProvider, nil
	case "vendors":
		return AccountTypeVendor, nil
	case "organizations":
		return AccountTypeOrganization, nil
	}
	return "", fmt.Errorf("unknown route category: %q", category)
}

// Slug represents the current slug owned by a single account. The slug
// value is globally unique across all account types.
type Slug struct {
	// ID is the unique identifier of the slug record.
	ID int64
	// AccountID is the identifier of the owning account.
	AccountID string
	// AccountType is the kind of the owning account.
	AccountType AccountType
	// Value is the slug string itself.
	Value string
	// CreatedAt is the timestamp of the initial reservation.
	CreatedAt time.Time
	// UpdatedAt is the timestamp of the last slug change.
	UpdatedAt time.Time
}

// Path returns the public profile path for the slug, e.g. "/vendors/acme-labs".
func (s *Slug) Path() string {
	return "/" + s.AccountType.Category() + "/" + s.Value
}

// SlugChange is an append-only history entry recording a slug rename.
// Entries are never mutated or deleted once written.
type SlugChange struct {
	// ID is the unique identifier of the history entry.
	ID int64
	// AccountID is the identifier of the account whose slug changed.
	AccountID string
	// OldValue is the slug before the change.
	OldValue string
	// NewValue is the slug after the change.
	NewValue string
	// ChangedAt is the timestamp of the change.
	ChangedAt time.Time
}

// ValidationResult reports the outcome of syntactic slug validation.
// Reasons lists every violated rule so the caller can render all errors
// at once.
type ValidationResult struct {
	Valid   bool
	Reasons []string
}

// Resolution is the outcome of resolving a slug under a route category.
// RedirectTo is empty when the slug is live in the queried category.
type Resolution struct {
	// Found reports whether the slug maps to a live profile, either
	// directly or through rename history.
	Found bool
	// RedirectTo is the current public path the caller should redirect
	// to, or empty when no redirect is needed.
	RedirectTo string
}
