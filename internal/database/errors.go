package database

import "errors"

var (
	// ErrSlugExists is returned when an attempt is made to claim a slug
	// value that is already owned by another account.
	ErrSlugExists = errors.New("slug exists")
	// ErrSlugNotFound is returned when no record exists for the
	// requested slug value.
	ErrSlugNotFound = errors.New("slug not found")
	// ErrAccountHasSlug is returned when an account that already owns a
	// slug attempts to reserve another one instead of updating.
	ErrAccountHasSlug = errors.New("account already has a slug")
	// ErrAccountNotFound is returned when the requesting account has no
	// slug record.
	ErrAccountNotFound = errors.New("account not found")
)
