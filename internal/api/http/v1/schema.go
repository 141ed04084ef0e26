package http

import (
	"time"

	"github.com/mkravets/slug-registry/internal/models"
)

// slugRequest is the payload for reserving or changing a slug.
type slugRequest struct {
	Slug        string `json:"slug" validate:"required"`
	AccountType string `json:"account_type" validate:"required,oneof=provider vendor organization"`
}

// validateSlugRequest is the payload for syntactic validation only.
type validateSlugRequest struct {
	Slug string `json:"slug" validate:"required"`
}

// preloadRequest is the payload for warming the resolution cache.
type preloadRequest struct {
	Slugs []string `json:"slugs" validate:"required,min=1,max=100,dive,required"`
}

// slugResponse is the payload describing a slug record.
type slugResponse struct {
	ID          int64     `json:"id"`
	AccountID   string    `json:"account_id"`
	AccountType string    `json:"account_type"`
	Slug        string    `json:"slug"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSlugResponse(s *models.Slug) slugResponse {
	return slugResponse{
		ID:          s.ID,
		AccountID:   s.AccountID,
		AccountType: string(s.AccountType),
		Slug:        s.Value,
		Path:        s.Path(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// validationResponse reports the outcome of slug validation with every
// violated rule.
type validationResponse struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons,omitempty"`
}

func toValidationResponse(result models.ValidationResult) validationResponse {
	return validationResponse{
		Valid:   result.Valid,
		Reasons: result.Reasons,
	}
}

// availabilityResponse reports whether a slug is free to claim.
type availabilityResponse struct {
	Slug      string `json:"slug"`
	Available bool   `json:"available"`
}

// suggestionsResponse carries alternative slugs for an unavailable base.
type suggestionsResponse struct {
	Slug        string   `json:"slug"`
	Suggestions []string `json:"suggestions"`
}

// resolutionResponse reports where an old slug currently points.
type resolutionResponse struct {
	Found      bool   `json:"found"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

func toResolutionResponse(res models.Resolution) resolutionResponse {
	return resolutionResponse{
		Found:      res.Found,
		RedirectTo: res.RedirectTo,
	}
}

// slugChangeResponse is a single rename history entry.
type slugChangeResponse struct {
	OldSlug   string    `json:"old_slug"`
	NewSlug   string    `json:"new_slug"`
	ChangedAt time.Time `json:"changed_at"`
}

func toSlugChangeResponses(changes []models.SlugChange) []slugChangeResponse {
	resp := make([]slugChangeResponse, 0, len(changes))
	for _, c := range changes {
		resp = append(resp, slugChangeResponse{
			OldSlug:   c.OldValue,
			NewSlug:   c.NewValue,
			ChangedAt: c.ChangedAt,
		})
	}
	return resp
}
