package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/mkravets/slug-registry/internal/database"
	"github.com/mkravets/slug-registry/internal/middleware"
	"github.com/mkravets/slug-registry/internal/models"
	"github.com/mkravets/slug-registry/internal/service"
	"github.com/mkravets/slug-registry/pkg/response"
)

// conflictSuggestionCount is how many alternatives are attached to a
// conflict response so the caller can offer them immediately.
const conflictSuggestionCount = 5

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// handleValidateSlug handles POST requests to syntactically validate a
// candidate slug. Every violated rule is reported, not just the first.
func handleValidateSlug(svc SlugRegistry, validate *validator.Validate) http.HandlerFunc {
	const successMsg = "The slug was validated."

	return func(w http.ResponseWriter, r *http.Request) {
		var req validateSlugRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		result := svc.ValidateSlug(req.Slug)

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toValidationResponse(result)))
	}
}

// handleCheckAvailability handles GET requests to check whether a slug is
// free to claim. A slug already owned by the requesting account counts as
// available.
func handleCheckAvailability(svc SlugRegistry) http.HandlerFunc {
	const op = "api.http.handleCheckAvailability"
	const successMsg = "The slug availability was checked."

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		accountID, _ := middleware.AccountIDFromContext(r.Context())

		available, err := svc.CheckAvailability(r.Context(), slug, accountID)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, availabilityResponse{
			Slug:      slug,
			Available: available,
		}))
	}
}

// handleGenerateSuggestions handles GET requests for alternative slugs when
// the desired one is taken. The count query parameter is capped server-side.
func handleGenerateSuggestions(svc SlugRegistry) http.HandlerFunc {
	const op = "api.http.handleGenerateSuggestions"
	const successMsg = "The slug suggestions were generated."

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		count := conflictSuggestionCount
		if raw := r.URL.Query().Get("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.BadRequestResponse)
				return
			}
			count = n
		}

		suggestions, err := svc.GenerateSuggestions(r.Context(), slug, count)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, suggestionsResponse{
			Slug:        slug,
			Suggestions: suggestions,
		}))
	}
}

// handleReserveSlug handles POST requests to claim a slug for the
// authenticated account. Losing a race for the same value surfaces as a
// conflict with alternative suggestions attached.
func handleReserveSlug(svc SlugRegistry, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleReserveSlug"
	const successMsg = "The slug was reserved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeSlugRequest(w, r, validate)
		if !ok {
			return
		}

		accountID, _ := middleware.AccountIDFromContext(r.Context())

		rec, err := svc.ReserveSlug(r.Context(), accountID, models.AccountType(req.AccountType), req.Slug)
		if err != nil {
			respondSlugError(w, r, svc, op, req.Slug, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toSlugResponse(rec)))
	}
}

// handleUpdateSlug handles PUT requests to rename the authenticated
// account's slug. The rename and its history entry are atomic; the old slug
// becomes immediately available to others.
func handleUpdateSlug(svc SlugRegistry, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleUpdateSlug"
	const successMsg = "The slug was updated successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeSlugRequest(w, r, validate)
		if !ok {
			return
		}

		accountID, _ := middleware.AccountIDFromContext(r.Context())

		rec, err := svc.UpdateSlug(r.Context(), accountID, models.AccountType(req.AccountType), req.Slug)
		if err != nil {
			respondSlugError(w, r, svc, op, req.Slug, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toSlugResponse(rec)))
	}
}

// handleGetSlugHistory handles GET requests for the authenticated account's
// rename history, newest first.
func handleGetSlugHistory(svc SlugRegistry) http.HandlerFunc {
	const op = "api.http.handleGetSlugHistory"
	const successMsg = "The slug history was retrieved."

	return func(w http.ResponseWriter, r *http.Request) {
		accountID, _ := middleware.AccountIDFromContext(r.Context())

		changes, err := svc.GetSlugHistory(r.Context(), accountID)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toSlugChangeResponses(changes)))
	}
}

// handleResolveRedirect handles GET requests asking where a slug under a
// route category currently points. Store failures fail open with a
// not-found outcome so navigation is never blocked by the registry.
func handleResolveRedirect(svc SlugRegistry) http.HandlerFunc {
	const op = "api.http.handleResolveRedirect"
	const successMsg = "The slug was resolved."

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		routeType, err := models.ParseCategory(chi.URLParam(r, "category"))
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.ResourceNotFoundResponse)
			return
		}

		res, err := svc.ResolveRedirect(r.Context(), routeType, slug)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err, "fail_open": true})

			render.Status(r, http.StatusOK)
			render.JSON(w, r, response.SuccessResponse(successMsg, resolutionResponse{Found: false}))
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toResolutionResponse(res)))
	}
}

// handleClearCache handles DELETE requests to drop cached resolutions,
// either for a single slug or for everything.
func handleClearCache(svc SlugRegistry) http.HandlerFunc {
	const successMsg = "The resolution cache was cleared."

	return func(w http.ResponseWriter, r *http.Request) {
		if slug := chi.URLParam(r, "slug"); slug != "" {
			svc.InvalidateSlug(slug)
		} else {
			svc.ClearCache()
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

// handlePreloadCache handles POST requests to warm the resolution cache.
// The fan-out runs in the background; per-slug failures are logged and
// never fail the batch.
func handlePreloadCache(svc SlugRegistry, validate *validator.Validate) http.HandlerFunc {
	const successMsg = "The cache preload was started."

	return func(w http.ResponseWriter, r *http.Request) {
		var req preloadRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		go svc.PreloadCache(context.WithoutCancel(r.Context()), req.Slugs)

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

// decodeSlugRequest decodes and validates the shared reserve/update payload.
func decodeSlugRequest(w http.ResponseWriter, r *http.Request, validate *validator.Validate) (slugRequest, bool) {
	var req slugRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.EmptyRequestBodyResponse)
			return req, false
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.BadRequestResponse)
		return req, false
	}

	if err := validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationErrorResponse(err))
		return req, false
	}

	return req, true
}

// respondSlugError maps registry errors for reserve/update to API
// responses. Conflicts carry alternative suggestions, fetched best effort.
func respondSlugError(w http.ResponseWriter, r *http.Request, svc SlugRegistry, op, slug string, err error) {
	var invalidErr *service.InvalidSlugError
	if errors.As(err, &invalidErr) {
		details := make([]any, 0, len(invalidErr.Result.Reasons))
		for _, reason := range invalidErr.Result.Reasons {
			details = append(details, response.ValidationError{Field: "slug", Message: reason})
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationErrorResponse(nil).WithDetails(details...))
		return
	}

	switch {
	case errors.Is(err, database.ErrSlugExists), errors.Is(err, database.ErrAccountHasSlug):
		resp := response.ConflictResponse

		suggestions, sErr := svc.GenerateSuggestions(r.Context(), slug, conflictSuggestionCount)
		if sErr != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": sErr})
		} else if len(suggestions) > 0 {
			resp.Data = suggestionsResponse{Slug: slug, Suggestions: suggestions}
		}

		render.Status(r, http.StatusConflict)
		render.JSON(w, r, resp)
	case errors.Is(err, database.ErrAccountNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ResourceNotFoundResponse)
	default:
		httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
	}
}
