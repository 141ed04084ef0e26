// Package response defines the JSON envelope returned by every API endpoint.
package response

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var EmptyRequestBodyResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Error:      "Empty Request Body",
	Message:    "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Error:      "Bad Request",
	Message:    "The request could not be processed. Please check your input.",
}

var UnauthorizedResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusUnauthorized,
	Error:      "Unauthorized",
	Message:    "Authentication is required to access this resource.",
}

var ResourceNotFoundResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusNotFound,
	Error:      "Resource Not Found",
	Message:    "The requested resource was not found.",
}

var ConflictResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusConflict,
	Error:      "Conflict",
	Message:    "The requested resource is not available.",
}

var ServerErrorResponse = Response{
	Status:     StatusError,
	StatusCode: http.StatusInternalServerError,
	Error:      "Server Error",
	Message:    "An internal server error occurred. Please try again later.",
}

// Response is the envelope for all API responses.
type Response struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message"`
	Details    []any  `json:"details,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// WithDetails returns a copy of the response with the given details attached.
func (r Response) WithDetails(details ...any) Response {
	r.Details = details
	return r
}

// SuccessResponse builds a success envelope with an optional data payload.
func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:     StatusSuccess,
		StatusCode: http.StatusOK,
		Message:    msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}

// ValidationError describes a single failed field validation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse builds an error envelope from validator failures,
// reporting every violated field at once.
func ValidationErrorResponse(err error) Response {
	resp := Response{
		Status:     StatusError,
		StatusCode: http.StatusBadRequest,
		Error:      "Validation Error",
		Message:    "The request contains invalid fields.",
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, fe := range errs {
			resp.Details = append(resp.Details, ValidationError{
				Field:   fe.Field(),
				Message: messageForTag(fe),
			})
		}
	}

	return resp
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return "This field is too short."
	case "max":
		return "This field is too long."
	case "oneof":
		return "This field must be one of the allowed values."
	default:
		return "This field is invalid."
	}
}
