package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

// Error codes returned in the REST error body.
const (
	codeInvalidRequest     = "INVALID_REQUEST"
	codeNotFound           = "NOT_FOUND"
	codeJobActive          = "JOB_ACTIVE"
	codeServiceUnavailable = "SERVICE_UNAVAILABLE"
	codeInternalError      = "INTERNAL_ERROR"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// respondError maps a domain error to the REST error contract:
// {"error": {"code": ..., "message": ...}}.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := codeInternalError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, domain.ErrJobActive):
		status, code = http.StatusConflict, codeJobActive
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrVectorStoreUnavailable),
		errors.Is(err, domain.ErrLLMUnavailable):
		status, code = http.StatusServiceUnavailable, codeServiceUnavailable
	}

	c.JSON(status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{Code: codeInvalidRequest, Message: message}})
}
