package handler

import (
	"errors"
	"net/http"

	"leadflow/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
)

const problemContentType = "application/problem+json"

func writeProblem(c *gin.Context, status int, problem any) {
	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(status, problem)
}

func badRequest(c *gin.Context, detail string) {
	writeProblem(c, http.StatusBadRequest, problems.NewStatusProblem(http.StatusBadRequest).
		WithInstance(c.Request.URL.Path).
		WithType("validation_error").
		WithDetail(detail))
}

func notFound(c *gin.Context, detail string) {
	writeProblem(c, http.StatusNotFound, problems.NewStatusProblem(http.StatusNotFound).
		WithInstance(c.Request.URL.Path).
		WithType("not_found").
		WithDetail(detail))
}

func conflict(c *gin.Context, detail string) {
	writeProblem(c, http.StatusConflict, problems.NewStatusProblem(http.StatusConflict).
		WithInstance(c.Request.URL.Path).
		WithType("conflict").
		WithDetail(detail))
}

func internalError(c *gin.Context, err error) {
	writeProblem(c, http.StatusInternalServerError, problems.NewStatusProblem(http.StatusInternalServerError).
		WithInstance(c.Request.URL.Path).
		WithType("internal_error").
		WithDetail(err.Error()))
}

// handleServiceError maps domain sentinel errors onto problem responses.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		notFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidDefinition):
		badRequest(c, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrClaimConflict):
		conflict(c, err.Error())
	default:
		internalError(c, err)
	}
}
