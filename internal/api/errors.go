package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietdv277/cirrus/internal/cluster"
	"github.com/vietdv277/cirrus/internal/lifecycle"
	"github.com/vietdv277/cirrus/pkg/provider"
)

// StatusFor maps a transition error onto an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrClusterNotFound),
		errors.Is(err, lifecycle.ErrParamsNotFound):
		return http.StatusNotFound
	case errors.Is(err, cluster.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrInvalidName),
		errors.Is(err, lifecycle.ErrClusterExists),
		errors.Is(err, lifecycle.ErrRegionRequired),
		errors.Is(err, lifecycle.ErrUnknownPod),
		errors.Is(err, lifecycle.ErrSecretsDisabled),
		errors.Is(err, lifecycle.ErrDuplicateEnvFile),
		errors.Is(err, provider.ErrUnknownRegion):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrNotConfigured),
		errors.Is(err, provider.ErrNotSupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Step   string `json:"step,omitempty"`
	Output string `json:"output,omitempty"`
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusFor(err), ErrorResponse{
		Error:  err.Error(),
		Kind:   string(lifecycle.KindOf(err)),
		Step:   lifecycle.StepOf(err),
		Output: lifecycle.Output(err),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
