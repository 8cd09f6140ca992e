package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vietdv277/cirrus/internal/runner"
	"github.com/vietdv277/cirrus/pkg/types"
)

// Service is the lifecycle surface exposed over HTTP
type Service interface {
	Create(ctx context.Context, req types.CreateRequest) error
	Update(ctx context.Context, name string, upd *types.ClusterUpdate) (*types.ClusterParams, error)
	Delete(ctx context.Context, name string) error
	Deploy(ctx context.Context, req types.DeployRequest) (*runner.Result, error)
	List() ([]string, error)
	Settings(name string) (json.RawMessage, error)
	Activity(name string) ([]string, error)
	State(name string) types.ClusterState
}

// Handler serves the cluster routes
type Handler struct {
	svc Service
}

// NewHandler creates a handler backed by svc
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the cluster routes on r
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/create", h.create)
	r.DELETE("/delete/:name", h.delete)
	r.GET("/settings/:name", h.getSettings)
	r.PUT("/settings/:name", h.updateSettings)
	r.GET("/list", h.list)
	r.GET("/activity/:name", h.activity)
	r.GET("/status/:name", h.status)
	r.POST("/deploy", h.deploy)
}

func (h *Handler) create(c *gin.Context) {
	var req types.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := h.svc.Create(c.Request.Context(), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Cluster '%s' created successfully.", req.Name)})
}

func (h *Handler) delete(c *gin.Context) {
	name := c.Param("name")
	if err := h.svc.Delete(c.Request.Context(), name); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Cluster '%s' deleted successfully.", name)})
}

func (h *Handler) getSettings(c *gin.Context) {
	raw, err := h.svc.Settings(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (h *Handler) updateSettings(c *gin.Context) {
	name := c.Param("name")
	var upd types.ClusterUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	params, err := h.svc.Update(c.Request.Context(), name, &upd)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Settings of cluster '%s' updated.", name),
		"settings": params,
	})
}

func (h *Handler) list(c *gin.Context) {
	names, err := h.svc.List()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clusters": names})
}

func (h *Handler) activity(c *gin.Context) {
	lines, err := h.svc.Activity(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": lines})
}

func (h *Handler) status(c *gin.Context) {
	name := c.Param("name")
	state := h.svc.State(name)
	if state == types.ClusterStateAbsent {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("cluster %s not found", name)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "state": state})
}

func (h *Handler) deploy(c *gin.Context) {
	var req types.DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Pod) == "" {
		badRequest(c, "pod is required")
		return
	}
	res, err := h.svc.Deploy(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	body := gin.H{"message": fmt.Sprintf("Pod '%s' deployed on cluster '%s'.", req.Pod, req.Name)}
	if res != nil {
		body["output"] = res.Stdout
	}
	c.JSON(http.StatusOK, body)
}
