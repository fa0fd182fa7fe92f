package bug

import (
	"net/http"

	"github.com/abduss/bugtrack/internal/apperr"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the bug endpoints under /bugs. deleteGuards run before the
// delete handler, e.g. an admin check.
func RegisterRoutes(router *gin.RouterGroup, service *Service, deleteGuards ...gin.HandlerFunc) {
	handler := &httpHandler{service: service}
	bugs := router.Group("/bugs")
	{
		bugs.GET("", handler.list)
		bugs.POST("", handler.create)
		bugs.GET("/stats/summary", handler.stats)
		bugs.GET("/:id", handler.get)
		bugs.PUT("/:id", handler.update)
		bugs.PATCH("/:id/status", handler.updateStatus)
		bugs.PATCH("/:id/priority", handler.updatePriority)
		bugs.DELETE("/:id", append(deleteGuards, handler.delete)...)
	}
}

type httpHandler struct {
	service *Service
}

type environmentRequest struct {
	OS      *string `json:"os"`
	Browser *string `json:"browser"`
	Version *string `json:"version"`
}

func (e *environmentRequest) input() *EnvironmentInput {
	if e == nil {
		return nil
	}
	return &EnvironmentInput{OS: e.OS, Browser: e.Browser, Version: e.Version}
}

type bugRequest struct {
	Title            *string             `json:"title"`
	Description      *string             `json:"description"`
	Status           *string             `json:"status"`
	Priority         *string             `json:"priority"`
	ReportedBy       *string             `json:"reportedBy"`
	AssignedTo       *string             `json:"assignedTo"`
	StepsToReproduce *[]string           `json:"stepsToReproduce"`
	Environment      *environmentRequest `json:"environment"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type priorityRequest struct {
	Priority string `json:"priority"`
}

// ListResponse is the body of GET /bugs.
type ListResponse struct {
	Success    bool       `json:"success"`
	Count      int        `json:"count"`
	Pagination Pagination `json:"pagination"`
	Data       []Bug      `json:"data"`
}

func (h *httpHandler) list(c *gin.Context) {
	d := Build(ParseValues(c.Request.URL.Query()))

	page, err := h.service.List(c.Request.Context(), d)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Success:    true,
		Count:      len(page.Bugs),
		Pagination: page.Pagination,
		Data:       page.Bugs,
	})
}

func (h *httpHandler) get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": b})
}

func (h *httpHandler) create(c *gin.Context) {
	var req bugRequest
	if !bindJSON(c, &req) {
		return
	}

	input := CreateInput{
		Title:       deref(req.Title),
		Description: deref(req.Description),
		Status:      Status(deref(req.Status)),
		Priority:    Priority(deref(req.Priority)),
		ReportedBy:  deref(req.ReportedBy),
		AssignedTo:  deref(req.AssignedTo),
	}
	if req.StepsToReproduce != nil {
		input.StepsToReproduce = *req.StepsToReproduce
	}
	if env := req.Environment.input(); env != nil {
		input.Environment = *env
	}

	b, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": b})
}

func (h *httpHandler) update(c *gin.Context) {
	var req bugRequest
	if !bindJSON(c, &req) {
		return
	}

	input := UpdateInput{
		Title:            req.Title,
		Description:      req.Description,
		ReportedBy:       req.ReportedBy,
		AssignedTo:       req.AssignedTo,
		StepsToReproduce: req.StepsToReproduce,
		Environment:      req.Environment.input(),
	}
	if req.Status != nil {
		s := Status(*req.Status)
		input.Status = &s
	}
	if req.Priority != nil {
		p := Priority(*req.Priority)
		input.Priority = &p
	}

	b, err := h.service.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": b})
}

func (h *httpHandler) updateStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": b})
}

func (h *httpHandler) updatePriority(c *gin.Context) {
	var req priorityRequest
	if !bindJSON(c, &req) {
		return
	}

	b, err := h.service.UpdatePriority(c.Request.Context(), c.Param("id"), req.Priority)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": b})
}

func (h *httpHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

func (h *httpHandler) stats(c *gin.Context) {
	summary, err := h.service.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

// bindJSON decodes the body into dst and records a validation error when it is malformed.
// An empty body decodes to the zero value.
func bindJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(apperr.FromBinding(err))
		return false
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
