package handler

import (
	"net/http"

	"leadflow/internal/api/dto"
	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
	"leadflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WorkflowHandler struct {
	workflows ports.WorkflowRepository
	instances ports.InstanceRepository
	leads     service.LeadService
}

func NewWorkflowHandler(workflows ports.WorkflowRepository, instances ports.InstanceRepository, leads service.LeadService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows, instances: instances, leads: leads}
}

func (h *WorkflowHandler) ListWorkflows(c *gin.Context) {
	ctx := c.Request.Context()

	workflows, err := h.workflows.List(ctx)
	if err != nil {
		internalError(c, err)
		return
	}
	counts, err := h.instances.CountActiveByWorkflow(ctx)
	if err != nil {
		internalError(c, err)
		return
	}

	resp := dto.WorkflowListResponse{Workflows: make([]dto.WorkflowResponse, 0, len(workflows))}
	for _, wf := range workflows {
		resp.Workflows = append(resp.Workflows, dto.WorkflowResponse{WorkflowDefinition: wf, ActiveInstances: counts[wf.ID]})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	wf, err := h.workflows.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *WorkflowHandler) CreateWorkflow(c *gin.Context) {
	var req dto.WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	wf := toWorkflow(req)
	if wf.ID == "" {
		wf.ID = "wf_" + uuid.NewString()
	}
	if err := wf.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.workflows.Create(c.Request.Context(), wf); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wf)
}

func (h *WorkflowHandler) UpdateWorkflow(c *gin.Context) {
	var req dto.WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	wf := toWorkflow(req)
	wf.ID = c.Param("id")
	if err := wf.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.workflows.Update(c.Request.Context(), wf); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *WorkflowHandler) DeleteWorkflow(c *gin.Context) {
	if err := h.workflows.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Enroll enrolls an existing lead by hand. A disabled or (with dedup)
// already running workflow answers 409.
func (h *WorkflowHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	if _, err := h.workflows.GetByID(ctx, req.WorkflowID); err != nil {
		handleServiceError(c, err)
		return
	}

	instance, err := h.leads.EnrollLead(ctx, uuid.MustParse(req.LeadID), req.WorkflowID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if instance == nil {
		conflict(c, "workflow is disabled or the contact is already enrolled")
		return
	}
	c.JSON(http.StatusCreated, instance)
}

// ListContactInstances is a contact's automation history, newest first.
func (h *WorkflowHandler) ListContactInstances(c *gin.Context) {
	instances, err := h.instances.FindByContact(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, err)
		return
	}
	if instances == nil {
		instances = []*domain.WorkflowInstance{}
	}
	c.JSON(http.StatusOK, dto.InstanceListResponse{Instances: instances})
}

func toWorkflow(req dto.WorkflowRequest) *domain.WorkflowDefinition {
	steps := make(datatypes.JSONSlice[domain.Step], 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, domain.Step{
			Type:         s.Type,
			TemplateID:   s.TemplateID,
			Description:  s.Description,
			DelayMinutes: s.DelayMinutes,
		})
	}
	return &domain.WorkflowDefinition{
		ID:            req.ID,
		Name:          req.Name,
		Trigger:       req.Trigger,
		TriggerStatus: req.TriggerStatus,
		Enabled:       req.Enabled,
		Category:      req.Category,
		Steps:         steps,
	}
}
