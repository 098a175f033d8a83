package handler

import (
	"net/http"
	"strconv"

	"leadflow/internal/api/dto"
	"leadflow/internal/core/ports"
	"leadflow/internal/domain"
	"leadflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultListLimit = 50

type LeadHandler struct {
	leads service.LeadService
	repo  ports.LeadRepository
}

func NewLeadHandler(leads service.LeadService, repo ports.LeadRepository) *LeadHandler {
	return &LeadHandler{leads: leads, repo: repo}
}

// CreateLead stores a website form submission.
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req dto.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	lead := domain.NewLead(req.Name, req.Email, req.Phone, req.Service, req.Message, domain.LeadSourceWebsite)
	if err := h.leads.CreateLead(c.Request.Context(), lead); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (h *LeadHandler) ListLeads(c *gin.Context) {
	leads, err := h.repo.List(c.Request.Context(), limitParam(c))
	if err != nil {
		internalError(c, err)
		return
	}
	if leads == nil {
		leads = []*domain.Lead{}
	}
	c.JSON(http.StatusOK, dto.LeadListResponse{Leads: leads})
}

func (h *LeadHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid lead id")
		return
	}
	var req dto.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	lead, err := h.leads.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}
