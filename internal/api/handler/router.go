package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Workflows *WorkflowHandler
	Leads     *LeadHandler
	Templates *TemplateHandler
	Webhooks  *WebhookHandler
}

// NewRouter sets up every route on a fresh gin engine.
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The webhook answers preflight and wrong methods itself
	router.Any("/webhooks/calcom", h.Webhooks.Booking)

	api := router.Group("/api/v1")
	{
		api.GET("/workflows", h.Workflows.ListWorkflows)
		api.POST("/workflows", h.Workflows.CreateWorkflow)
		api.GET("/workflows/:id", h.Workflows.GetWorkflow)
		api.PUT("/workflows/:id", h.Workflows.UpdateWorkflow)
		api.DELETE("/workflows/:id", h.Workflows.DeleteWorkflow)

		api.POST("/enrollments", h.Workflows.Enroll)
		api.GET("/contacts/:id/instances", h.Workflows.ListContactInstances)

		api.POST("/leads", h.Leads.CreateLead)
		api.GET("/leads", h.Leads.ListLeads)
		api.PATCH("/leads/:id/status", h.Leads.UpdateStatus)

		api.GET("/templates", h.Templates.ListTemplates)
		api.PUT("/templates/email/:id", h.Templates.SaveEmailTemplate)
		api.PUT("/templates/sms/:id", h.Templates.SaveSMSTemplate)

		api.GET("/logs", h.Templates.ListLogs)
		api.POST("/messages/email", h.Templates.SendEmail)
		api.POST("/messages/sms", h.Templates.SendSMS)
	}

	return router
}
