package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/streamvault-backend/internal/observability"
	"github.com/yungbote/streamvault-backend/internal/services"
)

type ProposalHandler struct {
	proposalService services.ProposalService
	eventService    services.EventService
	metrics         *observability.Metrics
}

func NewProposalHandler(proposalService services.ProposalService, eventService services.EventService, metrics *observability.Metrics) *ProposalHandler {
	return &ProposalHandler{proposalService: proposalService, eventService: eventService, metrics: metrics}
}

func proposalID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return uuid.Nil, false
	}
	return id, true
}

func (ph *ProposalHandler) Create(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var in services.ProposeCreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proposal, aerr := ph.proposalService.ProposeCreate(c.Request.Context(), callerID, in)
	ph.metrics.ObserveOperation("propose_create", aerr == nil)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondCreated(c, gin.H{"proposal": proposal})
}

func (ph *ProposalHandler) Approve(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := proposalID(c)
	if !ok {
		return
	}
	result, aerr := ph.proposalService.Approve(c.Request.Context(), callerID, id)
	ph.metrics.ObserveOperation("approve", aerr == nil)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, result)
}

func (ph *ProposalHandler) Get(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	id, ok := proposalID(c)
	if !ok {
		return
	}
	proposal, aerr := ph.proposalService.Get(c.Request.Context(), id)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"proposal": proposal})
}

func (ph *ProposalHandler) Events(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	id, ok := proposalID(c)
	if !ok {
		return
	}
	if _, aerr := ph.proposalService.Get(c.Request.Context(), id); aerr != nil {
		RespondError(c, aerr)
		return
	}
	events, err := ph.eventService.ListByProposal(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"events": events})
}
