package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/streamvault-backend/internal/apierr"
	"github.com/yungbote/streamvault-backend/internal/observability"
	"github.com/yungbote/streamvault-backend/internal/requestdata"
	"github.com/yungbote/streamvault-backend/internal/services"
)

type AgreementHandler struct {
	agreementService services.AgreementService
	eventService     services.EventService
	metrics          *observability.Metrics
}

func NewAgreementHandler(agreementService services.AgreementService, eventService services.EventService, metrics *observability.Metrics) *AgreementHandler {
	return &AgreementHandler{agreementService: agreementService, eventService: eventService, metrics: metrics}
}

func caller(c *gin.Context) (string, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.CallerID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return "", false
	}
	return rd.CallerID, true
}

func agreementID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agreement id"})
		return uuid.Nil, false
	}
	return id, true
}

func (ah *AgreementHandler) Create(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var in services.CreateAgreementInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	agreement, aerr := ah.agreementService.Create(c.Request.Context(), callerID, in)
	ah.metrics.ObserveOperation("create", aerr == nil)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondCreated(c, gin.H{"agreement": agreement})
}

func (ah *AgreementHandler) Get(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	id, ok := agreementID(c)
	if !ok {
		return
	}
	agreement, aerr := ah.agreementService.Get(c.Request.Context(), id)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	withdrawable, aerr := ah.agreementService.Withdrawable(c.Request.Context(), id)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	body := gin.H{"agreement": agreement, "withdrawable": withdrawable}
	if agreement.VaultRef != "" {
		value, aerr := ah.agreementService.VaultValue(c.Request.Context(), id)
		if aerr != nil {
			RespondError(c, aerr)
			return
		}
		body["vault_value"] = value
	}
	RespondOK(c, body)
}

func (ah *AgreementHandler) List(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	agreements, aerr := ah.agreementService.ListByParty(c.Request.Context(), callerID)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"agreements": agreements})
}

func (ah *AgreementHandler) Events(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	id, ok := agreementID(c)
	if !ok {
		return
	}
	if _, aerr := ah.agreementService.Get(c.Request.Context(), id); aerr != nil {
		RespondError(c, aerr)
		return
	}
	events, err := ah.eventService.ListByAgreement(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"events": events})
}

func (ah *AgreementHandler) Withdraw(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := agreementID(c)
	if !ok {
		return
	}
	amount, aerr := ah.agreementService.Withdraw(c.Request.Context(), callerID, id)
	ah.metrics.ObserveOperation("withdraw", aerr == nil)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	ah.metrics.AddSettled("withdraw", amount)
	RespondOK(c, gin.H{"amount": amount})
}

func (ah *AgreementHandler) Cancel(c *gin.Context) {
	ah.mutate(c, "cancel", ah.agreementService.Cancel)
}

func (ah *AgreementHandler) Pause(c *gin.Context) {
	ah.mutate(c, "pause", ah.agreementService.Pause)
}

func (ah *AgreementHandler) Unpause(c *gin.Context) {
	ah.mutate(c, "unpause", ah.agreementService.Unpause)
}

func (ah *AgreementHandler) Freeze(c *gin.Context) {
	ah.mutate(c, "freeze", ah.agreementService.Freeze)
}

func (ah *AgreementHandler) Clawback(c *gin.Context) {
	ah.mutate(c, "clawback", ah.agreementService.Clawback)
}

func (ah *AgreementHandler) TopUp(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := agreementID(c)
	if !ok {
		return
	}
	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	aerr := ah.agreementService.TopUp(c.Request.Context(), callerID, id, body.Amount)
	ah.metrics.ObserveOperation("topup", aerr == nil)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	ah.metrics.AddSettled("topup", body.Amount)
	RespondOK(c, gin.H{"status": "ok"})
}

func (ah *AgreementHandler) TransferReceiver(c *gin.Context) {
	ah.transfer(c, "transfer_receiver", "new_receiver", ah.agreementService.TransferReceiver)
}

func (ah *AgreementHandler) TransferReceipt(c *gin.Context) {
	ah.transfer(c, "transfer_receipt", "new_owner", ah.agreementService.TransferReceipt)
}

func (ah *AgreementHandler) SetArbiter(c *gin.Context) {
	ah.transfer(c, "set_arbiter", "arbiter", ah.agreementService.SetArbiter)
}

func (ah *AgreementHandler) ResolveDispute(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := agreementID(c)
	if !ok {
		return
	}
	var body struct {
		ReceiverBps uint32 `json:"receiver_bps"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	aerr := ah.agreementService.ResolveDispute(c.Request.Context(), callerID, id, body.ReceiverBps)
	ah.metrics.ObserveOperation("resolve_dispute", aerr == nil)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (ah *AgreementHandler) mutate(c *gin.Context, op string, fn func(ctx context.Context, caller string, id uuid.UUID) *apierr.Error) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := agreementID(c)
	if !ok {
		return
	}
	aerr := fn(c.Request.Context(), callerID, id)
	ah.metrics.ObserveOperation(op, aerr == nil)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (ah *AgreementHandler) transfer(c *gin.Context, op, field string, fn func(ctx context.Context, caller string, id uuid.UUID, target string) *apierr.Error) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := agreementID(c)
	if !ok {
		return
	}
	var body map[string]string
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target := body[field]
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " required"})
		return
	}
	aerr := fn(c.Request.Context(), callerID, id, target)
	ah.metrics.ObserveOperation(op, aerr == nil)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}
