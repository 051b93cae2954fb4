package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/streamvault-backend/internal/services"
)

type AdminHandler struct {
	accessService     services.AccessService
	complianceService services.ComplianceService
	agreementService  services.AgreementService
	migrationService  services.MigrationService
}

func NewAdminHandler(
	accessService services.AccessService,
	complianceService services.ComplianceService,
	agreementService services.AgreementService,
	migrationService services.MigrationService,
) *AdminHandler {
	return &AdminHandler{
		accessService:     accessService,
		complianceService: complianceService,
		agreementService:  agreementService,
		migrationService:  migrationService,
	}
}

type roleBody struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
}

func (ad *AdminHandler) GrantRole(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var body roleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if aerr := ad.accessService.Grant(c.Request.Context(), callerID, body.Identity, body.Role); aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (ad *AdminHandler) RevokeRole(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var body roleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if aerr := ad.accessService.Revoke(c.Request.Context(), callerID, body.Identity, body.Role); aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (ad *AdminHandler) ListRole(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	bindings, aerr := ad.accessService.ListRole(c.Request.Context(), callerID, c.Param("role"))
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"bindings": bindings})
}

type identityBody struct {
	Identity string `json:"identity"`
}

func (ad *AdminHandler) Restrict(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var body identityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if aerr := ad.complianceService.Restrict(c.Request.Context(), callerID, body.Identity); aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (ad *AdminHandler) Unrestrict(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var body identityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if aerr := ad.complianceService.Unrestrict(c.Request.Context(), callerID, body.Identity); aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (ad *AdminHandler) ListRestricted(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	parties, aerr := ad.complianceService.ListRestricted(c.Request.Context(), callerID)
	if aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"restricted": parties})
}

type assetBody struct {
	Asset string `json:"asset"`
}

func (ad *AdminHandler) AllowAsset(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var body assetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if aerr := ad.complianceService.AllowAsset(c.Request.Context(), callerID, body.Asset); aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (ad *AdminHandler) DisallowAsset(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var body assetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if aerr := ad.complianceService.DisallowAsset(c.Request.Context(), callerID, body.Asset); aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (ad *AdminHandler) ApproveVault(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var body struct {
		Ref string `json:"ref"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if aerr := ad.agreementService.ApproveVault(c.Request.Context(), callerID, body.Ref); aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (ad *AdminHandler) Migrate(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	var body struct {
		TargetVersion uint32 `json:"target_version"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if aerr := ad.migrationService.Migrate(c.Request.Context(), callerID, body.TargetVersion); aerr != nil {
		RespondError(c, aerr)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}
