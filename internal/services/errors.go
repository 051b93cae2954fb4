package services

import (
	"errors"
	"net/http"

	"github.com/yungbote/streamvault-backend/internal/apierr"
)

// Stable error codes. Handlers pass these through verbatim so callers can
// branch on the code, not the message.
const (
	CodeInvalidTimeRange    = "invalid_time_range"
	CodeInvalidAmount       = "invalid_amount"
	CodeInvalidThreshold    = "invalid_threshold"
	CodeInvalidBasisPoints  = "invalid_basis_points"
	CodeInvalidMilestones   = "invalid_milestones"
	CodeAgreementNotFound   = "agreement_not_found"
	CodeProposalNotFound    = "proposal_not_found"
	CodeUnauthorized        = "unauthorized"
	CodeRoleRequired        = "role_required"
	CodeRestrictedParty     = "restricted_party"
	CodeAssetNotAllowed     = "asset_not_allowed"
	CodeSoulboundReceiver   = "soulbound_receiver"
	CodeNotReceiptOwner     = "not_receipt_owner"
	CodeAlreadyCancelled    = "already_cancelled"
	CodeAgreementCompleted  = "agreement_completed"
	CodeAgreementPaused     = "agreement_paused"
	CodeAgreementNotPaused  = "agreement_not_paused"
	CodeAgreementFrozen     = "agreement_frozen"
	CodeAgreementNotFrozen  = "agreement_not_frozen"
	CodeArbiterNotSet       = "arbiter_not_set"
	CodeAlreadyExecuted     = "already_executed"
	CodeAlreadyApproved     = "already_approved"
	CodeProposalExpired     = "proposal_expired"
	CodeReentrantCall       = "reentrant_call"
	CodeLastAdmin           = "last_admin"
	CodeRoleAlreadyGranted  = "role_already_granted"
	CodeRoleNotFound        = "role_not_found"
	CodeNothingWithdrawable = "nothing_withdrawable"
	CodeCurveOverflow       = "curve_overflow"
	CodeVaultNotApproved    = "vault_not_approved"
	CodeVaultFailed         = "vault_failed"
	CodeMigrationExecuted   = "migration_executed"
	CodeInvalidVersion      = "invalid_version"
	CodeClawbackDisabled    = "clawback_disabled"
	CodeInternal            = "internal_error"
)

func validationErr(code, msg string) *apierr.Error {
	return apierr.New(http.StatusBadRequest, code, errors.New(msg))
}

func authErr(code, msg string) *apierr.Error {
	return apierr.New(http.StatusForbidden, code, errors.New(msg))
}

func notFoundErr(code, msg string) *apierr.Error {
	return apierr.New(http.StatusNotFound, code, errors.New(msg))
}

func conflictErr(code, msg string) *apierr.Error {
	return apierr.New(http.StatusConflict, code, errors.New(msg))
}

func arithmeticErr(code, msg string) *apierr.Error {
	return apierr.New(http.StatusUnprocessableEntity, code, errors.New(msg))
}

func upstreamErr(code string, err error) *apierr.Error {
	return apierr.New(http.StatusBadGateway, code, err)
}

func internalErr(err error) *apierr.Error {
	return apierr.New(http.StatusInternalServerError, CodeInternal, err)
}

// asAPIError keeps a service error's status and code when it crosses a
// transaction boundary, wrapping anything else as internal.
func asAPIError(err error) *apierr.Error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return internalErr(err)
}
