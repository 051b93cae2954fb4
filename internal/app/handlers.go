package app

import (
	"github.com/yungbote/streamvault-backend/internal/handlers"
	"github.com/yungbote/streamvault-backend/internal/observability"
)

type Handlers struct {
	Agreement *handlers.AgreementHandler
	Proposal  *handlers.ProposalHandler
	Admin     *handlers.AdminHandler
}

func wireHandlers(s Services, metrics *observability.Metrics) Handlers {
	return Handlers{
		Agreement: handlers.NewAgreementHandler(s.Agreement, s.Event, metrics),
		Proposal:  handlers.NewProposalHandler(s.Proposal, s.Event, metrics),
		Admin:     handlers.NewAdminHandler(s.Access, s.Compliance, s.Agreement, s.Migration),
	}
}
