package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/streamvault-backend/internal/logger"
	"github.com/yungbote/streamvault-backend/internal/repos"
	"github.com/yungbote/streamvault-backend/internal/types"
)

const eventChannel = "streamvault.events"

// EventService appends audit events inside the caller's transaction and fans
// them out to Redis for external indexers. Fan-out is commit-gated: events
// appended through Tx are held back until the transaction commits, so a
// rollback never broadcasts a mutation that didn't happen. Publication
// itself stays best-effort; the durable row is the source of truth.
type EventService interface {
	Tx(ctx context.Context, fn func(tx *gorm.DB) error) error
	Append(ctx context.Context, tx *gorm.DB, event *types.LedgerEvent) error
	ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]*types.LedgerEvent, error)
	ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*types.LedgerEvent, error)
}

type eventService struct {
	db        *gorm.DB
	log       *logger.Logger
	eventRepo repos.LedgerEventRepo
	publish   func(ctx context.Context, event *types.LedgerEvent)
}

func NewEventService(db *gorm.DB, log *logger.Logger, eventRepo repos.LedgerEventRepo, rdb *redis.Client) EventService {
	serviceLog := log.With("service", "EventService")
	es := &eventService{db: db, log: serviceLog, eventRepo: eventRepo}
	es.publish = func(ctx context.Context, event *types.LedgerEvent) {
		if rdb == nil {
			return
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return
		}
		if pubErr := rdb.Publish(ctx, eventChannel, payload).Err(); pubErr != nil {
			es.log.Warn("Event publish failed", "type", event.Type, "error", pubErr)
		}
	}
	return es
}

// stagedEvents rides the transaction's context so Append can tell a
// commit-gated transaction from a bare write.
type stagedKey struct{}

type staged struct {
	events []*types.LedgerEvent
}

// Tx runs fn in a single transaction. Events appended through the service
// while fn runs are published only after the transaction commits.
func (es *eventService) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	pending := &staged{}
	txCtx := context.WithValue(ctx, stagedKey{}, pending)
	if err := es.db.WithContext(txCtx).Transaction(fn); err != nil {
		return err
	}
	for _, event := range pending.events {
		es.publish(ctx, event)
	}
	return nil
}

func (es *eventService) Append(ctx context.Context, tx *gorm.DB, event *types.LedgerEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if _, err := es.eventRepo.Append(ctx, tx, event); err != nil {
		return err
	}
	if tx != nil {
		if pending, ok := tx.Statement.Context.Value(stagedKey{}).(*staged); ok {
			pending.events = append(pending.events, event)
			return nil
		}
	}
	es.publish(ctx, event)
	return nil
}

func (es *eventService) ListByAgreement(ctx context.Context, agreementID uuid.UUID) ([]*types.LedgerEvent, error) {
	return es.eventRepo.ListByAgreement(ctx, nil, agreementID)
}

func (es *eventService) ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*types.LedgerEvent, error) {
	return es.eventRepo.ListByProposal(ctx, nil, proposalID)
}
