package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/platformapi"
)

// EntityMutator is the platform's entity mutation API.
type EntityMutator interface {
	SetStatus(ctx context.Context, entityType models.EntityType, entityID, status, reason string) error
	Warn(ctx context.Context, entityType models.EntityType, entityID, message string) error
	DeleteEntity(ctx context.Context, entityType models.EntityType, entityID string) error
}

// EntityLookup resolves entity summaries.
type EntityLookup interface {
	Resolve(ctx context.Context, entityType models.EntityType, entityID string) (*models.EntitySummary, error)
}

type mutationKind string

const (
	mutationWarn   mutationKind = "warn"
	mutationStatus mutationKind = "set_status"
	mutationDelete mutationKind = "delete"
)

// mutation is one concrete platform call derived from (entity, action).
type mutation struct {
	kind       mutationKind
	targetType models.EntityType
	targetID   string
	status     string
}

func (m mutation) op() string {
	return fmt.Sprintf("%s %s/%s", m.kind, m.targetType, m.targetID)
}

// ModerationActionService executes the side effect of a resolution action
// against the reported entity. Callers guarantee at most one call per
// resolution.
type ModerationActionService struct {
	mutator EntityMutator
	lookup  EntityLookup
	timeout time.Duration
	metrics *Metrics
}

func NewModerationActionService(mutator EntityMutator, lookup EntityLookup, timeout time.Duration, metrics *Metrics) *ModerationActionService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ModerationActionService{mutator: mutator, lookup: lookup, timeout: timeout, metrics: metrics}
}

func (s *ModerationActionService) Apply(ctx context.Context, entityType models.EntityType, entityID string, action models.AdminAction, details string) error {
	if !action.MutatesEntity() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	err := s.apply(ctx, entityType, entityID, action, details)
	s.metrics.observeAction(action, entityType, err, time.Since(started))

	var actionErr *ActionError
	if errors.As(err, &actionErr) && actionErr.Kind == ActionAlreadyInTargetState {
		slog.Info("moderation action already applied",
			"entity_type", entityType, "entity_id", entityID, "admin_action", action)
		return nil
	}
	return err
}

func (s *ModerationActionService) apply(ctx context.Context, entityType models.EntityType, entityID string, action models.AdminAction, details string) error {
	m, err := s.plan(ctx, entityType, entityID, action)
	if err != nil {
		return err
	}

	switch m.kind {
	case mutationWarn:
		err = s.mutator.Warn(ctx, m.targetType, m.targetID, warningMessage(entityType, details))
	case mutationDelete:
		err = s.mutator.DeleteEntity(ctx, m.targetType, m.targetID)
		if errors.Is(err, platformapi.ErrNotFound) {
			// Content is already gone, which is what removal wanted.
			return nil
		}
	case mutationStatus:
		if s.alreadyInStatus(ctx, m) {
			return &ActionError{Kind: ActionAlreadyInTargetState, Op: m.op()}
		}
		err = s.mutator.SetStatus(ctx, m.targetType, m.targetID, m.status, details)
	}
	if err != nil {
		return classifyActionError(m.op(), err)
	}
	return nil
}

// plan maps (entity type, action) onto a platform call. Chat messages have
// no account, so suspensions and bans land on the message author.
func (s *ModerationActionService) plan(ctx context.Context, entityType models.EntityType, entityID string, action models.AdminAction) (mutation, error) {
	target := action.Effect().TargetStatus

	switch entityType {
	case models.EntityUser:
		switch action {
		case models.ActionWarning:
			return mutation{kind: mutationWarn, targetType: models.EntityUser, targetID: entityID}, nil
		case models.ActionContentRemoved:
			return mutation{kind: mutationStatus, targetType: models.EntityUser, targetID: entityID, status: models.EntityStatusProfileHidden}, nil
		case models.ActionAccountSuspended, models.ActionAccountBanned:
			return mutation{kind: mutationStatus, targetType: models.EntityUser, targetID: entityID, status: target}, nil
		}
	case models.EntityStartup:
		switch action {
		case models.ActionWarning:
			return mutation{kind: mutationWarn, targetType: models.EntityStartup, targetID: entityID}, nil
		case models.ActionContentRemoved:
			return mutation{kind: mutationDelete, targetType: models.EntityStartup, targetID: entityID}, nil
		case models.ActionAccountSuspended, models.ActionAccountBanned:
			return mutation{kind: mutationStatus, targetType: models.EntityStartup, targetID: entityID, status: target}, nil
		}
	case models.EntityChatMessage:
		switch action {
		case models.ActionWarning:
			return mutation{kind: mutationWarn, targetType: models.EntityChatMessage, targetID: entityID}, nil
		case models.ActionContentRemoved:
			return mutation{kind: mutationDelete, targetType: models.EntityChatMessage, targetID: entityID}, nil
		case models.ActionAccountSuspended, models.ActionAccountBanned:
			authorID, err := s.messageAuthor(ctx, entityID)
			if err != nil {
				return mutation{}, err
			}
			return mutation{kind: mutationStatus, targetType: models.EntityUser, targetID: authorID, status: target}, nil
		}
	default:
		return mutation{}, &ActionError{
			Kind: ActionUnsupportedEntityType,
			Op:   "plan " + string(action),
			Err:  fmt.Errorf("entity type %q", entityType),
		}
	}
	return mutation{}, &ActionError{
		Kind: ActionRejected,
		Op:   "plan " + string(action),
		Err:  fmt.Errorf("action %q has no effect on %s", action, entityType),
	}
}

func (s *ModerationActionService) messageAuthor(ctx context.Context, messageID string) (string, error) {
	op := "resolve author of chat_message/" + messageID
	summary, err := s.lookup.Resolve(ctx, models.EntityChatMessage, messageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", &ActionError{Kind: ActionEntityNotFound, Op: op, Err: err}
		}
		return "", classifyActionError(op, err)
	}
	if summary.OwnerID == "" {
		return "", &ActionError{Kind: ActionEntityNotFound, Op: op, Err: errors.New("message has no author")}
	}
	return summary.OwnerID, nil
}

// alreadyInStatus is best effort: a failed lookup falls through to the
// mutation, which reports its own errors. A banned entity counts as
// already suspended.
func (s *ModerationActionService) alreadyInStatus(ctx context.Context, m mutation) bool {
	if s.lookup == nil {
		return false
	}
	summary, err := s.lookup.Resolve(ctx, m.targetType, m.targetID)
	if err != nil {
		return false
	}
	return models.StatusCovers(summary.CurrentStatus, m.status)
}

func classifyActionError(op string, err error) *ActionError {
	kind := ActionRejected
	switch {
	case errors.Is(err, context.DeadlineExceeded), platformapi.IsRetryable(err):
		kind = ActionTransientFailure
	case errors.Is(err, platformapi.ErrNotFound), errors.Is(err, ErrNotFound):
		kind = ActionEntityNotFound
	case errors.Is(err, platformapi.ErrConflict):
		kind = ActionAlreadyInTargetState
	case errors.Is(err, platformapi.ErrUnauthorized):
		kind = ActionUnauthorized
	}
	return &ActionError{Kind: kind, Op: op, Err: err}
}

func warningMessage(entityType models.EntityType, details string) string {
	if strings.TrimSpace(details) != "" {
		return details
	}
	switch entityType {
	case models.EntityStartup:
		return "Your startup listing received a formal warning from the moderation team."
	case models.EntityChatMessage:
		return "One of your messages received a formal warning from the moderation team."
	default:
		return "Your account received a formal warning from the moderation team."
	}
}
