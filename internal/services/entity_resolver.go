package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/platformapi"
)

// SummaryAPI is the platform's entity summary endpoint.
type SummaryAPI interface {
	GetSummary(ctx context.Context, entityType models.EntityType, entityID string) (*platformapi.EntitySummaryResponse, error)
}

// EntityResolver turns (type, id) into a display summary and finds who
// should be notified on the reported side.
type EntityResolver struct {
	api SummaryAPI
}

func NewEntityResolver(api SummaryAPI) *EntityResolver {
	return &EntityResolver{api: api}
}

func (r *EntityResolver) Resolve(ctx context.Context, entityType models.EntityType, entityID string) (*models.EntitySummary, error) {
	raw, err := r.api.GetSummary(ctx, entityType, entityID)
	if err != nil {
		if errors.Is(err, platformapi.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", entityType, entityID, ErrNotFound)
		}
		return nil, fmt.Errorf("resolve %s %s: %w", entityType, entityID, err)
	}

	summary := &models.EntitySummary{
		EntityType:    entityType,
		EntityID:      entityID,
		Name:          raw.Name,
		CurrentStatus: raw.Status,
	}

	switch entityType {
	case models.EntityUser:
		summary.OwnerID = entityID
		summary.ImageURL = firstNonEmpty(raw.Avatar, raw.ImageURL)
	case models.EntityStartup:
		summary.OwnerID = raw.OwnerID
		summary.ImageURL = firstNonEmpty(raw.Logo, raw.ImageURL)
	case models.EntityChatMessage:
		summary.OwnerID = raw.AuthorID
		summary.ImageURL = raw.ImageURL
	default:
		return nil, invalidArgument("unsupported entity type %q", entityType)
	}
	return summary, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
