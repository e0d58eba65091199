package platformapi

import (
	"context"
	"net/http"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
)

// EntitySummaryResponse is the platform's summary payload. Startups carry
// ownerId, chat messages carry authorId.
type EntitySummaryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
	Logo     string `json:"logo"`
	Avatar   string `json:"avatar"`
	OwnerID  string `json:"ownerId"`
	AuthorID string `json:"authorId"`
	Status   string `json:"status"`
}

func (c *Client) GetSummary(ctx context.Context, entityType models.EntityType, entityID string) (*EntitySummaryResponse, error) {
	var out EntitySummaryResponse
	if err := c.doJSON(ctx, "get entity summary", http.MethodGet, entityPath(string(entityType), entityID)+"/summary", nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = entityID
	}
	return &out, nil
}

type setStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (c *Client) SetStatus(ctx context.Context, entityType models.EntityType, entityID, status, reason string) error {
	return c.doJSON(ctx, "set entity status", http.MethodPut, entityPath(string(entityType), entityID)+"/status",
		setStatusRequest{Status: status, Reason: reason}, nil)
}

type warnRequest struct {
	Message string `json:"message"`
}

func (c *Client) Warn(ctx context.Context, entityType models.EntityType, entityID, message string) error {
	return c.doJSON(ctx, "warn entity", http.MethodPost, entityPath(string(entityType), entityID)+"/warnings",
		warnRequest{Message: message}, nil)
}

func (c *Client) DeleteEntity(ctx context.Context, entityType models.EntityType, entityID string) error {
	return c.doJSON(ctx, "delete entity", http.MethodDelete, entityPath(string(entityType), entityID), nil, nil)
}
