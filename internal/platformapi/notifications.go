package platformapi

import (
	"context"
	"net/http"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/models"
)

type sendNotificationRequest struct {
	RecipientID string         `json:"recipientId"`
	Channel     models.Channel `json:"channel"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
}

// SendNotificationResponse is the platform's delivery receipt.
type SendNotificationResponse struct {
	Accepted  bool   `json:"accepted"`
	MessageID string `json:"messageId"`
	Reason    string `json:"reason"`
}

// SendNotification asks the platform to deliver a message on a channel it
// owns (email today).
func (c *Client) SendNotification(ctx context.Context, recipientID string, channel models.Channel, subject, body string) (*SendNotificationResponse, error) {
	out := SendNotificationResponse{Accepted: true}
	err := c.doJSON(ctx, "send notification", http.MethodPost, "/notifications/send", sendNotificationRequest{
		RecipientID: recipientID,
		Channel:     channel,
		Subject:     subject,
		Body:        body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
