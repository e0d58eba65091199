package models

// EntitySummary is the display-safe view of a reported user, startup or
// chat message.
type EntitySummary struct {
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Name       string     `json:"name"`
	ImageURL   string     `json:"imageUrl,omitempty"`
	// OwnerID is who gets notified for the reported side: the user itself,
	// the startup's owner or the message author.
	OwnerID       string `json:"ownerId,omitempty"`
	CurrentStatus string `json:"currentStatus,omitempty"`
}
