package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app inbox entry shown to a marketplace user.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    string     `gorm:"not null;size:64;index" json:"userId"`
	ReportID  uuid.UUID  `gorm:"type:uuid;index" json:"reportId"`
	Subject   string     `gorm:"not null;size:255" json:"subject"`
	Body      string     `gorm:"type:text" json:"body"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
	DeliverySkipped   DeliveryStatus = "SKIPPED"
)

// NotificationDelivery records the outcome of one (recipient, channel) pair
// of a resolution's notification plan.
type NotificationDelivery struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReportID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"reportId"`
	Recipient   string         `gorm:"not null;size:20" json:"recipient"`
	RecipientID string         `gorm:"size:64" json:"recipientId,omitempty"`
	Channel     Channel        `gorm:"not null;size:20" json:"channel"`
	Status      DeliveryStatus `gorm:"not null;size:20" json:"status"`
	Reason      string         `gorm:"size:500" json:"reason,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
