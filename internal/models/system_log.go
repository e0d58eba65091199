package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SystemLog stores ERROR+ log records so failed moderation actions and
// deliveries can be queried after the fact.
type SystemLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Timestamp   time.Time      `gorm:"not null;index" json:"timestamp"`
	Level       string         `gorm:"size:10;not null;index" json:"level"`
	Message     string         `gorm:"type:text" json:"message"`
	RequestID   string         `gorm:"size:36;index" json:"requestId"`
	ReportID    *string        `gorm:"size:36;index" json:"reportId"`
	EntityType  string         `gorm:"size:32" json:"entityType"`
	AdminAction string         `gorm:"size:32" json:"adminAction"`
	Error       string         `gorm:"type:text" json:"error"`
	Extra       datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"extra"`
	CreatedAt   time.Time      `json:"createdAt"`
}
