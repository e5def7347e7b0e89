package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/finishpro/admin-backend/pkg/enums"
)

// AdminNotification is a console alert. The feed is shared, so ReadAt is
// set by whichever admin reads it first.
type AdminNotification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Type      enums.NotificationType `gorm:"type:admin_notification_type;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	Link      *string                `gorm:"type:text"`
	ReadAt    *time.Time             `gorm:"type:timestamptz"`
	CreatedAt time.Time              `gorm:"type:timestamptz;autoCreateTime"`
}

func (AdminNotification) TableName() string { return "admin_notifications" }
