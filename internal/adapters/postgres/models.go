package postgres

import (
	"time"

	"github.com/google/uuid"
)

type callbackModel struct {
	ID             int64     `gorm:"column:id;primaryKey"`
	NotificationID string    `gorm:"column:notification_id"`
	RegionID       uuid.UUID `gorm:"column:region_id;type:uuid"`
	Method         string    `gorm:"column:method"`
	Accepted       bool      `gorm:"column:accepted"`
	Success        bool      `gorm:"column:success"`
	ErrorCode      string    `gorm:"column:error_code"`
	ReceivedAt     time.Time `gorm:"column:received_at"`
}

func (callbackModel) TableName() string { return "callback_journal" }
