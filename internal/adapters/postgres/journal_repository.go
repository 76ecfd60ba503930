package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viralforge/economy-bridge/internal/domain"
)

// CallbackJournal persists one row per processed gateway callback.
type CallbackJournal struct {
	db *gorm.DB
}

func NewCallbackJournal(db *gorm.DB) *CallbackJournal {
	return &CallbackJournal{db: db}
}

func (j *CallbackJournal) Record(ctx context.Context, rec domain.CallbackRecord) error {
	row := toCallbackModel(rec)
	return j.db.WithContext(ctx).Create(&row).Error
}

// Recent returns the newest records for a region, newest first.
func (j *CallbackJournal) Recent(ctx context.Context, regionID uuid.UUID, limit int) ([]domain.CallbackRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []callbackModel
	err := j.db.WithContext(ctx).
		Where("region_id = ?", regionID).
		Order("received_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.CallbackRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainCallback(row))
	}
	return out, nil
}

func toCallbackModel(rec domain.CallbackRecord) callbackModel {
	return callbackModel{
		NotificationID: rec.NotificationID,
		RegionID:       rec.RegionID,
		Method:         rec.Method,
		Accepted:       rec.Accepted,
		Success:        rec.Success,
		ErrorCode:      rec.Error,
		ReceivedAt:     rec.ReceivedAt.UTC(),
	}
}

func toDomainCallback(row callbackModel) domain.CallbackRecord {
	return domain.CallbackRecord{
		NotificationID: row.NotificationID,
		RegionID:       row.RegionID,
		Method:         row.Method,
		Accepted:       row.Accepted,
		Success:        row.Success,
		Error:          row.ErrorCode,
		ReceivedAt:     row.ReceivedAt.UTC(),
	}
}
