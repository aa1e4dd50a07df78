package repository

import (
	"context"
	"errors"

	"heartlink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertRepository defines the interface for the per-user alert log
type AlertRepository interface {
	GetOrCreate(ctx context.Context, ownerID uint) (*models.Alert, error)
	Append(ctx context.Context, ownerID uint, record *models.AlertRecord) error
	ListRecords(ctx context.Context, ownerID uint) ([]models.AlertRecord, error)
	MarkAllRead(ctx context.Context, ownerID uint) error
}

// alertRepository implements AlertRepository
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// GetOrCreate returns the owner's alert container, creating it on first
// access. The unique index on owner_id keeps concurrent first accesses from
// producing two containers: the losing insert is a no-op and the follow-up
// read observes the winner's row.
func (r *alertRepository) GetOrCreate(ctx context.Context, ownerID uint) (*models.Alert, error) {
	alert := models.Alert{OwnerID: ownerID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&alert).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	var out models.Alert
	err = r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &out, nil
}

// Append persists the record and trims the owner's log back down to the
// newest MaxAlertRecords entries, oldest first.
func (r *alertRepository) Append(ctx context.Context, ownerID uint, record *models.AlertRecord) error {
	alert, err := r.GetOrCreate(ctx, ownerID)
	if err != nil {
		return err
	}
	record.AlertID = alert.ID
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Exec(`
			DELETE FROM alert_records
			WHERE alert_id = ? AND id NOT IN (
				SELECT id FROM alert_records
				WHERE alert_id = ?
				ORDER BY created_at DESC, id DESC
				LIMIT ?
			)`, alert.ID, alert.ID, models.MaxAlertRecords).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListRecords returns the owner's records newest first. A user who has
// never received an alert gets an empty log, not an error.
func (r *alertRepository) ListRecords(ctx context.Context, ownerID uint) ([]models.AlertRecord, error) {
	alert, err := r.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var records []models.AlertRecord
	err = r.db.WithContext(ctx).
		Where("alert_id = ?", alert.ID).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return records, nil
}

// MarkAllRead flips every record for the owner to read. Unlike the other
// operations it does not create the container: marking alerts read for an
// owner who has none is a caller error.
func (r *alertRepository) MarkAllRead(ctx context.Context, ownerID uint) error {
	var alert models.Alert
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Alert", ownerID)
		}
		return models.NewInternalError(err)
	}
	err = r.db.WithContext(ctx).Model(&models.AlertRecord{}).
		Where("alert_id = ? AND is_read = ?", alert.ID, false).
		Update("is_read", true).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
