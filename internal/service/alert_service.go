package service

import (
	"context"

	"heartlink/internal/models"
	"heartlink/internal/notifications"
	"heartlink/internal/repository"
)

// AlertService reads and maintains a user's notification log.
type AlertService struct {
	alertRepo repository.AlertRepository
	userRepo  repository.UserRepository
}

// NewAlertService returns a new AlertService.
func NewAlertService(alertRepo repository.AlertRepository, userRepo repository.UserRepository) *AlertService {
	return &AlertService{
		alertRepo: alertRepo,
		userRepo:  userRepo,
	}
}

// GetAlerts returns the user's alert log newest first, with each record's
// actor resolved to their current nickname and image. Actors who deleted
// their account render with empty name and image.
func (s *AlertService) GetAlerts(ctx context.Context, userID uint) ([]notifications.RecordView, error) {
	records, err := s.alertRepo.ListRecords(ctx, userID)
	if err != nil {
		return nil, err
	}

	actors := make(map[uint]*models.User)
	views := make([]notifications.RecordView, 0, len(records))
	for i := range records {
		actor, seen := actors[records[i].UserID]
		if !seen {
			actor, err = s.userRepo.GetByID(ctx, records[i].UserID)
			if err != nil {
				if appErr, ok := err.(*models.AppError); !ok || appErr.Code != "NOT_FOUND" {
					return nil, err
				}
				actor = nil
			}
			actors[records[i].UserID] = actor
		}
		views = append(views, notifications.NewRecordView(&records[i], actor))
	}
	return views, nil
}

// MarkAllRead flips every alert for the user to read.
func (s *AlertService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.alertRepo.MarkAllRead(ctx, userID)
}
