package repository

import (
	"context"
	"time"

	"calibration-backend/models"

	"gorm.io/gorm"
)

// NotificationExists reports whether a notification of typ was already composed for the certificate.
func (s *Store) NotificationExists(ctx context.Context, certificateID uint, typ models.NotificationType) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Notification{}).
		Where("certificate_id = ? AND notification_type = ?", certificateID, typ).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate(s.conn(ctx).Create(n).Error)
}

// CreateNotifications inserts the rows in one transaction, so a scan never leaves a partial set behind.
func (s *Store) CreateNotifications(ctx context.Context, rows []models.Notification) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *Store) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.conn(ctx).First(&n, id).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

func (s *Store) ListNotifications(ctx context.Context, f NotificationFilter) ([]models.NotificationListItem, int64, error) {
	query := s.conn(ctx).
		Table("notifications AS n").
		Joins("JOIN customers c ON c.id = n.customer_id").
		Joins("LEFT JOIN calibration_certificates cc ON cc.id = n.certificate_id")

	if f.Type != "" {
		query = query.Where("n.notification_type = ?", f.Type)
	}
	switch f.Status {
	case "sent":
		query = query.Where("n.is_sent = ?", true)
	case "pending":
		query = query.Where("n.is_sent = ?", false)
	}
	if f.CustomerID != 0 {
		query = query.Where("n.customer_id = ?", f.CustomerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.NotificationListItem
	err := query.
		Select("n.*, c.company_name, c.contact_person, cc.certificate_number, cc.due_date").
		Order("n.created_at DESC").
		Offset(offset(f.Page, f.Limit)).
		Limit(f.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// PendingNotificationIDs lists unsent notifications that are unclaimed or whose claim went stale.
func (s *Store) PendingNotificationIDs(ctx context.Context, staleBefore time.Time, limit int) ([]uint, error) {
	var ids []uint
	err := s.conn(ctx).Model(&models.Notification{}).
		Where("is_sent = ?", false).
		Where("claimed_at IS NULL OR claimed_at < ?", staleBefore).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// ClaimNotification marks the row in flight. It returns false when the row is sent or held by a live claim.
func (s *Store) ClaimNotification(ctx context.Context, id uint, now, staleBefore time.Time) (bool, error) {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("id = ? AND is_sent = ?", id, false).
		Where("claimed_at IS NULL OR claimed_at < ?", staleBefore).
		Update("claimed_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) MarkNotificationSent(ctx context.Context, id uint, at time.Time) error {
	return translate(s.conn(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_sent":    true,
			"sent_at":    at,
			"claimed_at": nil,
			"last_error": "",
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error)
}

// ReleaseNotification drops the claim and records the failed attempt.
func (s *Store) ReleaseNotification(ctx context.Context, id uint, lastError string) error {
	return translate(s.conn(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"claimed_at": nil,
			"last_error": lastError,
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error)
}
