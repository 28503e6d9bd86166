package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type notificationModel struct {
	ID            string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	RecipientID   int64      `gorm:"column:recipient_id;index:idx_notifications_recipient_read"`
	Kind          string     `gorm:"column:kind"`
	Message       string     `gorm:"column:message"`
	AppointmentID *string    `gorm:"column:appointment_id;type:varchar(36)"`
	IsRead        bool       `gorm:"column:is_read;index:idx_notifications_recipient_read"`
	ReadAt        *time.Time `gorm:"column:read_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime:false"`
}

func (notificationModel) TableName() string { return "notifications" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&notificationModel{})
}

func (r *Repository) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	m := notificationModel{
		ID:          n.ID.String(),
		RecipientID: n.RecipientID,
		Kind:        string(n.Kind),
		Message:     n.Message,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt.UTC().Truncate(time.Second),
	}
	if n.AppointmentID != nil {
		s := n.AppointmentID.String()
		m.AppointmentID = &s
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("notification: create: %w", err)
	}
	return nil
}

// ListForUser returns newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error) {
	q := r.db.WithContext(ctx).Where("recipient_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []notificationModel
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification: list: %w", err)
	}
	out := make([]Notification, 0, len(rows))
	for _, m := range rows {
		n, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("notification: count unread: %w", err)
	}
	return count, nil
}

// MarkRead reports false when the notification was already read.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID, userID int64, at time.Time) (bool, error) {
	var m notificationModel
	err := r.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", id.String(), userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("notification: get: %w", err)
	}
	if m.IsRead {
		return false, nil
	}

	res := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("id = ? AND is_read = ?", m.ID, false).
		Updates(map[string]any{"is_read": true, "read_at": at.UTC().Truncate(time.Second)})
	if res.Error != nil {
		return false, fmt.Errorf("notification: mark read: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at.UTC().Truncate(time.Second)})
	if res.Error != nil {
		return 0, fmt.Errorf("notification: mark all read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (m notificationModel) toDomain() (Notification, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return Notification{}, fmt.Errorf("notification: bad id %q: %w", m.ID, err)
	}
	n := Notification{
		ID:          id,
		RecipientID: m.RecipientID,
		Kind:        Kind(m.Kind),
		Message:     m.Message,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	if m.AppointmentID != nil {
		if aid, err := uuid.Parse(*m.AppointmentID); err == nil {
			n.AppointmentID = &aid
		}
	}
	if m.ReadAt != nil {
		t := m.ReadAt.UTC()
		n.ReadAt = &t
	}
	return n, nil
}
