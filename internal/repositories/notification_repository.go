package repositories

import (
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationCursor points just past the last item of a page. Listing
// resumes at items strictly older, ordered (created_at desc, id desc) with
// the id tie-break keeping the walk stable under concurrent inserts.
type NotificationCursor struct {
	CreatedAt time.Time
	ID        uint
}

// NotificationFilter narrows a recipient's feed query.
type NotificationFilter struct {
	UnreadOnly bool
	Types      []models.NotificationType
	Limit      int
	Cursor     *NotificationCursor
}

// TypeCountRow is one row of the per-type aggregation.
type TypeCountRow struct {
	Type   models.NotificationType
	Total  int64
	Unread int64
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	GetByID(id, recipientID uint) (*models.Notification, error)
	ListByRecipient(recipientID uint, filter NotificationFilter) ([]models.Notification, error)
	GetUnreadCount(recipientID uint) (int64, error)
	CountsByType(recipientID uint) ([]TypeCountRow, error)
	MarkAsRead(id, recipientID uint, at time.Time) error
	MarkAllAsRead(recipientID uint, at time.Time) (int64, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *postgresNotificationRepository) GetByID(id, recipientID uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *postgresNotificationRepository) ListByRecipient(recipientID uint, filter NotificationFilter) ([]models.Notification, error) {
	q := r.db.Where("recipient_id = ?", recipientID)

	if filter.UnreadOnly {
		q = q.Where("read = ?", false)
	}
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if filter.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var notifications []models.Notification
	err := q.Order("created_at DESC, id DESC").
		Limit(filter.Limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *postgresNotificationRepository) GetUnreadCount(recipientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) CountsByType(recipientID uint) ([]TypeCountRow, error) {
	var rows []TypeCountRow
	err := r.db.Model(&models.Notification{}).
		Select("type, COUNT(*) AS total, COUNT(*) FILTER (WHERE read = false) AS unread").
		Where("recipient_id = ?", recipientID).
		Group("type").
		Scan(&rows).Error
	return rows, err
}

// MarkAsRead flips read false -> true for the recipient's notification.
// Already-read rows are left untouched, so the transition is idempotent.
func (r *postgresNotificationRepository) MarkAsRead(id, recipientID uint, at time.Time) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND read = ?", id, recipientID, false).
		Updates(map[string]interface{}{"read": true, "read_at": at}).Error
}

func (r *postgresNotificationRepository) MarkAllAsRead(recipientID uint, at time.Time) (int64, error) {
	result := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Updates(map[string]interface{}{"read": true, "read_at": at})
	return result.RowsAffected, result.Error
}
