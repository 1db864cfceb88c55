package repositories

import (
	"errors"

	"github.com/moyeo-app/moyeo/backend/internal/models"
	"gorm.io/gorm"
)

// LoginActivityRepository defines the interface for login-history operations
type LoginActivityRepository interface {
	CreateActivity(activity *models.LoginActivity) error
	UpdateActivity(activity *models.LoginActivity) error
	GetLastSuccess(userID uint) (*models.LoginActivity, error)
	HasSuccessFromIP(userID uint, ipAddress string) (bool, error)
	ListByUser(userID uint, limit int) ([]models.LoginActivity, error)
}

type postgresLoginActivityRepository struct {
	db *gorm.DB
}

func NewPostgresLoginActivityRepository(db *gorm.DB) LoginActivityRepository {
	return &postgresLoginActivityRepository{db: db}
}

func (r *postgresLoginActivityRepository) CreateActivity(activity *models.LoginActivity) error {
	return r.db.Create(activity).Error
}

func (r *postgresLoginActivityRepository) UpdateActivity(activity *models.LoginActivity) error {
	return r.db.Save(activity).Error
}

// GetLastSuccess returns the most recent successful login, or nil when the
// user has never logged in before.
func (r *postgresLoginActivityRepository) GetLastSuccess(userID uint) (*models.LoginActivity, error) {
	var activity models.LoginActivity
	err := r.db.Where("user_id = ? AND success = ?", userID, true).
		Order("created_at DESC").
		First(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *postgresLoginActivityRepository) HasSuccessFromIP(userID uint, ipAddress string) (bool, error) {
	var count int64
	err := r.db.Model(&models.LoginActivity{}).
		Where("user_id = ? AND success = ? AND ip_address = ?", userID, true, ipAddress).
		Count(&count).Error
	return count > 0, err
}

func (r *postgresLoginActivityRepository) ListByUser(userID uint, limit int) ([]models.LoginActivity, error) {
	var activities []models.LoginActivity
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}
