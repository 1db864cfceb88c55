package repositories

import (
	"errors"

	"github.com/moyeo-app/moyeo/backend/internal/models"
	"gorm.io/gorm"
)

// BlockRepository defines the interface for block-edge operations. Edges
// are directed; symmetric enforcement happens in the blocking resolver.
type BlockRepository interface {
	CreateBlock(blockerID, blockedID uint) error
	DeleteBlock(blockerID, blockedID uint) error
	GetBlockedIDs(blockerID uint) ([]uint, error)
	GetBlockerIDs(blockedID uint) ([]uint, error)
}

// PostgresBlockRepository implements BlockRepository for PostgreSQL
type PostgresBlockRepository struct {
	db *gorm.DB
}

// NewPostgresBlockRepository creates a new PostgresBlockRepository
func NewPostgresBlockRepository(db *gorm.DB) *PostgresBlockRepository {
	return &PostgresBlockRepository{db: db}
}

// CreateBlock records a blocker -> blocked edge; creating the same edge
// twice is a no-op.
func (r *PostgresBlockRepository) CreateBlock(blockerID, blockedID uint) error {
	var existing models.BlockEdge
	err := r.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(&models.BlockEdge{BlockerID: blockerID, BlockedID: blockedID}).Error
}

// DeleteBlock removes a blocker -> blocked edge
func (r *PostgresBlockRepository) DeleteBlock(blockerID, blockedID uint) error {
	return r.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.BlockEdge{}).Error
}

// GetBlockedIDs returns the ids the given user has blocked
func (r *PostgresBlockRepository) GetBlockedIDs(blockerID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.BlockEdge{}).
		Where("blocker_id = ?", blockerID).
		Pluck("blocked_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// GetBlockerIDs returns the ids that have blocked the given user
func (r *PostgresBlockRepository) GetBlockerIDs(blockedID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.BlockEdge{}).
		Where("blocked_id = ?", blockedID).
		Pluck("blocker_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
