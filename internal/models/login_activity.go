package models

import (
	"time"

	"gorm.io/gorm"
)

// LoginActivity records one login attempt (PostgreSQL), used by the
// suspicious-login detector that produces security_alert notifications.
type LoginActivity struct {
	gorm.Model       `json:"-"`
	ID               uint       `json:"id" gorm:"primaryKey"`
	UserID           uint       `json:"user_id" gorm:"index"`
	UsernameSnapshot string     `json:"username_snapshot"`
	IPAddress        string     `json:"ip_address"`
	UserAgent        string     `json:"user_agent"`
	Success          bool       `json:"success" gorm:"index"`
	Suspicious       bool       `json:"suspicious"`
	SuspicionReasons []string   `json:"suspicion_reasons" gorm:"serializer:json"`
	NotifiedAt       *time.Time `json:"notified_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"index"`
}
