// Package security records login attempts and raises security_alert
// notifications for suspicious ones. It is a producer feeding the
// notification service, nothing more; credential checking itself lives in
// the auth handler.
package security

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/notifications"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
)

const defaultHistoryLimit = 50

// NotificationCreator is the slice of the notification service this
// package needs.
type NotificationCreator interface {
	Create(in notifications.CreateInput) (*models.Notification, error)
}

type Service struct {
	activities repositories.LoginActivityRepository
	notifier   NotificationCreator
}

func NewService(activities repositories.LoginActivityRepository, notifier NotificationCreator) *Service {
	return &Service{activities: activities, notifier: notifier}
}

// LoginAttempt describes one credential check outcome.
type LoginAttempt struct {
	UserID    uint
	Username  string
	IPAddress string
	UserAgent string
	Success   bool
}

func isPrivateIP(address string) bool {
	ip := net.ParseIP(address)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

// detectSuspicious compares the attempt against the user's last successful
// login. New public addresses and device changes each count as a reason;
// any reason marks the attempt suspicious.
func (s *Service) detectSuspicious(attempt LoginAttempt) ([]string, error) {
	if attempt.IPAddress == "" {
		return []string{"ip_missing"}, nil
	}

	var reasons []string

	seen, err := s.activities.HasSuccessFromIP(attempt.UserID, attempt.IPAddress)
	if err != nil {
		return nil, err
	}
	if !seen && !isPrivateIP(attempt.IPAddress) {
		reasons = append(reasons, "new_ip_address")
	}

	last, err := s.activities.GetLastSuccess(attempt.UserID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		if last.IPAddress != attempt.IPAddress && !isPrivateIP(attempt.IPAddress) {
			reasons = append(reasons, "ip_changed")
		}
		if attempt.UserAgent != "" && last.UserAgent != "" && attempt.UserAgent != last.UserAgent {
			reasons = append(reasons, "device_changed")
		}
	}
	return reasons, nil
}

// RecordLoginAttempt stores the attempt and, for suspicious successful
// logins, raises a security_alert notification. Always best-effort from
// the caller's point of view: a recording failure must not fail the login.
func (s *Service) RecordLoginAttempt(attempt LoginAttempt) {
	if attempt.UserID == 0 {
		return
	}

	var reasons []string
	if attempt.Success {
		detected, err := s.detectSuspicious(attempt)
		if err != nil {
			log.Printf("suspicious login detection failed for user %d: %v", attempt.UserID, err)
		} else {
			reasons = detected
		}
	}

	activity := &models.LoginActivity{
		UserID:           attempt.UserID,
		UsernameSnapshot: attempt.Username,
		IPAddress:        attempt.IPAddress,
		UserAgent:        attempt.UserAgent,
		Success:          attempt.Success,
		Suspicious:       len(reasons) > 0,
		SuspicionReasons: reasons,
	}
	if err := s.activities.CreateActivity(activity); err != nil {
		log.Printf("login activity record failed for user %d: %v", attempt.UserID, err)
		return
	}

	if !attempt.Success || len(reasons) == 0 {
		return
	}

	now := time.Now()
	_, err := s.notifier.Create(notifications.CreateInput{
		RecipientID: attempt.UserID,
		Type:        models.NotifSecurityAlert,
		Message:     fmt.Sprintf("New login from %s", attempt.IPAddress),
		Payload: models.NotificationPayload{
			IPAddress: attempt.IPAddress,
			UserAgent: attempt.UserAgent,
			Reasons:   reasons,
			At:        &now,
		},
	})
	if err != nil {
		log.Printf("security notification failed for user %d: %v", attempt.UserID, err)
		return
	}

	activity.NotifiedAt = &now
	if err := s.activities.UpdateActivity(activity); err != nil {
		log.Printf("login activity update failed for user %d: %v", attempt.UserID, err)
	}
}

// ListLoginActivities returns the user's recent login history.
func (s *Service) ListLoginActivities(userID uint, limit int) ([]models.LoginActivity, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultHistoryLimit
	}
	return s.activities.ListByUser(userID, limit)
}
