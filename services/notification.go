package services

import (
	"encoding/json"

	"github.com/ysyyds1688-maker/drinktea_api/model"
	"github.com/ysyyds1688-maker/drinktea_api/shared"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// NotificationService persists in-app notifications and mirrors freeze-related
// ones to email. Everything here is best-effort from the caller's point of
// view: a restriction must exist even if the user was never told.
type NotificationService struct {
	context.DefaultService

	sqlSvc   *PostgresService
	emailSvc *EmailService
}

const NOTIFICATION_SVC = "notification_svc"

func (svc NotificationService) Id() string {
	return NOTIFICATION_SVC
}

func (svc *NotificationService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.emailSvc = svc.Service(EMAIL_SVC).(*EmailService)
	return nil
}

// Notify stores a notification row and forwards it to email when the type
// warrants it. The returned error covers persistence only; email failures are
// logged and swallowed.
func (svc *NotificationService) Notify(userID, notifType, title, content, link string, metadata map[string]interface{}) error {
	n := &model.Notification{
		ID:      newID(),
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Content: content,
		Link:    link,
	}

	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.WithError(err).Warn("Failed to marshal notification metadata")
		} else {
			n.Metadata = string(raw)
		}
	}

	if err := svc.sqlSvc.CreateNotification(n); err != nil {
		return err
	}

	svc.forwardToEmail(userID, notifType, title, content, metadata)

	return nil
}

func (svc *NotificationService) forwardToEmail(userID, notifType, title, content string, metadata map[string]interface{}) {
	user, err := svc.sqlSvc.GetUser(userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Skipping notification email, user lookup failed")
		return
	}
	if user.Email == "" {
		return
	}

	switch notifType {
	case shared.NotificationAccountFrozen, shared.NotificationUnfreezeSoon:
		unfreezeDate := ""
		if metadata != nil {
			if v, ok := metadata["auto_unfreeze_at"].(string); ok {
				unfreezeDate = v
			}
		}
		if err := svc.emailSvc.SendFreezeNotice(user.Email, user.Username, title, content, unfreezeDate); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Failed to email freeze notice")
		}
	case shared.NotificationAccountUnfrozen:
		if err := svc.emailSvc.SendUnfreezeNotice(user.Email, user.Username, title, content); err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Failed to email unfreeze notice")
		}
	}
}

func (svc *NotificationService) GetUserNotifications(userID string, limit int) ([]model.Notification, error) {
	return svc.sqlSvc.GetNotifications(userID, limit)
}

func (svc *NotificationService) MarkRead(id, userID string) error {
	return svc.sqlSvc.MarkNotificationRead(id, userID)
}
