package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"tradelab/src/model"
)

// Notifier delivers alert messages to users. Both channels are
// fire-and-forget from the caller's point of view: a delivery failure is
// returned for logging but must never abort the triggering flow.
type Notifier interface {
	SendNotification(ctx context.Context, user *model.User, title, message string, data map[string]any) error
	SendEmail(ctx context.Context, user *model.User, subject, body string) error
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, notification *model.Notification) error
}

// EmailSender delivers one email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Service struct {
	logger *logrus.Entry
	store  NotificationStore
	email  EmailSender
}

func NewService(logger *logrus.Entry, store NotificationStore, email EmailSender) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		logger: logger.WithField("component", "Notifier"),
		store:  store,
		email:  email,
	}
}

func (s *Service) SendNotification(ctx context.Context, user *model.User, title, message string, data map[string]any) error {
	if user == nil {
		return fmt.Errorf("notification without user")
	}

	notification := &model.Notification{
		UserID:  user.ID,
		Title:   title,
		Message: message,
		Data:    data,
	}

	if err := s.store.Create(ctx, notification); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to store notification")
		return err
	}

	return nil
}

func (s *Service) SendEmail(ctx context.Context, user *model.User, subject, body string) error {
	if user == nil || user.Email == "" {
		return fmt.Errorf("email without recipient")
	}

	if err := s.email.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to send email")
		return err
	}

	return nil
}
