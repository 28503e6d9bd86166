package notification

import (
	"context"
	"fmt"
	"strings"

	"advisorbooking/internal/events"
	"advisorbooking/internal/pkg/clock"
	"advisorbooking/internal/pkg/logging"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Pusher delivers a notification to a connected user, reporting whether it was delivered.
type Pusher interface {
	SendToUser(userID int64, message any) bool
}

type Service struct {
	repo   *Repository
	pusher Pusher
	clock  clock.Clock
	logger *logging.Logger
}

func NewService(repo *Repository, pusher Pusher, c clock.Clock, logger *logging.Logger) *Service {
	if c == nil {
		c = clock.System{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, pusher: pusher, clock: c, logger: logger}
}

// Notify stores a notification for recipientID and pushes it to any live connection.
func (s *Service) Notify(ctx context.Context, recipientID int64, kind Kind, message string, appointmentID *uuid.UUID) (*Notification, error) {
	if recipientID <= 0 {
		return nil, fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrValidation, kind)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message must not be empty", ErrValidation)
	}

	n := &Notification{
		RecipientID:   recipientID,
		Kind:          kind,
		Message:       message,
		AppointmentID: appointmentID,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.pusher != nil && s.pusher.SendToUser(recipientID, pushPayload(n)) {
		s.logger.Debug("notification pushed", "recipient_id", recipientID, "notification_id", n.ID.String())
	}
	return n, nil
}

// Handle turns a committed appointment event into a stored notification.
func (s *Service) Handle(ctx context.Context, evt events.Event) error {
	kind, ok := KindForEvent(evt.Type)
	if !ok {
		return nil
	}
	var ref *uuid.UUID
	if evt.AppointmentID != uuid.Nil {
		id := evt.AppointmentID
		ref = &id
	}
	_, err := s.Notify(ctx, evt.RecipientID, kind, evt.Message, ref)
	return err
}

func (s *Service) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead returns false when the notification had already been read.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, userID int64) (bool, error) {
	return s.repo.MarkRead(ctx, id, userID, s.clock.Now())
}

// MarkAllRead returns how many notifications changed.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.clock.Now())
}

type pushMessage struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}

func pushPayload(n *Notification) pushMessage {
	return pushMessage{Type: "notification", Notification: n}
}
