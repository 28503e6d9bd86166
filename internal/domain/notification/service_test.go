package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"advisorbooking/internal/database"
	"advisorbooking/internal/events"
	"advisorbooking/internal/pkg/clock"
	"advisorbooking/internal/pkg/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	mu   sync.Mutex
	sent map[int64][]any
}

func (p *fakePusher) SendToUser(userID int64, message any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = make(map[int64][]any)
	}
	p.sent[userID] = append(p.sent[userID], message)
	return true
}

func setupTestService(t *testing.T) (*Service, *fakePusher, *time.Time) {
	t.Helper()
	db, err := database.Connect(database.MemoryDSN("notification_"+t.Name()), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	pusher := &fakePusher{}
	svc := NewService(repo, pusher, clock.Func(func() time.Time { return now }), logging.Discard())
	return svc, pusher, &now
}

func TestNotify_Validation(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.Notify(ctx, 1, Kind("birthday"), "hello", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Notify(ctx, 1, KindAccepted, "   ", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Notify(ctx, 0, KindAccepted, "hello", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNotify_StoresAndPushes(t *testing.T) {
	svc, pusher, _ := setupTestService(t)
	ctx := context.Background()
	apptID := uuid.New()

	n, err := svc.Notify(ctx, 7, KindAccepted, "  Your appointment is confirmed. ", &apptID)
	require.NoError(t, err)
	assert.Equal(t, "Your appointment is confirmed.", n.Message)
	assert.Len(t, pusher.sent[7], 1)

	list, err := svc.ListForUser(ctx, 7, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, KindAccepted, list[0].Kind)
	require.NotNil(t, list[0].AppointmentID)
	assert.Equal(t, apptID, *list[0].AppointmentID)
	assert.False(t, list[0].IsRead)
}

func TestListForUser_NewestFirstAndUnreadFilter(t *testing.T) {
	svc, _, now := setupTestService(t)
	ctx := context.Background()

	first, err := svc.Notify(ctx, 7, KindRequest, "first", nil)
	require.NoError(t, err)
	*now = now.Add(time.Minute)
	_, err = svc.Notify(ctx, 7, KindReminder, "second", nil)
	require.NoError(t, err)
	_, err = svc.Notify(ctx, 8, KindReminder, "someone else", nil)
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, 7, false, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)

	changed, err := svc.MarkRead(ctx, first.ID, 7)
	require.NoError(t, err)
	assert.True(t, changed)

	unread, err := svc.ListForUser(ctx, 7, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "second", unread[0].Message)
}

func TestMarkRead(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	n, err := svc.Notify(ctx, 7, KindCancelled, "cancelled", nil)
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, n.ID, 8)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.MarkRead(ctx, uuid.New(), 7)
	assert.ErrorIs(t, err, ErrNotFound)

	changed, err := svc.MarkRead(ctx, n.ID, 7)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.MarkRead(ctx, n.ID, 7)
	require.NoError(t, err)
	assert.False(t, changed)

	list, err := svc.ListForUser(ctx, 7, false, 10)
	require.NoError(t, err)
	require.NotNil(t, list[0].ReadAt)
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Notify(ctx, 7, KindReminder, "reminder", nil)
		require.NoError(t, err)
	}
	_, err := svc.Notify(ctx, 8, KindReminder, "reminder", nil)
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	changed, err := svc.MarkAllRead(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)

	changed, err = svc.MarkAllRead(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)

	count, err = svc.UnreadCount(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHandle_MapsEventKinds(t *testing.T) {
	cases := map[events.Type]Kind{
		events.TypeRequested:   KindRequest,
		events.TypeCreated:     KindConfirmation,
		events.TypeAccepted:    KindAccepted,
		events.TypeRejected:    KindRejected,
		events.TypeCancelled:   KindCancelled,
		events.TypeRescheduled: KindRescheduled,
		events.TypeReminder:    KindReminder,
	}
	for evtType, want := range cases {
		got, ok := KindForEvent(evtType)
		assert.True(t, ok, evtType)
		assert.Equal(t, want, got, evtType)
		assert.True(t, got.Valid())
	}
	_, ok := KindForEvent(events.Type("appointment.archived"))
	assert.False(t, ok)
}

func TestHandle_StoresNotificationForRecipient(t *testing.T) {
	svc, _, _ := setupTestService(t)
	ctx := context.Background()
	apptID := uuid.New()

	err := svc.Handle(ctx, events.Event{
		ID:            uuid.New(),
		Type:          events.TypeAccepted,
		AppointmentID: apptID,
		RecipientID:   11,
		Message:       "Your appointment on Monday 01 July 2024 at 14:00 has been confirmed.",
	})
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, 11, false, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, KindAccepted, list[0].Kind)
	assert.Equal(t, apptID, *list[0].AppointmentID)

	require.NoError(t, svc.Handle(ctx, events.Event{Type: "appointment.archived", RecipientID: 11, Message: "x"}))
	assert.Error(t, svc.Handle(ctx, events.Event{Type: events.TypeAccepted, RecipientID: 11}))
}
