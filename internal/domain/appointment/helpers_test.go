package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"advisorbooking/internal/database"
	"advisorbooking/internal/events"
	"advisorbooking/internal/identity"
	"advisorbooking/internal/pkg/clock"
	"advisorbooking/internal/pkg/logging"

	"github.com/stretchr/testify/require"
)

const (
	advisorA int64 = 100
	advisorB int64 = 200
	clientC1 int64 = 1
	clientC2 int64 = 2
	stranger int64 = 999
)

var (
	asAdvisorA = identity.UserRef{ID: advisorA, Name: "Alice Advisor", Role: identity.RoleAdvisor}
	asAdvisorB = identity.UserRef{ID: advisorB, Name: "Bob Advisor", Role: identity.RoleAdvisor}
	asClient1  = identity.UserRef{ID: clientC1, Name: "Carol Client", Role: identity.RoleClient}
	asClient2  = identity.UserRef{ID: clientC2, Name: "Dan Client", Role: identity.RoleClient}
	asStranger = identity.UserRef{ID: stranger, Name: "Eve", Role: identity.RoleClient}
	asAdmin    = identity.UserRef{ID: 5000, Name: "Root", Role: identity.RoleAdmin}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

// recipients returns the recipient of every event published after the first n.
func (p *recordingPublisher) recipients(n int) []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []int64
	for _, evt := range p.events[n:] {
		ids = append(ids, evt.RecipientID)
	}
	return ids
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type testEnv struct {
	svc   *Service
	store *GormStore
	pub   *recordingPublisher
	now   time.Time
}

func (e *testEnv) at(d time.Duration) time.Time {
	return e.now.Add(d)
}

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.Connect(database.MemoryDSN("appointment_"+t.Name()), logging.Discard())
	require.NoError(t, err)
	store := NewGormStore(db)
	require.NoError(t, store.AutoMigrate())
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store
}

// newTestEnv pins "now" to 2024-06-01 08:00 UTC.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		store: newTestStore(t),
		pub:   &recordingPublisher{},
		now:   time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	base := []Option{
		WithClock(clock.Func(func() time.Time { return env.now })),
		WithLogger(logging.Discard()),
	}
	env.svc = NewService(env.store, env.pub, append(base, opts...)...)
	return env
}

func (e *testEnv) book(t *testing.T, advisorID, clientID int64, start time.Time, minutes int, byAdvisor bool) *Appointment {
	t.Helper()
	a, err := e.svc.Create(context.Background(), CreateInput{
		AdvisorID:          advisorID,
		ClientID:           clientID,
		Start:              start,
		DurationMinutes:    minutes,
		InitiatedByAdvisor: byAdvisor,
	})
	require.NoError(t, err)
	return a
}
