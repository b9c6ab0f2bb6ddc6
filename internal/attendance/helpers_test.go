package attendance

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"schoolattendance/internal/auth"
	"schoolattendance/internal/store"
)

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordingEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEvents) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingEvents) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc      *Service
	users    *UserRepository
	checkins *CheckInRepository
	clock    *fixedClock
	events   *recordingEvents
}

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.NewDB(context.Background(), store.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := &fixedClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	events := &recordingEvents{}

	var mu sync.Mutex
	seq := 0
	nextID := func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}

	users := NewUserRepository(db.Client).WithClock(clock.Now)
	checkins := NewCheckInRepository(db.Client).WithClock(clock.Now)
	svc := NewService(users, checkins, auth.NewBcryptHasher(bcrypt.MinCost),
		WithClock(clock.Now),
		WithIDGenerator(nextID),
		WithEvents(events),
	)
	return &fixture{svc: svc, users: users, checkins: checkins, clock: clock, events: events}
}

func (f *fixture) mustUser(t *testing.T, name, email string, role Role) User {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), NewUser{Name: name, Email: email, Password: "secret", Role: role})
	require.NoError(t, err)
	return u
}

func ptr[T any](v T) *T { return &v }
