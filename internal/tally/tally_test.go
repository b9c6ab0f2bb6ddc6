package tally

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"schoolattendance/internal/attendance"
	"schoolattendance/internal/auth"
	"schoolattendance/internal/queue"
	"schoolattendance/internal/store"
)

func event(typ string, status attendance.Status, date string) attendance.Event {
	return attendance.Event{Type: typ, CheckInID: "c", StudentID: "s", Status: status, Date: date}
}

func TestMemoryFoldsLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	const day = "2024-01-01"

	for _, evt := range []attendance.Event{
		event(attendance.EventCheckInCreated, attendance.StatusPending, day),
		event(attendance.EventCheckInCreated, attendance.StatusPending, day),
		event(attendance.EventCheckInCreated, attendance.StatusPending, day),
		event(attendance.EventCheckInApproved, attendance.StatusApproved, day),
		event(attendance.EventCheckInRejected, attendance.StatusRejected, day),
		event(attendance.EventCheckInDeleted, attendance.StatusApproved, day),
		event(attendance.EventCheckInCreated, attendance.StatusPending, "2024-01-02"),
	} {
		require.NoError(t, m.Apply(ctx, evt))
	}

	got, err := m.Day(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, Counts{Date: day, Pending: 1, Approved: 0, Rejected: 1}, got)
	assert.EqualValues(t, 2, got.Total())

	other, err := m.Day(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.EqualValues(t, 1, other.Pending)

	empty, err := m.Day(ctx, "1999-12-31")
	require.NoError(t, err)
	assert.Zero(t, empty.Total())
}

func TestMemoryRejectsUnknownEvents(t *testing.T) {
	m := NewMemory()
	assert.Error(t, m.Apply(context.Background(), event("checkin.exploded", "", "2024-01-01")))
	assert.Error(t, m.Apply(context.Background(), event(attendance.EventCheckInDeleted, "weird", "2024-01-01")))
}

func TestConsumeFromQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(8)
	pub := attendance.NewQueuePublisher(q)
	require.NoError(t, pub.Publish(ctx, event(attendance.EventCheckInCreated, attendance.StatusPending, "2024-05-05")))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "checkin.created", Body: []byte(`not json`)}))
	require.NoError(t, pub.Publish(ctx, event(attendance.EventCheckInApproved, attendance.StatusApproved, "2024-05-05")))

	m := NewMemory()
	done := make(chan error, 1)
	go func() { done <- Consume(ctx, q, m, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	require.Eventually(t, func() bool {
		c, _ := m.Day(ctx, "2024-05-05")
		return c.Approved == 1
	}, time.Second, 10*time.Millisecond)

	c, err := m.Day(ctx, "2024-05-05")
	require.NoError(t, err)
	assert.Zero(t, c.Pending)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

// applying feeds events straight into a tally, standing in for queue plus consumer.
type applying struct{ t Tally }

func (a applying) Publish(ctx context.Context, evt attendance.Event) error { return a.t.Apply(ctx, evt) }

func newService(t *testing.T, db *store.DB, tl Tally) *attendance.Service {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) }
	return attendance.NewService(
		attendance.NewUserRepository(db.Client),
		attendance.NewCheckInRepository(db.Client),
		auth.NewBcryptHasher(bcrypt.MinCost),
		attendance.WithClock(clock),
		attendance.WithEvents(applying{t: tl}),
		attendance.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestRebuildAfterRestart(t *testing.T) {
	ctx := context.Background()
	db, err := store.NewDB(ctx, store.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	first := NewMemory()
	svc := newService(t, db, first)
	student, err := svc.CreateUser(ctx, attendance.NewUser{Name: "Sam", Email: "sam@school.test", Password: "pw", Role: attendance.RoleStudent})
	require.NoError(t, err)
	staff, err := svc.CreateUser(ctx, attendance.NewUser{Name: "Tess", Email: "tess@school.test", Password: "pw", Role: attendance.RoleTeacher})
	require.NoError(t, err)
	c, err := svc.CreateCheckIn(ctx, attendance.NewCheckIn{StudentID: student.ID})
	require.NoError(t, err)

	// a new process starts with an empty tally over the same database
	second := NewMemory()
	restarted := newService(t, db, second)
	days, err := Rebuild(ctx, second, restarted)
	require.NoError(t, err)
	assert.Equal(t, 1, days)

	got, err := second.Day(ctx, c.Date)
	require.NoError(t, err)
	assert.Equal(t, Counts{Date: c.Date, Pending: 1}, got)

	_, err = restarted.Approve(ctx, c.ID, nil, staff.ID)
	require.NoError(t, err)
	got, err = second.Day(ctx, c.Date)
	require.NoError(t, err)
	assert.Equal(t, Counts{Date: c.Date, Pending: 0, Approved: 1}, got)
}

func TestMemoryResetReplacesState(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Apply(ctx, event(attendance.EventCheckInCreated, attendance.StatusPending, "2024-01-01")))

	require.NoError(t, m.Reset(ctx, map[string]map[attendance.Status]int{
		"2024-01-02": {attendance.StatusApproved: 2, attendance.StatusRejected: 1},
	}))

	stale, err := m.Day(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Zero(t, stale.Total())
	fresh, err := m.Day(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, Counts{Date: "2024-01-02", Approved: 2, Rejected: 1}, fresh)
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisFoldsLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	r := NewRedis(client, "")
	const day = "2024-01-01"

	for _, evt := range []attendance.Event{
		event(attendance.EventCheckInCreated, attendance.StatusPending, day),
		event(attendance.EventCheckInCreated, attendance.StatusPending, day),
		event(attendance.EventCheckInApproved, attendance.StatusApproved, day),
		event(attendance.EventCheckInCreated, attendance.StatusPending, day),
		event(attendance.EventCheckInDeleted, attendance.StatusPending, day),
	} {
		require.NoError(t, r.Apply(ctx, evt))
	}
	assert.Error(t, r.Apply(ctx, event("checkin.exploded", "", day)))

	got, err := r.Day(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, Counts{Date: day, Pending: 1, Approved: 1}, got)
	assert.Equal(t, "1", mr.HGet("attendance:tally:"+day, "approved"))

	empty, err := r.Day(ctx, "1999-12-31")
	require.NoError(t, err)
	assert.Zero(t, empty.Total())
}

func TestRedisReset(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	r := NewRedis(client, "test:tally:")
	require.NoError(t, r.Apply(ctx, event(attendance.EventCheckInCreated, attendance.StatusPending, "2024-01-01")))
	require.NoError(t, r.Apply(ctx, event(attendance.EventCheckInCreated, attendance.StatusPending, "2024-01-01")))

	require.NoError(t, r.Reset(ctx, map[string]map[attendance.Status]int{
		"2024-01-01": {attendance.StatusRejected: 1},
	}))

	got, err := r.Day(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, Counts{Date: "2024-01-01", Rejected: 1}, got)
	assert.True(t, mr.Exists("test:tally:2024-01-01"))
}
