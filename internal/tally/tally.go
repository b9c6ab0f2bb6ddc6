// Package tally keeps per-day check-in counts derived from lifecycle events.
package tally

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"schoolattendance/internal/attendance"
)

// Counts is the number of check-ins per status on one date.
type Counts struct {
	Date     string `json:"date"`
	Pending  int64  `json:"pending"`
	Approved int64  `json:"approved"`
	Rejected int64  `json:"rejected"`
}

// Total returns the number of check-ins on the date.
func (c Counts) Total() int64 { return c.Pending + c.Approved + c.Rejected }

// Tally folds events into daily counts.
type Tally interface {
	Apply(ctx context.Context, evt attendance.Event) error
	Day(ctx context.Context, date string) (Counts, error)
	// Reset overwrites the counts of every date in days.
	Reset(ctx context.Context, days map[string]map[attendance.Status]int) error
}

// Snapshotter yields the stored per-date counts, normally *attendance.Service.
type Snapshotter interface {
	DailyCounts(ctx context.Context) (map[string]map[attendance.Status]int, error)
}

// Rebuild resets t from the database so that counts survive restarts. It must run
// before any event for the current state is consumed.
func Rebuild(ctx context.Context, t Tally, src Snapshotter) (int, error) {
	days, err := src.DailyCounts(ctx)
	if err != nil {
		return 0, err
	}
	if err := t.Reset(ctx, days); err != nil {
		return 0, fmt.Errorf("reset tally: %w", err)
	}
	return len(days), nil
}

// deltas returns the per-status increments an event causes.
func deltas(evt attendance.Event) (map[attendance.Status]int64, error) {
	switch evt.Type {
	case attendance.EventCheckInCreated:
		return map[attendance.Status]int64{attendance.StatusPending: 1}, nil
	case attendance.EventCheckInApproved:
		return map[attendance.Status]int64{attendance.StatusPending: -1, attendance.StatusApproved: 1}, nil
	case attendance.EventCheckInRejected:
		return map[attendance.Status]int64{attendance.StatusPending: -1, attendance.StatusRejected: 1}, nil
	case attendance.EventCheckInDeleted:
		if !evt.Status.Valid() {
			return nil, fmt.Errorf("delete event %s has invalid status %q", evt.CheckInID, evt.Status)
		}
		return map[attendance.Status]int64{evt.Status: -1}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", evt.Type)
}

// Memory is a process-local tally.
type Memory struct {
	mu   sync.RWMutex
	days map[string]map[attendance.Status]int64
}

// NewMemory creates an empty tally.
func NewMemory() *Memory {
	return &Memory{days: make(map[string]map[attendance.Status]int64)}
}

func (m *Memory) Apply(_ context.Context, evt attendance.Event) error {
	d, err := deltas(evt)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	day, ok := m.days[evt.Date]
	if !ok {
		day = make(map[attendance.Status]int64, len(attendance.Statuses))
		m.days[evt.Date] = day
	}
	for status, n := range d {
		day[status] += n
	}
	return nil
}

// Reset drops everything held and loads days.
func (m *Memory) Reset(_ context.Context, days map[string]map[attendance.Status]int) error {
	fresh := make(map[string]map[attendance.Status]int64, len(days))
	for date, counts := range days {
		day := make(map[attendance.Status]int64, len(counts))
		for status, n := range counts {
			day[status] = int64(n)
		}
		fresh[date] = day
	}
	m.mu.Lock()
	m.days = fresh
	m.mu.Unlock()
	return nil
}

func (m *Memory) Day(_ context.Context, date string) (Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	day := m.days[date]
	return Counts{
		Date:     date,
		Pending:  day[attendance.StatusPending],
		Approved: day[attendance.StatusApproved],
		Rejected: day[attendance.StatusRejected],
	}, nil
}

// Redis keeps one hash per date, shared by every API and worker process.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a tally storing hashes under prefix+date.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "attendance:tally:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(date string) string { return r.prefix + date }

func (r *Redis) Apply(ctx context.Context, evt attendance.Event) error {
	d, err := deltas(evt)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for status, n := range d {
			pipe.HIncrBy(ctx, r.key(evt.Date), string(status), n)
		}
		return nil
	})
	return err
}

// Reset replaces the hash of each date in days. Dates absent from days are left alone.
func (r *Redis) Reset(ctx context.Context, days map[string]map[attendance.Status]int) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for date, counts := range days {
			fields := make(map[string]any, len(attendance.Statuses))
			for _, status := range attendance.Statuses {
				fields[string(status)] = counts[status]
			}
			pipe.Del(ctx, r.key(date))
			pipe.HSet(ctx, r.key(date), fields)
		}
		return nil
	})
	return err
}

func (r *Redis) Day(ctx context.Context, date string) (Counts, error) {
	var raw struct {
		Pending  int64 `redis:"pending"`
		Approved int64 `redis:"approved"`
		Rejected int64 `redis:"rejected"`
	}
	if err := r.client.HGetAll(ctx, r.key(date)).Scan(&raw); err != nil {
		return Counts{}, err
	}
	return Counts{Date: date, Pending: raw.Pending, Approved: raw.Approved, Rejected: raw.Rejected}, nil
}
