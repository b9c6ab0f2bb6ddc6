package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schoolattendance/internal/metrics"
)

// NewCheckIn is the input for CreateCheckIn. A zero Timestamp means now.
type NewCheckIn struct {
	StudentID string
	Timestamp time.Time
	Notes     *string
}

// CreateCheckIn records a pending check-in for a student, at most one per calendar date.
func (s *Service) CreateCheckIn(ctx context.Context, in NewCheckIn) (CheckIn, error) {
	studentID := strings.TrimSpace(in.StudentID)
	if studentID == "" {
		return CheckIn{}, invalid("studentId", "is required")
	}
	student, err := s.users.Get(ctx, studentID)
	if err != nil {
		return CheckIn{}, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return CheckIn{}, invalid("studentId", "does not match any user")
	}
	if student.Role != RoleStudent {
		return CheckIn{}, invalid("studentId", "user is not a student")
	}

	now := stamp(s.now())
	ts := now
	if !in.Timestamp.IsZero() {
		ts = stamp(in.Timestamp)
	}

	sameDay, err := s.checkins.ListByStudentAndDate(ctx, studentID, ts)
	if err != nil {
		return CheckIn{}, fmt.Errorf("list same-day check-ins: %w", err)
	}
	if len(sameDay) > 0 {
		return CheckIn{}, ErrDuplicateCheckIn
	}

	c := CheckIn{
		ID:          s.newID(),
		StudentID:   student.ID,
		StudentName: student.Name,
		Timestamp:   ts,
		Date:        DateKey(ts),
		Status:      StatusPending,
		Notes:       trimNotes(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.checkins.Create(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return CheckIn{}, ErrDuplicateCheckIn
		}
		return CheckIn{}, fmt.Errorf("create check-in: %w", err)
	}
	metrics.CheckInsCreated.Inc()
	s.publish(ctx, eventFor(EventCheckInCreated, c, now))
	return c, nil
}

// GetCheckIn returns a check-in or ErrNotFound.
func (s *Service) GetCheckIn(ctx context.Context, id string) (CheckIn, error) {
	c, err := s.checkins.Get(ctx, id)
	if err != nil {
		return CheckIn{}, fmt.Errorf("get check-in: %w", err)
	}
	if c == nil {
		return CheckIn{}, ErrNotFound
	}
	return *c, nil
}

// ListCheckIns returns check-ins matching filter, newest first.
func (s *Service) ListCheckIns(ctx context.Context, filter CheckInFilter) ([]CheckIn, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("status", "must be one of pending, approved, rejected")
	}
	list, err := s.checkins.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return list, nil
}

// DeleteCheckIn removes a check-in and returns it as it was.
func (s *Service) DeleteCheckIn(ctx context.Context, id string) (CheckIn, error) {
	c, err := s.GetCheckIn(ctx, id)
	if err != nil {
		return CheckIn{}, err
	}
	ok, err := s.checkins.Delete(ctx, id)
	if err != nil {
		return CheckIn{}, fmt.Errorf("delete check-in: %w", err)
	}
	if !ok {
		return CheckIn{}, ErrNotFound
	}
	s.publish(ctx, eventFor(EventCheckInDeleted, c, stamp(s.now())))
	return c, nil
}

// Approve marks a pending check-in approved by actorID.
func (s *Service) Approve(ctx context.Context, id string, notes *string, actorID string) (CheckIn, error) {
	return s.Transition(ctx, id, StatusApproved, notes, actorID)
}

// Reject marks a pending check-in rejected by actorID.
func (s *Service) Reject(ctx context.Context, id string, notes *string, actorID string) (CheckIn, error) {
	return s.Transition(ctx, id, StatusRejected, notes, actorID)
}

// Transition moves a pending check-in to approved or rejected. It is the only path that
// writes a status. The store applies the update only while the row is still pending, so
// of two concurrent transitions exactly one succeeds and the other gets ErrAlreadyProcessed.
func (s *Service) Transition(ctx context.Context, id string, target Status, notes *string, actorID string) (CheckIn, error) {
	if target != StatusApproved && target != StatusRejected {
		return CheckIn{}, invalid("status", "must be approved or rejected")
	}
	if strings.TrimSpace(id) == "" {
		return CheckIn{}, invalid("checkInId", "is required")
	}

	var approvedBy *string
	if actorID != "" {
		approvedBy = &actorID
	}
	ok, err := s.checkins.UpdateStatus(ctx, id, target, trimNotes(notes), approvedBy)
	if err != nil {
		metrics.CheckInTransitions.WithLabelValues(string(target), "error").Inc()
		return CheckIn{}, fmt.Errorf("update check-in status: %w", err)
	}
	if !ok {
		current, err := s.checkins.Get(ctx, id)
		if err != nil {
			return CheckIn{}, fmt.Errorf("get check-in: %w", err)
		}
		if current == nil {
			return CheckIn{}, ErrNotFound
		}
		metrics.CheckInTransitions.WithLabelValues(string(target), "refused").Inc()
		return CheckIn{}, ErrAlreadyProcessed
	}
	metrics.CheckInTransitions.WithLabelValues(string(target), "applied").Inc()

	c, err := s.GetCheckIn(ctx, id)
	if err != nil {
		return CheckIn{}, err
	}
	typ := EventCheckInApproved
	if target == StatusRejected {
		typ = EventCheckInRejected
	}
	s.publish(ctx, eventFor(typ, c, stamp(s.now())))
	return c, nil
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	n := strings.TrimSpace(*notes)
	if n == "" {
		return nil
	}
	return &n
}
