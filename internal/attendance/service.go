package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"schoolattendance/internal/metrics"
)

// UserStore is the persistence contract for users.
type UserStore interface {
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, u User) error
	Update(ctx context.Context, id string, patch UserPatch) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context) (map[Role]int, error)
}

// CheckInStore is the persistence contract for check-ins.
type CheckInStore interface {
	Get(ctx context.Context, id string) (*CheckIn, error)
	List(ctx context.Context, filter CheckInFilter) ([]CheckIn, error)
	ListByStudentAndDate(ctx context.Context, studentID string, day time.Time) ([]CheckIn, error)
	Create(ctx context.Context, c CheckIn) error
	UpdateStatus(ctx context.Context, id string, status Status, notes, approvedBy *string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	CountByDate(ctx context.Context) (map[string]map[Status]int, error)
}

// Hasher turns plaintext passwords into stored hashes and checks them.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Service enforces the attendance rules on top of the stores.
type Service struct {
	users    UserStore
	checkins CheckInStore
	hasher   Hasher
	events   EventPublisher
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
	log      *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithEvents publishes lifecycle events to p.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService wires a service.
func NewService(users UserStore, checkins CheckInStore, hasher Hasher, opts ...Option) *Service {
	s := &Service{
		users:    users,
		checkins: checkins,
		hasher:   hasher,
		events:   discardEvents{},
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns user and check-in counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return Stats{}, err
	}
	byStatus, err := s.checkins.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{UsersByRole: make(map[Role]int, len(Roles)), ByStatus: make(map[Status]int, len(Statuses))}
	for _, r := range Roles {
		st.UsersByRole[r] = byRole[r]
		st.TotalUsers += byRole[r]
	}
	for _, status := range Statuses {
		st.ByStatus[status] = byStatus[status]
		st.TotalCheckIns += byStatus[status]
	}
	return st, nil
}

// DailyCounts returns the stored check-in counts per date and status, the state the
// event-fed tally is rebuilt from.
func (s *Service) DailyCounts(ctx context.Context) (map[string]map[Status]int, error) {
	days, err := s.checkins.CountByDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("count check-ins by date: %w", err)
	}
	return days, nil
}

func (s *Service) publish(ctx context.Context, evt Event) {
	// the write is already committed; a lost event is corrected when the tally is rebuilt
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, evt); err != nil {
		metrics.EventsPublishFailed.Inc()
		s.log.Warn("publish event failed", "type", evt.Type, "checkin_id", evt.CheckInID, "err", err)
	}
}
