package attendance

import (
	"time"
)

// Role is the fixed identity class of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Roles lists every accepted role.
var Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

// Valid reports whether r is one of the three accepted roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Status is the disposition of a check-in.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every accepted status.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// Valid reports whether s is one of the three accepted statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// User is an account of the system. PasswordHash never leaves the process.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

func (u *User) normalize() {
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
}

// UserPatch carries the fields to merge onto an existing user; nil fields are left alone.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
}

// CheckIn is a student's presence record.
type CheckIn struct {
	ID          string     `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"studentId"`
	StudentName string     `db:"student_name" json:"studentName"`
	Timestamp   time.Time  `db:"timestamp" json:"timestamp"`
	Date        string     `db:"check_in_date" json:"date"`
	Status      Status     `db:"status" json:"status"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	ApprovedBy  *string    `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approvedAt"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

func (c *CheckIn) normalize() {
	c.Timestamp = c.Timestamp.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if c.ApprovedAt != nil {
		at := c.ApprovedAt.UTC()
		c.ApprovedAt = &at
	}
}

// CheckInFilter narrows check-in listings. Empty fields match everything.
type CheckInFilter struct {
	Status    Status
	StudentID string
}

// Stats aggregates counts for dashboards.
type Stats struct {
	TotalUsers    int            `json:"totalUsers"`
	UsersByRole   map[Role]int   `json:"usersByRole"`
	TotalCheckIns int            `json:"totalCheckIns"`
	ByStatus      map[Status]int `json:"checkInsByStatus"`
}

// DateKey returns the calendar date of t in UTC, the unit of the one-per-day rule.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// stamp normalises timestamps before they are written so both drivers round-trip them exactly.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
