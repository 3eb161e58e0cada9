package domain

import (
	"context"
	"errors"
	"time"
)

// CacheRepository is the redis-backed port the query service and HTTP
// layer use outside the engine's own transaction: a read-through cache
// for a course's open-seat count and a fixed-window rate limiter.
// internal/cache.Cache is the only implementation; tests substitute a
// fake the way the teacher's handler tests substitute one for its own
// CacheRepository.
type CacheRepository interface {
	GetCourseOpen(ctx context.Context, courseID int64) (int, error)
	SetCourseOpen(ctx context.Context, courseID int64, open int) error
	InvalidateCourseOpen(ctx context.Context, courseID int64) error

	AllowRequest(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// ErrCacheMiss distinguishes "key not present" from every other cache
// error so callers fall back to the database instead of failing the
// request.
var ErrCacheMiss = errors.New("cache miss")

// Sentinel errors returned by the engine and store. The HTTP adapter maps
// each to a status code via errors.Is; see handleErr in transport/rest/errors.go.
var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	ErrAlreadyEnrolled  = errors.New("already enrolled")
	ErrCreditExceeded   = errors.New("credit ceiling exceeded")
	ErrTimeConflict     = errors.New("schedule conflict")
	ErrCapacityExceeded = errors.New("course capacity exceeded")

	ErrDatabase = errors.New("database error")
	ErrDeadlock = errors.New("transient lock timeout")
	ErrInternal = errors.New("internal error")
)

// CreditExceededDetail carries the three numbers the client needs to
// understand a CREDIT_EXCEEDED rejection.
type CreditExceededDetail struct {
	CurrentCredits int
	AddingCredits  int
	MaxCredits     int
}

// CapacityExceededDetail carries the course's capacity/enrolled snapshot.
type CapacityExceededDetail struct {
	Capacity int
	Enrolled int
}

// ConflictingCourse describes one course whose schedule overlaps the
// requested one, for the TIME_CONFLICT error body.
type ConflictingCourse struct {
	CourseID   int64  `json:"id"`
	Name       string `json:"name"`
	Schedule   string `json:"schedule"`
}

// TimeConflictDetail lists every enrolled course that conflicts.
type TimeConflictDetail struct {
	Conflicting []ConflictingCourse
}

// DomainError wraps a sentinel with the structured detail clients need.
// errors.Is(err, ErrCreditExceeded) etc. still works because Unwrap exposes
// the sentinel.
type DomainError struct {
	Err    error
	Credit *CreditExceededDetail
	Cap    *CapacityExceededDetail
	Time   *TimeConflictDetail
}

func (e *DomainError) Error() string { return e.Err.Error() }
func (e *DomainError) Unwrap() error { return e.Err }

func NewCreditExceeded(current, adding, max int) error {
	return &DomainError{Err: ErrCreditExceeded, Credit: &CreditExceededDetail{
		CurrentCredits: current, AddingCredits: adding, MaxCredits: max,
	}}
}

func NewCapacityExceeded(capacity, enrolled int) error {
	return &DomainError{Err: ErrCapacityExceeded, Cap: &CapacityExceededDetail{
		Capacity: capacity, Enrolled: enrolled,
	}}
}

func NewTimeConflict(conflicts []ConflictingCourse) error {
	return &DomainError{Err: ErrTimeConflict, Time: &TimeConflictDetail{Conflicting: conflicts}}
}
