// Package engine implements the enrollment transaction: validate-and-commit
// for enroll and cancel, embodying I-CAP, I-CREDIT, I-CONFLICT and I-DUP.
// Structured the way the teacher's internal/service.JoinService wraps
// domain.JoinRepository — a thin struct over the Store port plus the
// concurrency registry and the notification outbox.
package engine

import (
	"github.com/coursehub/enrollment-service/internal/concurrency"
	"github.com/coursehub/enrollment-service/internal/store"
)

// Engine is the validate-and-commit pipeline for enroll/cancel.
type Engine struct {
	store      store.Store
	locks      *concurrency.Registry
	maxCredits int
}

func New(s store.Store, locks *concurrency.Registry, maxCredits int) *Engine {
	return &Engine{store: s, locks: locks, maxCredits: maxCredits}
}
