// Package rest implements the HTTP adapter: router, middleware chain and
// handlers over the engine and query service, following the teacher's
// transport/rest package file-for-file (router.go, handlers split by
// resource, middleware.go, response/response.go).
package rest

import (
	"context"

	"github.com/coursehub/enrollment-service/internal/domain"
	"github.com/coursehub/enrollment-service/internal/engine"
	"github.com/coursehub/enrollment-service/internal/query"
)

// Pinger is satisfied by the connection pool the health handler checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	engine *engine.Engine
	query  *query.Service
	db     Pinger
	cache  domain.CacheRepository
}

func NewHandler(e *engine.Engine, q *query.Service, db Pinger, c domain.CacheRepository) *Handler {
	return &Handler{engine: e, query: q, db: db, cache: c}
}
