// Package logging configures the process-wide zerolog logger, grounded on
// the teacher's internal/logger package: a package-level Logger, an Init
// that takes the LOG_LEVEL/LOG_FORMAT values config.Load reads, and a WithCtx
// helper that tags a line with the request's id when one is present.
package logging

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	reqctx "github.com/coursehub/enrollment-service/internal/transport/rest/reqctx"
)

var Logger zerolog.Logger

func Init(levelStr, format string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if format == "json" {
		Logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger().Level(level)
}

// WithCtx tags the base logger with the request id carried on ctx, if any.
func WithCtx(ctx context.Context) *zerolog.Logger {
	if rid := reqctx.RequestID(ctx); rid != "" {
		l := Logger.With().Str("request_id", rid).Logger()
		return &l
	}
	return &Logger
}
