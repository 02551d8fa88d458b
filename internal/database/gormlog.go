package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// queryLogger sends GORM output to slog so SQL lines carry the request_id of the caller.
type queryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
}

func newQueryLogger(l *slog.Logger) *queryLogger {
	return &queryLogger{log: l, level: logger.Warn}
}

func (q *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *queryLogger) Info(ctx context.Context, msg string, data ...any) {
	q.printf(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (q *queryLogger) Warn(ctx context.Context, msg string, data ...any) {
	q.printf(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (q *queryLogger) Error(ctx context.Context, msg string, data ...any) {
	q.printf(ctx, logger.Error, slog.LevelError, msg, data)
}

func (q *queryLogger) printf(ctx context.Context, min logger.LogLevel, lvl slog.Level, msg string, data []any) {
	if q.level >= min {
		q.log.Log(ctx, lvl, fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed queries, slow queries and, at Info, every query.
// Not-found lookups are expected and never logged as errors.
func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl slog.Level
		msg string
	)
	switch {
	case err != nil && q.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		lvl, msg = slog.LevelError, "query failed"
	case elapsed > slowQuery && q.level >= logger.Warn:
		lvl, msg = slog.LevelWarn, "slow query"
	case q.level >= logger.Info:
		lvl, msg = slog.LevelInfo, "query"
	default:
		return
	}

	sql, rows := fc()
	attrs := []any{"sql", sql, "rows", rows, "elapsed", elapsed}
	if lvl == slog.LevelError {
		attrs = append(attrs, "error", err.Error())
	}
	q.log.Log(ctx, lvl, msg, attrs...)
}
