// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var base atomic.Pointer[slog.Logger]

func init() {
	base.Store(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

// SetLogger replaces the logger behind repository, websocket and async job lines.
// The request-aware application logger is installed here at startup.
func SetLogger(l *slog.Logger) {
	if l != nil {
		base.Store(l)
	}
}

func logger() *slog.Logger {
	return base.Load()
}

func attrsOf(fields map[string]interface{}, attrs ...any) []any {
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// RepoLogger writes one line per repository write, tagged with its table.
type RepoLogger struct {
	table string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) write(ctx context.Context, op string, fields map[string]interface{}) {
	logger().DebugContext(ctx, "repository "+op,
		attrsOf(fields, slog.String("table", l.table), slog.String("operation", op))...)
}

// LogCreate logs an insert.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "create", fields)
}

// LogUpdate logs an update.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "update", fields)
}

// LogDelete logs a delete or soft delete.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "delete", fields)
}

// LogError logs a failed statement.
func (l *RepoLogger) LogError(ctx context.Context, err error, op string) {
	logger().ErrorContext(ctx, "repository error",
		slog.String("table", l.table),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// WSLogger logs websocket lifecycle events of one hub.
type WSLogger struct {
	hub string
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hub string) *WSLogger {
	return &WSLogger{hub: hub}
}

// LogConnect logs a registered connection.
func (l *WSLogger) LogConnect(ctx context.Context, userID uint) {
	logger().InfoContext(ctx, "websocket connected", slog.String("hub", l.hub), slog.Uint64("user_id", uint64(userID)))
}

// LogDisconnect logs an unregistered connection.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, reason string) {
	logger().InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hub), slog.Uint64("user_id", uint64(userID)), slog.String("reason", reason))
}

// LogError logs a failed socket operation.
func (l *WSLogger) LogError(ctx context.Context, userID uint, err error, eventType string) {
	logger().ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hub),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogAsyncOperationStart logs the start of a post-commit job.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	logger().DebugContext(ctx, "async operation started", attrsOf(fields, slog.String("operation", operation))...)
}

// LogAsyncOperationEnd logs a finished post-commit job.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	logger().InfoContext(ctx, "async operation completed", attrsOf(fields, slog.String("operation", operation))...)
}

// LogAsyncOperationError logs a failed post-commit job.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	logger().ErrorContext(ctx, "async operation failed",
		attrsOf(fields, slog.String("operation", operation), slog.String("error", err.Error()))...)
}
