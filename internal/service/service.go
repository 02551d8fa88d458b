// Package service implements the blog's business rules on top of the repositories.
package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"blogapi/internal/models"
	"blogapi/internal/notifications"
	"blogapi/internal/observability"
	"blogapi/internal/repository"
)

// AfterCommit schedules a side effect that may only run once the surrounding
// transaction has committed. Failures are logged, never returned.
type AfterCommit func(ctx context.Context, operation string, fn func(ctx context.Context) error)

// RunAsync is the production AfterCommit: fn runs on its own goroutine with a
// context that outlives the request.
func RunAsync(ctx context.Context, operation string, fn func(ctx context.Context) error) {
	bg := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				observability.LogAsyncOperationError(bg, operation, fmt.Errorf("panic: %v", r),
					map[string]interface{}{"stack": string(debug.Stack())})
			}
		}()
		runLogged(bg, operation, fn)
	}()
}

// RunInline runs fn before returning. Tests use it to observe side effects deterministically.
func RunInline(ctx context.Context, operation string, fn func(ctx context.Context) error) {
	runLogged(ctx, operation, fn)
}

func runLogged(ctx context.Context, operation string, fn func(ctx context.Context) error) {
	start := time.Now()
	observability.LogAsyncOperationStart(ctx, operation, nil)
	if err := fn(ctx); err != nil {
		observability.LogAsyncOperationError(ctx, operation, err, nil)
		return
	}
	observability.LogAsyncOperationEnd(ctx, operation, map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// Notifier pushes realtime events to a user.
type Notifier interface {
	Notify(ctx context.Context, userID uint, event notifications.Event) error
}

func notify(ctx context.Context, n Notifier, userID uint, event notifications.Event) error {
	if n == nil {
		return nil
	}
	return n.Notify(ctx, userID, event)
}

// activeActor loads the acting user. Unknown and deactivated accounts are unauthenticated.
func activeActor(ctx context.Context, users repository.UserRepository, actorID uint) (*models.User, error) {
	if actorID == 0 {
		return nil, errNotAuthenticated
	}
	user, err := users.GetByID(ctx, actorID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, errNotAuthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errNotAuthenticated
	}
	return user, nil
}

var errNotAuthenticated = models.NewUnauthorizedError("Authentication credentials were not provided.")

func refs(users []models.User) []*models.UserRef {
	out := make([]*models.UserRef, 0, len(users))
	for i := range users {
		out = append(out, users[i].Ref())
	}
	return out
}
