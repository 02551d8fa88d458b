package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"blogapi/internal/featureflags"
	"blogapi/internal/mail"
	"blogapi/internal/models"
	"blogapi/internal/notifications"
	"blogapi/internal/repository"
	"blogapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type sentEvent struct {
	userID uint
	event  notifications.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint, event notifications.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{userID: userID, event: event})
	return nil
}

func (n *recordingNotifier) sent() []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEvent(nil), n.events...)
}

type fixture struct {
	db       *gorm.DB
	mailer   *mail.MemoryMailer
	notifier *recordingNotifier
	clock    time.Time

	identity  *IdentityService
	follows   *FollowService
	tags      *TagService
	posts     *PostService
	reactions *ReactionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	f := &fixture{
		db:       db,
		mailer:   mail.NewMemoryMailer(),
		notifier: &recordingNotifier{},
		clock:    time.Now(),
	}

	tx := repository.NewTransactor(db)
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)

	f.identity = f.newIdentity(0)
	f.follows = NewFollowService(tx, users, follows, posts, f.notifier, RunInline)
	f.tags = NewTagService(repository.NewTagRepository(db), posts)
	f.posts = NewPostService(PostDeps{
		Tx:          tx,
		Posts:       posts,
		Users:       users,
		Bookmarks:   repository.NewBookmarkRepository(db),
		Tags:        f.tags,
		Flags:       featureflags.NewManager(""),
		Notifier:    f.notifier,
		AfterCommit: RunInline,
	})
	f.reactions = NewReactionService(tx, users, posts, repository.NewReactionRepository(db), f.notifier, RunInline)
	return f
}

// newIdentity builds an identity service on the fixture's database and clock.
func (f *fixture) newIdentity(codeTTL time.Duration) *IdentityService {
	return NewIdentityService(IdentityDeps{
		Tx:                repository.NewTransactor(f.db),
		Users:             repository.NewUserRepository(f.db),
		VerificationCodes: repository.NewVerificationCodeRepository(f.db),
		ResetCodes:        repository.NewPasswordResetCodeRepository(f.db),
		Follows:           repository.NewFollowRepository(f.db),
		Mailer:            f.mailer,
		FrontendURL:       "http://localhost:5173",
		CodeTTL:           codeTTL,
		BcryptCost:        bcrypt.MinCost,
		AfterCommit:       RunInline,
		Now:               func() time.Time { return f.clock },
	})
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	return testutil.CreateUser(t, f.db, username)
}

func (f *fixture) post(t *testing.T, author *models.User, title string) *models.Post {
	t.Helper()
	return testutil.CreatePost(t, f.db, author, title)
}

func (f *fixture) reload(t *testing.T, dest any, id uint) {
	t.Helper()
	require.NoError(t, f.db.First(dest, id).Error)
}

func assertAppError(t *testing.T, err error, code, field string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
	if field != "" {
		assert.Equal(t, field, appErr.Field)
	}
}

func ptr[T any](v T) *T { return &v }
