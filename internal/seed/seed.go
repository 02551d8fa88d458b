package seed

import (
	"context"
	"fmt"
	"log"

	"blogapi/internal/models"
	"blogapi/internal/repository"

	"gorm.io/gorm"
)

// Options configure the seeder.
type Options struct {
	ShouldClean bool
	// MaxDays bounds how far back post timestamps are spread.
	MaxDays int
	// FastHash uses the minimum bcrypt cost for seeded passwords.
	FastHash bool
	// DryRun builds users and posts without writing anything.
	DryRun bool
	// RandomSeed makes a run reproducible when non-zero.
	RandomSeed    int64
	FeaturedRatio float64
}

// Summary counts what a run created.
type Summary struct {
	Users     int
	Posts     int
	Tags      int
	Follows   int
	Reactions int
	Bookmarks int
}

// seedTables are cleared children first.
var seedTables = []string{
	"post_bookmarks",
	"post_reactions",
	"post_tags",
	"posts",
	"tags",
	"user_followings",
	"password_reset_codes",
	"verification_codes",
	"users",
}

// Seeder applies presets through the repositories so denormalized counters stay
// consistent with the rows they summarize.
type Seeder struct {
	db        *gorm.DB
	opts      Options
	factory   *Factory
	tx        repository.Transactor
	users     repository.UserRepository
	posts     repository.PostRepository
	tags      repository.TagRepository
	follows   repository.FollowRepository
	reactions repository.ReactionRepository
	bookmarks repository.BookmarkRepository
}

// NewSeeder wires a seeder to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{
		db:        db,
		opts:      opts,
		factory:   NewFactory(db, opts),
		tx:        repository.NewTransactor(db),
		users:     repository.NewUserRepository(db),
		posts:     repository.NewPostRepository(db),
		tags:      repository.NewTagRepository(db),
		follows:   repository.NewFollowRepository(db),
		reactions: repository.NewReactionRepository(db),
		bookmarks: repository.NewBookmarkRepository(db),
	}
}

// ClearAll removes every seeded row.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	if s.db.Dialector.Name() == "postgres" {
		sql := "TRUNCATE TABLE "
		for i, table := range seedTables {
			if i > 0 {
				sql += ", "
			}
			sql += table
		}
		return s.db.Exec(sql + " RESTART IDENTITY CASCADE").Error
	}
	for _, table := range seedTables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Run applies preset and reports what was created.
func (s *Seeder) Run(ctx context.Context, preset Preset) (*Summary, error) {
	if err := preset.Validate(); err != nil {
		return nil, err
	}
	if s.opts.ShouldClean && !s.opts.DryRun {
		if err := s.ClearAll(); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}
	s.factory.opts.FeaturedRatio = preset.FeaturedRatio

	log.Printf("🌱 Seeding preset %q: %d users, %d posts", preset.Name, preset.Users, preset.Posts)
	summary := &Summary{}

	users, err := s.seedUsers(preset.Users)
	if err != nil {
		return nil, err
	}
	summary.Users = len(users)
	log.Printf("✓ %d users created", len(users))

	posts, tagCount, err := s.seedPosts(ctx, users, preset)
	if err != nil {
		return nil, err
	}
	summary.Posts = len(posts)
	summary.Tags = tagCount
	log.Printf("✓ %d posts created", len(posts))

	if s.opts.DryRun {
		return summary, nil
	}

	if summary.Follows, err = s.seedFollows(ctx, users, preset.FollowsPerUser); err != nil {
		return nil, err
	}
	log.Printf("✓ %d follows created", summary.Follows)

	if summary.Reactions, err = s.seedReactions(ctx, users, posts, preset.ReactionsPerPost); err != nil {
		return nil, err
	}
	log.Printf("✓ %d reactions created", summary.Reactions)

	if summary.Bookmarks, err = s.seedBookmarks(ctx, users, posts, preset.BookmarksPerUser); err != nil {
		return nil, err
	}
	log.Printf("✓ %d bookmarks created", summary.Bookmarks)

	for _, u := range users {
		if _, err := s.users.RecountPosts(ctx, u.ID); err != nil {
			return nil, fmt.Errorf("recount posts for %s: %w", u.Username, err)
		}
	}

	log.Println("🎉 Database seeding completed successfully!")
	return summary, nil
}

func (s *Seeder) seedUsers(count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, user)
		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}
	if len(users) == 0 && count > 0 {
		return nil, fmt.Errorf("no users could be created")
	}
	return users, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []*models.User, preset Preset) ([]*models.Post, int, error) {
	posts := make([]*models.Post, 0, preset.Posts)
	tagIDs := make(map[uint]struct{})
	lo, hi := preset.tagRange()

	for i := 0; i < preset.Posts; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		post, err := s.factory.CreatePost(author)
		if err != nil {
			return nil, 0, fmt.Errorf("create post: %w", err)
		}
		posts = append(posts, post)

		names := s.factory.TagNames(preset.Tags, lo, hi)
		if len(names) == 0 || s.opts.DryRun {
			continue
		}
		tags, err := s.tags.Resolve(ctx, names)
		if err != nil {
			return nil, 0, fmt.Errorf("resolve tags: %w", err)
		}
		if err := s.posts.ReplaceTags(ctx, post, tags); err != nil {
			return nil, 0, fmt.Errorf("tag post: %w", err)
		}
		for _, t := range tags {
			tagIDs[t.ID] = struct{}{}
		}

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d posts...", i)
		}
	}
	return posts, len(tagIDs), nil
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User, perUser int) (int, error) {
	created := 0
	for i, u := range users {
		for _, j := range s.factory.Pick(len(users), perUser, i) {
			edge := &models.UserFollowing{UserID: u.ID, FollowingUserID: users[j].ID}
			if err := s.follows.Create(ctx, edge); err != nil {
				return created, fmt.Errorf("follow: %w", err)
			}
			created++
		}
	}
	return created, nil
}

// seedReactions writes reactions post by post and recomputes each post's counters
// inside the same transaction.
func (s *Seeder) seedReactions(ctx context.Context, users []*models.User, posts []*models.Post, perPost int) (int, error) {
	created := 0
	for _, p := range posts {
		picked := s.factory.Pick(len(users), perPost, -1)
		if len(picked) == 0 {
			continue
		}
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			for _, j := range picked {
				if err := s.reactions.Set(ctx, users[j].ID, p.ID, s.factory.Reaction()); err != nil {
					return err
				}
			}
			counts, err := s.reactions.Counts(ctx, p.ID)
			if err != nil {
				return err
			}
			return s.posts.SaveCounts(ctx, p.ID, counts)
		})
		if err != nil {
			return created, fmt.Errorf("react to post %s: %w", p.Slug, err)
		}
		created += len(picked)
	}
	return created, nil
}

func (s *Seeder) seedBookmarks(ctx context.Context, users []*models.User, posts []*models.Post, perUser int) (int, error) {
	created := 0
	for _, u := range users {
		for _, j := range s.factory.Pick(len(posts), perUser, -1) {
			p := posts[j]
			if p.AuthorID != nil && *p.AuthorID == u.ID {
				continue
			}
			if err := s.bookmarks.Add(ctx, u.ID, p.ID); err != nil {
				return created, fmt.Errorf("bookmark: %w", err)
			}
			created++
		}
	}
	return created, nil
}
