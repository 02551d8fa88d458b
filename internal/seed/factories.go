// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"blogapi/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password given to every seeded account.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// password hash shared by every user of one run
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	f.hash = string(hashed)
	return f.hash, nil
}

// createdAt spreads timestamps over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// BuildUser constructs an active user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	username := strings.ToLower(gofakeit.Username()) + fmt.Sprintf("%d", gofakeit.Number(100, 999))
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Name:     gofakeit.Name(),
		Password: hash,
		IsActive: true,
	}
	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post for user without persisting it. Titles always carry
// enough words and content enough characters to pass post validation.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(gofakeit.Sentence(8+f.rng.Intn(6)), ".")
	post := &models.Post{
		Title:    title,
		Content:  gofakeit.Paragraph(2+f.rng.Intn(4), 4, 14, "\n\n"),
		AuthorID: &user.ID,
	}
	post.CreatedAt = f.createdAt()
	if f.opts.FeaturedRatio > 0 && f.rng.Float64() < f.opts.FeaturedRatio {
		post.Featured = true
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample `models.Post` for the given user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)

	if f.opts.DryRun {
		f.nextID++
		post.ID = f.nextID
		log.Printf("[dry-run] CreatePost: user=%d title=%q", user.ID, post.Title)
		return post, nil
	}

	if err := f.db.Omit("Tags", "Author", "NextPost", "PreviousPost").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// TagNames returns between min and max distinct names drawn from pool.
func (f *Factory) TagNames(pool []string, min, max int) []string {
	if len(pool) == 0 || max <= 0 {
		return nil
	}
	if max > len(pool) {
		max = len(pool)
	}
	if min > max {
		min = max
	}
	n := min
	if max > min {
		n += f.rng.Intn(max - min + 1)
	}
	picked := make([]string, 0, n)
	for _, i := range f.rng.Perm(len(pool))[:n] {
		picked = append(picked, pool[i])
	}
	return picked
}

// Pick returns up to n distinct indexes below size, skipping skip.
func (f *Factory) Pick(size, n, skip int) []int {
	out := make([]int, 0, n)
	for _, i := range f.rng.Perm(size) {
		if len(out) == n {
			break
		}
		if i == skip {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Reaction draws a like or a dislike, weighted towards likes.
func (f *Factory) Reaction() models.ReactionValue {
	if f.rng.Float64() < 0.75 {
		return models.ReactionLike
	}
	return models.ReactionDislike
}
