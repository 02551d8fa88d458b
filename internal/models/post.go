package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	// WordsPerMinute drives the reading time estimate.
	WordsPerMinute = 300
	// MaxSlugBaseLength bounds the title-derived part of a slug.
	MaxSlugBaseLength = 200

	maxSlugAttempts = 5
)

// slugSuffix produces the random part of a slug. Tests swap it to force collisions.
var slugSuffix = NewOpaqueID

// ErrSlugExhausted is returned when every generated slug candidate already exists.
var ErrSlugExhausted = errors.New("unable to generate a unique slug")

// Post is the central aggregate: authored content with sequencing links and engagement counters.
type Post struct {
	ID                   uint   `gorm:"primaryKey" json:"-"`
	Slug                 string `gorm:"size:300;uniqueIndex;not null" json:"slug"`
	Title                string `gorm:"size:255;not null" json:"title"`
	Content              string `gorm:"type:text;not null" json:"content"`
	Featured             bool   `gorm:"not null;default:false;index" json:"featured"`
	IsActive             bool   `gorm:"not null;default:true;index" json:"-"`
	EstimatedReadingTime int    `gorm:"not null;default:1" json:"estimated_reading_time"`
	LikesCount           int    `gorm:"not null;default:0" json:"likes_count"`
	DislikesCount        int    `gorm:"not null;default:0" json:"dislikes_count"`
	Score                int    `gorm:"not null;default:0;index" json:"score"`

	AuthorID       *uint `gorm:"index" json:"-"`
	Author         *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"-"`
	NextPostID     *uint `gorm:"index" json:"-"`
	NextPost       *Post `gorm:"foreignKey:NextPostID;constraint:OnDelete:SET NULL" json:"-"`
	PreviousPostID *uint `gorm:"index" json:"-"`
	PreviousPost   *Post `gorm:"foreignKey:PreviousPostID;constraint:OnDelete:SET NULL" json:"-"`
	Tags           []Tag `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"-"`

	// BookmarksCount is not persisted; computed at query time
	BookmarksCount int64 `gorm:"->;-:migration" json:"bookmarks_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// BeforeSave refreshes derived fields and re-checks the sequencing rules on every write.
func (p *Post) BeforeSave(tx *gorm.DB) error {
	p.EstimatedReadingTime = ReadingTime(p.Content)
	return p.ValidateSequence(tx.Session(&gorm.Session{NewDB: true}))
}

// BeforeCreate resets the engagement counters and assigns the slug.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	p.LikesCount = 0
	p.DislikesCount = 0
	p.Score = 0
	p.IsActive = true
	if p.Slug != "" {
		return nil
	}
	return p.assignSlug(tx.Session(&gorm.Session{NewDB: true}))
}

func (p *Post) assignSlug(db *gorm.DB) error {
	base := Slugify(p.Title)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate := slugSuffix()
		if base != "" {
			candidate = base + "-" + candidate
		}
		var taken int64
		if err := db.Model(&Post{}).Where("slug = ?", candidate).Count(&taken).Error; err != nil {
			return err
		}
		if taken == 0 {
			p.Slug = candidate
			return nil
		}
	}
	return ErrSlugExhausted
}

// ValidateSequence enforces the nextpost/previouspost rules against the stored posts.
func (p *Post) ValidateSequence(db *gorm.DB) error {
	if p.NextPostID != nil && p.PreviousPostID != nil && *p.NextPostID == *p.PreviousPostID {
		return NewFieldValidationError("nextpost", "Next post and previous post can not be the same post.")
	}
	if p.ID != 0 {
		if p.NextPostID != nil && *p.NextPostID == p.ID {
			return NewFieldValidationError("nextpost", "A post can not be its own next post.")
		}
		if p.PreviousPostID != nil && *p.PreviousPostID == p.ID {
			return NewFieldValidationError("previouspost", "A post can not be its own previous post.")
		}
	}
	if err := p.checkLinkedAuthor(db, "nextpost", p.NextPostID); err != nil {
		return err
	}
	return p.checkLinkedAuthor(db, "previouspost", p.PreviousPostID)
}

func (p *Post) checkLinkedAuthor(db *gorm.DB, field string, linkedID *uint) error {
	if linkedID == nil {
		return nil
	}
	var linked Post
	if err := db.Select("id", "author_id").First(&linked, *linkedID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewFieldValidationError(field, fmt.Sprintf("The %s does not exist.", field))
		}
		return err
	}
	if p.AuthorID == nil || linked.AuthorID == nil || *p.AuthorID != *linked.AuthorID {
		return NewFieldValidationError(field, fmt.Sprintf("The %s must be written by the same author.", field))
	}
	return nil
}

// ReadingTime estimates minutes to read content, never less than one.
func ReadingTime(content string) int {
	minutes := len(strings.Fields(content)) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Slugify lowercases s and joins its ASCII letter and digit runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if len(out) > MaxSlugBaseLength {
		out = strings.TrimRight(out[:MaxSlugBaseLength], "-")
	}
	return out
}

// PostView is the rendered shape of a post.
type PostView struct {
	Slug                 string    `json:"slug"`
	Title                string    `json:"title"`
	Content              string    `json:"content"`
	Featured             bool      `json:"featured"`
	EstimatedReadingTime int       `json:"estimated_reading_time"`
	LikesCount           int       `json:"likes_count"`
	DislikesCount        int       `json:"dislikes_count"`
	Score                int       `json:"score"`
	BookmarksCount       int64     `json:"bookmarks_count"`
	Author               *UserRef  `json:"author"`
	NextPost             string    `json:"nextpost,omitempty"`
	PreviousPost         string    `json:"previouspost,omitempty"`
	Tags                 []string  `json:"tags"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// View renders p using whatever relations were preloaded.
func (p *Post) View() PostView {
	v := PostView{
		Slug:                 p.Slug,
		Title:                p.Title,
		Content:              p.Content,
		Featured:             p.Featured,
		EstimatedReadingTime: p.EstimatedReadingTime,
		LikesCount:           p.LikesCount,
		DislikesCount:        p.DislikesCount,
		Score:                p.Score,
		BookmarksCount:       p.BookmarksCount,
		Author:               p.Author.Ref(),
		Tags:                 make([]string, 0, len(p.Tags)),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.NextPost != nil {
		v.NextPost = p.NextPost.Slug
	}
	if p.PreviousPost != nil {
		v.PreviousPost = p.PreviousPost.Slug
	}
	for _, t := range p.Tags {
		v.Tags = append(v.Tags, t.Name)
	}
	return v
}

// Views renders a slice of posts.
func Views(posts []*Post) []PostView {
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.View())
	}
	return out
}
