package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinTitleWords is the shortest accepted post title, counted in words.
	MinTitleWords = 8
	// MaxTitleLength bounds a title in characters.
	MaxTitleLength = 255
	// MinContentLength is the shortest accepted post body in characters.
	MinContentLength = 100
	// MaxContentLength bounds a post body in characters.
	MaxContentLength = 50000
	// MinTagLength is the shortest accepted tag name.
	MinTagLength = 3
	// MaxTagLength bounds a tag name.
	MaxTagLength = 64
	// MinSearchLength is the shortest accepted search query.
	MinSearchLength = 3
)

// ValidateTitle requires at least MinTitleWords words and at most MaxTitleLength characters.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	}
	if len(strings.Fields(title)) < MinTitleWords {
		return fmt.Errorf("title must contain at least %d words", MinTitleWords)
	}
	return nil
}

// ValidateContent bounds the post body length.
func ValidateContent(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n < MinContentLength {
		return fmt.Errorf("content must be at least %d characters long", MinContentLength)
	}
	if n > MaxContentLength {
		return fmt.Errorf("content must not exceed %d characters", MaxContentLength)
	}
	return nil
}

// ValidateTagName allows letters, digits and inner spaces.
func ValidateTagName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinTagLength {
		return fmt.Errorf("tag %q must be at least %d characters long", name, MinTagLength)
	}
	if n > MaxTagLength {
		return fmt.Errorf("tag %q must not exceed %d characters", name, MaxTagLength)
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return fmt.Errorf("tag %q can not contain special characters", name)
		}
	}
	return nil
}

// SplitTags splits a comma separated tag list, trimming and dropping empty entries.
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeSearch trims the query and enforces MinSearchLength.
func NormalizeSearch(q string) (string, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinSearchLength {
		return "", fmt.Errorf("search query must be at least %d characters long", MinSearchLength)
	}
	return q, nil
}
