package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtinPresets []byte

// Preset describes the shape of one seeding run.
type Preset struct {
	Name             string   `yaml:"name"`
	Users            int      `yaml:"users"`
	Posts            int      `yaml:"posts"`
	FollowsPerUser   int      `yaml:"follows_per_user"`
	ReactionsPerPost int      `yaml:"reactions_per_post"`
	BookmarksPerUser int      `yaml:"bookmarks_per_user"`
	TagsPerPost      []int    `yaml:"tags_per_post"`
	FeaturedRatio    float64  `yaml:"featured_ratio"`
	Tags             []string `yaml:"tags"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// tagRange returns the min and max tags per post.
func (p Preset) tagRange() (int, int) {
	switch len(p.TagsPerPost) {
	case 0:
		return 0, 0
	case 1:
		return p.TagsPerPost[0], p.TagsPerPost[0]
	default:
		return p.TagsPerPost[0], p.TagsPerPost[1]
	}
}

// Validate reports the first inconsistency in p.
func (p Preset) Validate() error {
	if p.Users < 1 {
		return fmt.Errorf("preset %q: users must be positive", p.Name)
	}
	if p.Posts < 0 || p.FollowsPerUser < 0 || p.ReactionsPerPost < 0 || p.BookmarksPerUser < 0 {
		return fmt.Errorf("preset %q: counts must not be negative", p.Name)
	}
	lo, hi := p.tagRange()
	if lo < 0 || hi < lo {
		return fmt.Errorf("preset %q: tags_per_post must be [min, max]", p.Name)
	}
	if hi > 0 && len(p.Tags) == 0 {
		return fmt.Errorf("preset %q: tags_per_post needs a tag pool", p.Name)
	}
	return nil
}

// ParsePresets decodes a YAML presets document.
func ParsePresets(raw []byte) ([]Preset, error) {
	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	for _, p := range file.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Presets, nil
}

// LoadPresets reads presets from path, or the built-in set when path is empty.
func LoadPresets(path string) ([]Preset, error) {
	if path == "" {
		return ParsePresets(builtinPresets)
	}
	raw, err := os.ReadFile(path) // #nosec G304: operator supplied path
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(raw)
}

// FindPreset looks a preset up by name, ignoring case.
func FindPreset(presets []Preset, name string) (Preset, error) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q", name)
}
