package planner

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/itwrites/BlogViraliy-sub004/internal/storage"
)

// Slugify normalizes a title into a URL slug: lowercase ASCII letters,
// digits, and hyphens.
func Slugify(title string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	s := strings.Trim(sb.String(), "-")
	if s == "" {
		return "article"
	}
	return s
}

// TitleFor builds a provisional article title from a raw keyword.
func TitleFor(keyword string) string {
	return titleCase(keyword)
}

// titleCase capitalizes the first letter of each word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// slugSet reserves slugs unique within a site, consulting both the
// store and slugs reserved earlier in the same planning run.
type slugSet struct {
	store  storage.Storage
	siteID int64
	used   map[string]bool
}

func newSlugSet(store storage.Storage, siteID int64) *slugSet {
	return &slugSet{store: store, siteID: siteID, used: make(map[string]bool)}
}

// reserve returns base if free, otherwise base with the first free
// numeric suffix appended.
func (s *slugSet) reserve(ctx context.Context, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		taken := s.used[candidate]
		if !taken {
			exists, err := s.store.SlugExists(ctx, s.siteID, candidate)
			if err != nil {
				return "", fmt.Errorf("check slug %q: %w", candidate, err)
			}
			taken = exists
		}
		if !taken {
			s.used[candidate] = true
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
