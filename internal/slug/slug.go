// Package slug derives the unique, URL-safe identifier a post is read
// under: the author token and the title token joined by a slash.
package slug

import (
	"errors"
	"strings"

	gslug "github.com/gosimple/slug"
)

// Separator joins the author and title tokens.
const Separator = "/"

var (
	// ErrEmptyAuthor is returned when the author display name yields no
	// URL-safe characters.
	ErrEmptyAuthor = errors.New("author name produces an empty slug token")
	// ErrEmptyTitle is returned when the title yields no URL-safe characters.
	ErrEmptyTitle = errors.New("title produces an empty slug token")
)

// apostrophes are separators, not elidable characters: "l'été"
// becomes "l-ete", never "lete".
var apostrophes = strings.NewReplacer("'", " ", "’", " ", "`", " ")

// Make derives the slug for a post from the author display name and the
// title: both inputs are transliterated to lowercase URL-safe tokens
// (diacritics stripped, whitespace and punctuation collapsed to single
// hyphens) and joined as "author/title". Uniqueness is enforced by the
// caller against storage; two posts may never share a slug.
func Make(authorName, title string) (string, error) {
	author := gslug.Make(apostrophes.Replace(authorName))
	if author == "" {
		return "", ErrEmptyAuthor
	}
	t := gslug.Make(apostrophes.Replace(title))
	if t == "" {
		return "", ErrEmptyTitle
	}
	return author + Separator + t, nil
}

// Normalize lowercases a caller-supplied slug for lookup. Slugs are
// case-insensitive-unique and stored lowercase.
func Normalize(s string) string {
	return strings.ToLower(strings.Trim(s, "/"))
}
