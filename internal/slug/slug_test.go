package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name     string
		author   string
		title    string
		expected string
	}{
		{
			name:     "simple",
			author:   "Alice",
			title:    "My First Post",
			expected: "alice/my-first-post",
		},
		{
			name:     "diacritics stripped",
			author:   "Camille Covarel",
			title:    "L'été à Paris, déjà ?",
			expected: "camille-covarel/l-ete-a-paris-deja",
		},
		{
			name:     "curly apostrophe separates",
			author:   "Alice",
			title:    "L’Île d’Or",
			expected: "alice/l-ile-d-or",
		},
		{
			name:     "punctuation collapsed",
			author:   "Bob!!",
			title:    "Hello... World -- Again",
			expected: "bob/hello-world-again",
		},
		{
			name:     "mixed case",
			author:   "ALICE",
			title:    "My FIRST Post",
			expected: "alice/my-first-post",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Make(tt.author, tt.title)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMakeCaseInsensitive(t *testing.T) {
	a, err := Make("Alice", "My First Post")
	require.NoError(t, err)
	b, err := Make("alice", "MY FIRST POST")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMakeEmptyTokens(t *testing.T) {
	_, err := Make("???", "A Title")
	assert.ErrorIs(t, err, ErrEmptyAuthor)

	_, err = Make("Alice", "!!!")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "alice/my-first-post", Normalize("/Alice/My-First-Post/"))
}
