package dictionary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	words := New("apple", "elephant", "tiger", "ant")

	tests := []struct {
		name     string
		word     string
		letter   rune
		lastUsed string
		want     bool
	}{
		{name: "accepted", word: "apple", letter: 'a', want: true},
		{name: "case insensitive word", word: "APPLE", letter: 'a', want: true},
		{name: "case insensitive letter", word: "apple", letter: 'A', want: true},
		{name: "empty word", word: "", letter: 'a', want: false},
		{name: "wrong first letter", word: "tiger", letter: 'a', want: false},
		{name: "not in dictionary", word: "avocado", letter: 'a', want: false},
		{name: "repeat of previous word", word: "apple", letter: 'a', lastUsed: "apple", want: false},
		{name: "repeat of previous word differing in case", word: "Apple", letter: 'a', lastUsed: "APPLE", want: false},
		{name: "different previous word", word: "ant", letter: 'a', lastUsed: "apple", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.word, tt.letter, words, tt.lastUsed))
		})
	}
}

// Only the immediately preceding word is checked, so a word used two turns ago is playable.
func TestValid_NonAdjacentRepeatAllowed(t *testing.T) {
	words := New("apple", "elephant", "tiger", "thanks", "eat")
	history := []string{"apple", "elephant", "tiger"}

	last := history[len(history)-1]
	assert.False(t, Valid("tiger", 't', words, last))
	assert.True(t, Valid("apple", 'a', words, last), "non-adjacent repeat must stay legal")
}

func TestValid_Property(t *testing.T) {
	words := New("apple", "ant", "banana", "cat")
	candidates := []string{"", "apple", "Ant", "ANT", "banana", "cat", "cow", "a", "b"}
	letters := []rune{'a', 'b', 'C'}
	lasts := []string{"", "apple", "ANT", "cat"}

	for _, w := range candidates {
		for _, l := range letters {
			for _, last := range lasts {
				lw := strings.ToLower(w)
				want := lw != "" &&
					rune(lw[0]) == []rune(strings.ToLower(string(l)))[0] &&
					words.Contains(lw) &&
					lw != strings.ToLower(last)
				assert.Equal(t, want, Valid(w, l, words, last), "word=%q letter=%q last=%q", w, l, last)
			}
		}
	}
}

func TestNextLetter(t *testing.T) {
	tests := []struct {
		word   string
		want   rune
		wantOK bool
	}{
		{word: "apple", want: 'e', wantOK: true},
		{word: "TIGER", want: 'r', wantOK: true},
		{word: "rock'n'roll", want: 'l', wantOK: true},
		{word: "abc1", want: 'c', wantOK: true},
		{word: "123", wantOK: false},
		{word: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got, ok := NextLetter(tt.word)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRead(t *testing.T) {
	d, err := Read(strings.NewReader("Apple\n\n  tiger  \r\nelephant\napple\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	assert.True(t, d.Contains("apple"))
	assert.True(t, d.Contains("TIGER"))
	assert.False(t, d.Contains("zebra"))
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader("\n  \n"))
	assert.ErrorIs(t, err, ErrEmptyDictionary)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dictionary.txt")
	require.NoError(t, os.WriteFile(path, []byte("apple\nelephant\ntiger\n"), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
