package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrEmptyDictionary is returned when a word list yields no words.
var ErrEmptyDictionary = errors.New("dictionary is empty")

// WordSet is anything that can answer dictionary membership for a lowercase word.
type WordSet interface {
	Contains(word string) bool
}

// Dictionary is an immutable in-memory set of lowercase words.
// It is safe for concurrent use once loaded.
type Dictionary struct {
	words map[string]struct{}
}

// New creates a dictionary from the given words.
func New(words ...string) *Dictionary {
	d := &Dictionary{
		words: make(map[string]struct{}, len(words)),
	}
	for _, w := range words {
		d.add(w)
	}
	return d
}

// Load reads a newline-delimited word list from path.
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary %s: %w", path, err)
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load dictionary %s: %w", path, err)
	}
	return d, nil
}

// Read builds a dictionary from a newline-delimited word list.
// Words are trimmed and lowercased; blank lines are skipped.
func Read(r io.Reader) (*Dictionary, error) {
	d := New()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		d.add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}
	if d.Len() == 0 {
		return nil, ErrEmptyDictionary
	}
	return d, nil
}

func (d *Dictionary) add(word string) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return
	}
	d.words[w] = struct{}{}
}

// Contains reports whether word, case-insensitively, is in the dictionary.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.words[strings.ToLower(word)]
	return ok
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	return len(d.words)
}

// Valid reports whether word is an acceptable answer when the required first letter is
// requiredLetter and the previously accepted word was lastUsedWord.
//
// Only the immediately preceding word counts as a repeat; earlier words may be played again.
func Valid(word string, requiredLetter rune, words WordSet, lastUsedWord string) bool {
	if word == "" {
		return false
	}
	lower := strings.ToLower(word)
	first, _ := utf8.DecodeRuneInString(lower)
	if first != unicode.ToLower(requiredLetter) {
		return false
	}
	if !words.Contains(lower) {
		return false
	}
	return lower != strings.ToLower(lastUsedWord)
}

// NextLetter returns the letter the following word must start with: the last ASCII letter
// of word, lowercased. ok is false when word contains no ASCII letter.
func NextLetter(word string) (letter rune, ok bool) {
	lower := strings.ToLower(word)
	for i := len(lower) - 1; i >= 0; i-- {
		if c := lower[i]; c >= 'a' && c <= 'z' {
			return rune(c), true
		}
	}
	return 0, false
}
