// Package dictionary provides optional word lists, one per room language.
//
// Word files hold one word per line. Lines are normalized the same way
// submissions are; lines with characters outside the word alphabet are
// skipped. A room with no dictionary for its language accepts every word.
package dictionary

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"wordchain/internal/domain"
)

// ErrEmpty is returned when a word source yields no usable words
var ErrEmpty = errors.New("dictionary: no words loaded")

// Dictionary reports whether a word exists. Lookups may block, so they take
// a context.
type Dictionary interface {
	Contains(ctx context.Context, word string) (bool, error)
}

// Set is an in-memory Dictionary
type Set struct {
	words map[string]struct{}
}

// NewSet builds a set from words, normalizing each one
func NewSet(words ...string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		s.add(w)
	}
	return s
}

func (s *Set) add(w string) bool {
	w = domain.NormalizeText(w)
	if !domain.IsWordText(w) {
		return false
	}
	s.words[domain.FoldText(w)] = struct{}{}
	return true
}

// Read loads one word per line from r.
func Read(r io.Reader) (*Set, error) {
	s := NewSet()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dictionary: read: %w", err)
	}
	if s.Len() == 0 {
		return nil, ErrEmpty
	}
	return s, nil
}

// LoadFile loads a word file from disk
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dictionary: open %s: %w", path, err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Contains checks membership case-insensitively
func (s *Set) Contains(ctx context.Context, word string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := s.words[domain.FoldText(domain.NormalizeText(word))]
	return ok, nil
}

// Len returns the number of distinct words
func (s *Set) Len() int {
	return len(s.words)
}

// Registry maps room languages to dictionaries
type Registry struct {
	mu    sync.RWMutex
	langs map[int]Dictionary
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{langs: make(map[int]Dictionary)}
}

// Register installs d for a language, replacing any previous one
func (r *Registry) Register(lang int, d Dictionary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[lang] = d
}

// Lookup returns the dictionary for a language
func (r *Registry) Lookup(lang int) (Dictionary, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.langs[lang]
	return d, ok
}

// Languages lists the languages with a dictionary, ascending
func (r *Registry) Languages() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, 0, len(r.langs))
	for lang := range r.langs {
		out = append(out, lang)
	}
	sort.Ints(out)
	return out
}

// ParseSources parses "lang:path,lang:path" into a language to path map.
func ParseSources(list string) (map[int]string, error) {
	out := make(map[int]string)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		langStr, path, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("dictionary: source %q: want lang:path", part)
		}
		lang, err := strconv.Atoi(strings.TrimSpace(langStr))
		if err != nil || lang < 0 {
			return nil, fmt.Errorf("dictionary: source %q: bad language", part)
		}
		out[lang] = strings.TrimSpace(path)
	}
	return out, nil
}

// LoadSources loads every file named by ParseSources into a new registry
func LoadSources(list string) (*Registry, error) {
	sources, err := ParseSources(list)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for lang, path := range sources {
		set, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		reg.Register(lang, set)
	}
	return reg, nil
}
