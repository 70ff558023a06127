package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MaxWordLength bounds the number of letters in one submission
const MaxWordLength = 64

// accentedLetters are the non-ASCII letters accepted in words, lowercase.
const accentedLetters = "ąćęółńśżź"

// Word represents one accepted submission in a room's word ledger
type Word struct {
	PlayerID PlayerID `json:"playerId"`
	Text     string   `json:"word"`
	Time     int64    `json:"time"` // unix milliseconds
}

// MaxClockSkew is how far ahead of the room clock a caller-supplied time
// may be, in milliseconds.
const MaxClockSkew int64 = 60_000

// NewWord creates a word, stamping it with now when at is not a valid time.
// Times zero or below, or more than MaxClockSkew past now, are not valid.
func NewWord(playerID PlayerID, text string, at, now int64) Word {
	if at <= 0 || at > now+MaxClockSkew {
		at = now
	}
	return Word{
		PlayerID: playerID,
		Text:     text,
		Time:     at,
	}
}

// Length returns the number of letters in the word
func (w Word) Length() int {
	return utf8.RuneCountInString(w.Text)
}

// IsLetter reports whether r belongs to the word alphabet (either case).
func IsLetter(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
		return true
	}
	if r < utf8.RuneSelf {
		return false
	}
	return strings.ContainsRune(accentedLetters, unicode.ToLower(r))
}

// IsWordText reports whether s is a non-empty run of alphabet letters no
// longer than MaxWordLength.
func IsWordText(s string) bool {
	if s == "" {
		return false
	}
	n := 0
	for _, r := range s {
		if !IsLetter(r) {
			return false
		}
		n++
	}
	return n <= MaxWordLength
}

// NormalizeText trims, composes combining accents (NFC) and lowercases s.
// Accents typed as base letter + combining mark become the single accented
// letter the alphabet expects.
func NormalizeText(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return cases.Lower(language.Und).String(s)
}

// FoldText returns the case-folded form used for duplicate comparison.
func FoldText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// firstLetter returns the folded first letter of s.
func firstLetter(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return FoldText(string(r))
}

// lastLetter returns the folded last letter of s.
func lastLetter(s string) string {
	r, _ := utf8.DecodeLastRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return FoldText(string(r))
}

// Chains reports whether next may follow prev under the chain rule.
func Chains(prev, next string) bool {
	return lastLetter(prev) != "" && lastLetter(prev) == firstLetter(next)
}
