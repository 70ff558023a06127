// Package codec converts a room's word and penalty ledgers to and from the
// compact state string used for persistence and for the wire.
//
// Grammar, left to right:
//
//	state   = { penalty } { word } [ "~" ]
//	penalty = digits "-" { "-" }          run length is the magnitude
//	word    = digits letters digits ";"   player id, text, unix millis
//
// The trailing "~" is present exactly when at least one word is present.
package codec

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"wordchain/internal/domain"
)

const (
	penaltyMark = '-'
	wordEnd     = ';'
	wordsFlag   = '~'
)

// ErrCorruptState is matched by every decoding failure
var ErrCorruptState = errors.New("corrupt room state")

// CorruptionError reports where decoding stopped
type CorruptionError struct {
	Offset int
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", ErrCorruptState, e.Offset, e.Reason)
}

func (e *CorruptionError) Unwrap() error { return ErrCorruptState }

// State is the decoded form of an encoded room state
type State struct {
	HasWords  bool
	Penalties []domain.Penalty
	Words     []domain.Word
}

// Encode writes penalties (ascending player id, zero magnitudes skipped),
// then words in ledger order, then the words flag.
func Encode(words []domain.Word, penalties []domain.Penalty) string {
	sorted := make([]domain.Penalty, 0, len(penalties))
	for _, p := range penalties {
		if p.PlayerID.Valid() && p.Magnitude > 0 {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PlayerID < sorted[j].PlayerID })

	var b strings.Builder
	for _, p := range sorted {
		b.WriteString(p.PlayerID.String())
		b.WriteString(strings.Repeat(string(penaltyMark), p.Magnitude))
	}
	for _, w := range words {
		b.WriteString(w.PlayerID.String())
		b.WriteString(w.Text)
		b.WriteString(strconv.FormatInt(w.Time, 10))
		b.WriteByte(wordEnd)
	}
	if len(words) > 0 {
		b.WriteByte(wordsFlag)
	}
	return b.String()
}

// EncodeRoom encodes the current ledgers of r.
func EncodeRoom(r *domain.Room) string {
	return Encode(r.Words(), r.Penalties())
}

// Decode parses s strictly. Anything that is not exactly a valid encoding
// is reported as a *CorruptionError.
func Decode(s string) (State, error) {
	var st State
	i := 0
	inWords := false

	for i < len(s) {
		if s[i] == wordsFlag {
			if i != len(s)-1 {
				return State{}, corrupt(i+1, "data after words flag")
			}
			st.HasWords = true
			break
		}

		start := i
		id, n, err := parseID(s, i)
		if err != nil {
			return State{}, corrupt(start, err.Error())
		}
		i += n

		if i < len(s) && s[i] == penaltyMark {
			if inWords {
				return State{}, corrupt(start, "penalty after words")
			}
			run := 0
			for i < len(s) && s[i] == penaltyMark {
				run++
				i++
			}
			st.Penalties = append(st.Penalties, domain.Penalty{PlayerID: id, Magnitude: run})
			continue
		}

		textStart := i
		for i < len(s) {
			r, size := utf8.DecodeRuneInString(s[i:])
			if !domain.IsLetter(r) {
				break
			}
			i += size
		}
		if i == textStart {
			return State{}, corrupt(i, "expected letters or '-'")
		}
		text := s[textStart:i]

		timeStart := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == timeStart {
			return State{}, corrupt(i, "expected word time")
		}
		if s[timeStart] == '0' && i-timeStart > 1 {
			return State{}, corrupt(timeStart, "leading zero in word time")
		}
		at, err := strconv.ParseInt(s[timeStart:i], 10, 64)
		if err != nil {
			return State{}, corrupt(timeStart, "word time out of range")
		}
		if i >= len(s) || s[i] != wordEnd {
			return State{}, corrupt(i, "expected ';'")
		}
		i++

		inWords = true
		st.Words = append(st.Words, domain.Word{PlayerID: id, Text: text, Time: at})
	}

	if st.HasWords != (len(st.Words) > 0) {
		return State{}, corrupt(len(s), "words flag does not match words")
	}
	return st, nil
}

var (
	penaltyPattern = regexp.MustCompile(`(\d+)(-+)`)
	wordPattern    = regexp.MustCompile(`(?i)(\d+?)([a-ząćęółńśżź]+)(\d+?);`)
)

// DecodeLenient extracts every penalty token and every word token
// independently and ignores whatever does not match. It exists to salvage
// states that Decode rejects; callers must report the corruption.
func DecodeLenient(s string) State {
	st := State{HasWords: strings.HasSuffix(s, string(wordsFlag))}

	for _, m := range penaltyPattern.FindAllStringSubmatch(s, -1) {
		id, err := domain.ParsePlayerID(m[1])
		if err != nil {
			continue
		}
		st.Penalties = append(st.Penalties, domain.Penalty{PlayerID: id, Magnitude: len(m[2])})
	}
	for _, m := range wordPattern.FindAllStringSubmatch(s, -1) {
		id, err := domain.ParsePlayerID(m[1])
		if err != nil {
			continue
		}
		at, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			continue
		}
		st.Words = append(st.Words, domain.Word{PlayerID: id, Text: m[2], Time: at})
	}
	return st
}

// TotalPenalties sums penalty magnitudes per player.
func (s State) TotalPenalties() map[domain.PlayerID]int {
	out := make(map[domain.PlayerID]int, len(s.Penalties))
	for _, p := range s.Penalties {
		out[p.PlayerID] += p.Magnitude
	}
	return out
}

func parseID(s string, i int) (domain.PlayerID, int, error) {
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j == i {
		return domain.NoPlayer, 0, errors.New("expected player id")
	}
	if s[i] == '0' && j-i > 1 {
		return domain.NoPlayer, 0, errors.New("leading zero in player id")
	}
	n, err := strconv.ParseInt(s[i:j], 10, 64)
	if err != nil {
		return domain.NoPlayer, 0, errors.New("player id out of range")
	}
	if n == 0 {
		return domain.NoPlayer, 0, errors.New("player id zero")
	}
	return domain.PlayerID(n), j - i, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func corrupt(offset int, reason string) error {
	return &CorruptionError{Offset: offset, Reason: reason}
}
