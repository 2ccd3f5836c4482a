package move

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/domino14/kingme/board"
)

// A Sequence is a move as a list of signed square numbers. Positive
// entries are squares the piece lands on, the first one being where it
// starts; negative entries are squares whose piece is jumped.
type Sequence []int

// Options is the full list of legal moves for the current ply, as sent by
// the server.
type Options []Sequence

func (s Sequence) String() string {
	parts := lo.Map(s, func(v int, _ int) string {
		return strconv.Itoa(v)
	})
	return "[" + strings.Join(parts, ",") + "]"
}

// ShortDescription renders the move in the usual notation, for example
// 9-13 or 9x18 when something is captured.
func (s Sequence) ShortDescription() string {
	landings := lo.Filter(s, func(v int, _ int) bool { return v > 0 })
	sep := "-"
	if len(landings) != len(s) {
		sep = "x"
	}
	parts := lo.Map(landings, func(v int, _ int) string {
		return strconv.Itoa(v)
	})
	return strings.Join(parts, sep)
}

// Captures returns the squares jumped over in this move.
func (s Sequence) Captures() []board.SquareID {
	return lo.FilterMap(s, func(v int, _ int) (board.SquareID, bool) {
		return board.SquareID(-v), v < 0
	})
}

// LastLanding returns the last positive entry.
func (s Sequence) LastLanding() (board.SquareID, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] > 0 {
			return board.SquareID(s[i]), true
		}
	}
	return 0, false
}

func (s Sequence) Copy() Sequence {
	if s == nil {
		return nil
	}
	c := make(Sequence, len(s))
	copy(c, s)
	return c
}

func (s Sequence) hasPrefix(prefix Sequence) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equals compares element by element; signs matter.
func (s Sequence) Equals(o Sequence) bool {
	return len(s) == len(o) && s.hasPrefix(o)
}

// IsLegalPrefix reports whether some option starts with candidate.
func IsLegalPrefix(candidate Sequence, options Options) bool {
	return lo.ContainsBy(options, func(opt Sequence) bool {
		return opt.hasPrefix(candidate)
	})
}

// IsLegalComplete reports whether candidate is exactly one of the options.
func IsLegalComplete(candidate Sequence, options Options) bool {
	return lo.ContainsBy(options, func(opt Sequence) bool {
		return opt.Equals(candidate)
	})
}

// Starts returns the distinct squares from which some option begins.
func (o Options) Starts() []board.SquareID {
	return lo.Uniq(lo.FilterMap(o, func(opt Sequence, _ int) (board.SquareID, bool) {
		if len(opt) == 0 {
			return 0, false
		}
		return board.SquareID(opt[0]), true
	}))
}

// Continuations returns the options that extend candidate.
func (o Options) Continuations(candidate Sequence) Options {
	return lo.Filter(o, func(opt Sequence, _ int) bool {
		return opt.hasPrefix(candidate)
	})
}
