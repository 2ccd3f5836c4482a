package move

import (
	"github.com/rs/zerolog/log"

	"github.com/domino14/kingme/board"
)

// State is where the builder is in constructing a move.
type State uint8

const (
	Idle State = iota
	Building
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Complete:
		return "complete"
	}
	return "unknown"
}

// Outcome is the result of one click. Submit is only set when State is
// Complete.
type Outcome struct {
	State  State
	Submit Sequence
}

// Builder assembles a candidate move one clicked square at a time,
// and only keeps it while it is the start of some legal option.
// Any click that does not fit silently drops the candidate.
type Builder struct {
	candidate Sequence
	state     State
}

// Candidate returns a copy of the move under construction.
func (b *Builder) Candidate() Sequence {
	return b.candidate.Copy()
}

func (b *Builder) State() State {
	return b.state
}

func (b *Builder) Reset() {
	b.candidate = nil
	b.state = Idle
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	return &Builder{candidate: b.candidate.Copy(), state: b.state}
}

func (b *Builder) reject() Outcome {
	b.Reset()
	return Outcome{State: Idle}
}

// Click feeds the square at board (not visual) coordinates to the builder.
// ok=false means the click did not land on a playable square. snap is used
// to find the piece jumped over on a multi-square extension, and me picks
// which pieces count as opposing. A nil snap records no jumped piece.
func (b *Builder) Click(id board.SquareID, ok bool, snap *board.Snapshot,
	me board.Color, options Options) Outcome {

	if !ok {
		return b.reject()
	}

	if len(b.candidate) == 0 {
		b.candidate = Sequence{int(id)}
		if !IsLegalPrefix(b.candidate, options) {
			return b.reject()
		}
		b.state = Building
		return b.finish(options)
	}

	lastID, _ := b.candidate.LastLanding()
	last := board.IDToCell(lastID)
	next := board.IDToCell(id)
	step, dist, diagonal := board.Diagonal(last, next)
	if !diagonal {
		return b.reject()
	}

	if dist > 1 && snap != nil {
		// Only the first opposing piece between the two squares is
		// recorded; longer chains are built one extension at a time.
		for i := 1; i < dist; i++ {
			c := board.Cell{Col: last.Col + i*step.Col, Row: last.Row + i*step.Row}
			if me.Opponent().Owns(snap.At(c)) {
				jumped, _ := board.CellToID(c)
				b.candidate = append(b.candidate, -int(jumped))
				break
			}
		}
	}
	b.candidate = append(b.candidate, int(id))

	if !IsLegalPrefix(b.candidate, options) {
		log.Debug().Str("seq", b.candidate.String()).Msg("candidate-not-a-prefix")
		return b.reject()
	}
	b.state = Building
	return b.finish(options)
}

func (b *Builder) finish(options Options) Outcome {
	if !IsLegalComplete(b.candidate, options) {
		return Outcome{State: Building}
	}
	out := Outcome{State: Complete, Submit: b.candidate}
	// The candidate is handed off for submission and the builder starts
	// over, so a new move can begin before the server has answered.
	b.candidate = nil
	b.state = Complete
	return out
}
