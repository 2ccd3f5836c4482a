// Package game holds the client's view of one checkers game: the latest
// server snapshot, the legal moves, and the move under construction.
package game

import (
	"fmt"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/move"
)

// Status is the game status reported by the server.
type Status uint8

const (
	StatusUnknown Status = iota
	InProgress
	Draw
	Won
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return api.StatusInProgress
	case Draw:
		return api.StatusDraw
	case Won:
		return api.StatusWon
	}
	return "UNKNOWN"
}

// Over reports whether the game has finished.
func (s Status) Over() bool {
	return s == Draw || s == Won
}

func StatusFromString(s string) (Status, error) {
	switch s {
	case api.StatusInProgress:
		return InProgress, nil
	case api.StatusDraw:
		return Draw, nil
	case api.StatusWon:
		return Won, nil
	}
	return StatusUnknown, fmt.Errorf("%w: %q", api.ErrUnknownStatus, s)
}

// PollState says why the next status poll is needed, if at all.
type PollState uint8

const (
	// NeedsPoll is the state before the first load and right after a
	// submitted move.
	NeedsPoll PollState = iota
	// AwaitingOpponent means nobody has joined against us yet.
	AwaitingOpponent
	// Idle means only the opponent's turn makes polling worthwhile.
	Idle
)

func (p PollState) String() string {
	switch p {
	case NeedsPoll:
		return "needs-poll"
	case AwaitingOpponent:
		return "awaiting-opponent"
	case Idle:
		return "idle"
	}
	return "unknown"
}

// Session is everything the client knows about the game it is playing.
// A new Session is produced from every status poll; see
// ApplyServerSnapshot.
type Session struct {
	GameID int
	Token  string

	MyColor      board.Color
	MyName       string
	OpponentName string

	Board   board.Snapshot
	Points  map[board.Color]int
	Status  Status
	Winner  board.Color
	Options move.Options
	// TurnOf is NoColor when there is no active turn, i.e. the game is over.
	TurnOf board.Color

	Poll PollState

	loaded      bool
	fingerprint uint64
	builder     *move.Builder
}

// NewSession starts a session that has not heard from the server yet.
func NewSession(gameID int, token string) *Session {
	return &Session{
		GameID:  gameID,
		Token:   token,
		Points:  map[board.Color]int{},
		Poll:    NeedsPoll,
		builder: &move.Builder{},
	}
}

// Loaded reports whether at least one snapshot has been applied.
func (s *Session) Loaded() bool {
	return s.loaded
}

// Fingerprint identifies the board content of the last snapshot.
func (s *Session) Fingerprint() uint64 {
	return s.fingerprint
}

func (s *Session) OpponentJoined() bool {
	return s.OpponentName != ""
}

func (s *Session) MyTurn() bool {
	return s.loaded && s.TurnOf != board.NoColor && s.TurnOf == s.MyColor
}

// CanAct reports whether clicks should be interpreted at all: it must be
// our turn in a game in progress, with an opponent present.
func (s *Session) CanAct() bool {
	return s.MyTurn() && s.Status == InProgress && s.OpponentJoined()
}

// ShouldPoll reports whether a routine poll is worth sending.
func (s *Session) ShouldPoll() bool {
	switch s.Poll {
	case NeedsPoll, AwaitingOpponent:
		return true
	}
	return s.TurnOf != board.NoColor && s.TurnOf != s.MyColor
}

// MarkSubmitted records that a move went out, so the next poll is forced.
func (s *Session) MarkSubmitted() {
	s.Poll = NeedsPoll
}

// Candidate returns the move under construction.
func (s *Session) Candidate() move.Sequence {
	return s.builder.Candidate()
}

func (s *Session) BuilderState() move.State {
	return s.builder.State()
}

func (s *Session) ResetCandidate() {
	s.builder.Reset()
}

// Click feeds a square in board coordinates to the move builder. handled
// is false when the click was ignored because we may not act.
func (s *Session) Click(id board.SquareID, ok bool) (out move.Outcome, handled bool) {
	if !s.CanAct() {
		return move.Outcome{State: s.builder.State()}, false
	}
	return s.builder.Click(id, ok, &s.Board, s.MyColor, s.Options), true
}

// ClickCell takes a cell as drawn on screen.
func (s *Session) ClickCell(visual board.Cell) (move.Outcome, bool) {
	id, ok := board.CellToID(board.ToCanonical(visual, s.MyColor))
	return s.Click(id, ok)
}

// ClickPixel takes a point on a board drawn with geometry g.
func (s *Session) ClickPixel(g board.Geometry, px, py int) (move.Outcome, bool) {
	return s.ClickCell(g.PixelToCell(px, py))
}

// ClickSquare takes a square number directly.
func (s *Session) ClickSquare(id board.SquareID) (move.Outcome, bool) {
	return s.Click(id, id.Valid())
}

// Clone returns a deep copy that can be read without holding any lock.
func (s *Session) Clone() *Session {
	c := *s
	c.Points = make(map[board.Color]int, len(s.Points))
	for k, v := range s.Points {
		c.Points[k] = v
	}
	c.Options = make(move.Options, len(s.Options))
	for i, o := range s.Options {
		c.Options[i] = o.Copy()
	}
	c.builder = s.builder.Clone()
	return &c
}
