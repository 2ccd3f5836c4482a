package game

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/move"
)

// ApplyServerSnapshot builds the session that follows old once resp has
// been received. old is not modified. The move under construction carries
// over only if neither the board content nor the turn changed; re-polling
// an unchanged game leaves it alone.
func ApplyServerSnapshot(old *Session, resp *api.GameStatus) (*Session, error) {
	if old == nil {
		old = NewSession(0, "")
	}
	myColor, err := board.ColorFromString(resp.MyColor)
	if err != nil || myColor == board.NoColor {
		return nil, fmt.Errorf("%w: my_color %q", api.ErrUnknownColor, resp.MyColor)
	}
	snap, err := board.SnapshotFromColumns(resp.GameBoard)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrBadBoard, err)
	}
	status, err := StatusFromString(resp.Status)
	if err != nil {
		return nil, err
	}
	winner, err := board.ColorFromString(resp.Winner)
	if err != nil {
		return nil, fmt.Errorf("%w: winner %q", api.ErrUnknownColor, resp.Winner)
	}
	turn, err := board.ColorFromString(resp.TurnOf)
	if err != nil {
		return nil, fmt.Errorf("%w: turn_of %q", api.ErrUnknownColor, resp.TurnOf)
	}
	points := make(map[board.Color]int, len(resp.Points))
	for name, p := range resp.Points {
		c, err := board.ColorFromString(name)
		if err != nil || c == board.NoColor {
			return nil, fmt.Errorf("%w: points key %q", api.ErrUnknownColor, name)
		}
		points[c] = p
	}

	ns := &Session{
		GameID:       old.GameID,
		Token:        old.Token,
		MyColor:      myColor,
		MyName:       resp.MyName,
		OpponentName: resp.OpponentName,
		Board:        snap,
		Points:       points,
		Status:       status,
		Winner:       winner,
		Options: lo.Map(resp.Options, func(o []int, _ int) move.Sequence {
			return move.Sequence(o).Copy()
		}),
		TurnOf:      turn,
		loaded:      true,
		fingerprint: snap.Fingerprint(),
	}

	if old.loaded && old.fingerprint == ns.fingerprint && old.TurnOf == ns.TurnOf &&
		old.MyColor == ns.MyColor {
		ns.builder = old.builder.Clone()
	} else {
		ns.builder = &move.Builder{}
	}

	if ns.OpponentJoined() {
		ns.Poll = Idle
	} else {
		ns.Poll = AwaitingOpponent
	}
	return ns, nil
}

// BoardChanged reports whether next shows a different position than prev,
// which is when a redraw is needed.
func BoardChanged(prev, next *Session) bool {
	if prev == nil || !prev.loaded {
		return next.loaded
	}
	return prev.fingerprint != next.fingerprint || prev.MyColor != next.MyColor
}

// Changed reports whether anything a front end displays differs.
func Changed(prev, next *Session) bool {
	if BoardChanged(prev, next) {
		return true
	}
	if prev == nil {
		return false
	}
	return prev.TurnOf != next.TurnOf || prev.Status != next.Status ||
		prev.Winner != next.Winner || prev.OpponentName != next.OpponentName ||
		prev.Points[board.Red] != next.Points[board.Red] ||
		prev.Points[board.Green] != next.Points[board.Green]
}
