// Package replay serves a scripted checkers game over the same surface as
// the real game server. It knows nothing about the rules: a move is legal
// when it equals one of the options listed in the current frame.
package replay

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/move"
)

//go:embed scripts/opening.yaml
var openingScript []byte

var ErrBadScript = errors.New("bad replay script")

// Seat is one player of a scripted game. A seat with no token is open
// until somebody joins.
type Seat struct {
	Color string `yaml:"color"`
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// Transition names the frame that a move leads to.
type Transition struct {
	Move  []int `yaml:"move"`
	Frame int   `yaml:"frame"`
}

// Frame is the game at one point in the script. Board holds text rows,
// row 0 first (see board.SnapshotFromText); an empty board is the starting
// position. A legal option with no transition leads to the next frame.
type Frame struct {
	Board   []string       `yaml:"board"`
	TurnOf  string         `yaml:"turn_of"`
	Status  string         `yaml:"status"`
	Winner  string         `yaml:"winner"`
	Points  map[string]int `yaml:"points"`
	Options [][]int        `yaml:"options"`
	Next    []Transition   `yaml:"next"`

	snap board.Snapshot
}

type Script struct {
	GameID  int     `yaml:"game_id"`
	Players []Seat  `yaml:"players"`
	Frames  []Frame `yaml:"frames"`
}

// ParseScript reads a YAML script and checks it.
func ParseScript(data []byte) (*Script, error) {
	s := &Script{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadScript, err)
	}
	if err := s.prepare(); err != nil {
		return nil, err
	}
	return s, nil
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

// DefaultScript is a short game with both seats taken.
func DefaultScript() *Script {
	s, err := ParseScript(openingScript)
	if err != nil {
		panic(err)
	}
	return s
}

func badScript(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadScript, fmt.Sprintf(format, args...))
}

func (s *Script) prepare() error {
	if len(s.Frames) == 0 {
		return badScript("no frames")
	}
	if len(s.Players) != 2 {
		return badScript("need two players, have %d", len(s.Players))
	}
	seen := map[board.Color]bool{}
	for _, p := range s.Players {
		c, err := board.ColorFromString(p.Color)
		if err != nil || c == board.NoColor {
			return badScript("player color %q", p.Color)
		}
		seen[c] = true
	}
	if !seen[board.Red] || !seen[board.Green] {
		return badScript("need a RED and a GREEN player")
	}

	for i := range s.Frames {
		f := &s.Frames[i]
		var err error
		if len(f.Board) == 0 {
			f.snap = board.StartingPosition()
		} else if f.snap, err = board.SnapshotFromText(f.Board); err != nil {
			return badScript("frame %d: %v", i, err)
		}
		if f.Status == "" {
			f.Status = api.StatusInProgress
		}
		switch f.Status {
		case api.StatusInProgress:
			if _, err := board.ColorFromString(f.TurnOf); err != nil || f.TurnOf == "" {
				return badScript("frame %d: turn_of %q", i, f.TurnOf)
			}
		case api.StatusDraw, api.StatusWon:
			f.TurnOf = ""
			f.Options = nil
		default:
			return badScript("frame %d: status %q", i, f.Status)
		}
		if _, err := board.ColorFromString(f.Winner); err != nil {
			return badScript("frame %d: winner %q", i, f.Winner)
		}
		for _, t := range f.Next {
			if t.Frame < 0 || t.Frame >= len(s.Frames) {
				return badScript("frame %d: transition to missing frame %d", i, t.Frame)
			}
			if !f.legal(t.Move) {
				return badScript("frame %d: transition move %v is not an option", i, t.Move)
			}
		}
	}
	return nil
}

func (f *Frame) legal(m []int) bool {
	return lo.ContainsBy(f.Options, func(o []int) bool {
		return move.Sequence(o).Equals(m)
	})
}

// after returns the frame that follows index when m is played there.
func (s *Script) after(index int, m []int) int {
	t, ok := lo.Find(s.Frames[index].Next, func(t Transition) bool {
		return move.Sequence(t.Move).Equals(m)
	})
	if ok {
		return t.Frame
	}
	if index+1 < len(s.Frames) {
		return index + 1
	}
	return index
}

// seat returns the seat held by token.
func (s *Script) seat(token string) (*Seat, bool) {
	if token == "" {
		return nil, false
	}
	for i := range s.Players {
		if s.Players[i].Token == token {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// opponent returns the other seat.
func (s *Script) opponent(me *Seat) *Seat {
	for i := range s.Players {
		if &s.Players[i] != me {
			return &s.Players[i]
		}
	}
	return nil
}

// clone copies s with the given id and, when open is true, every seat
// emptied.
func (s *Script) clone(id int, open bool) *Script {
	c := &Script{
		GameID: id,
		Players: lo.Map(s.Players, func(p Seat, _ int) Seat {
			if open {
				return Seat{Color: p.Color}
			}
			return p
		}),
		Frames: make([]Frame, len(s.Frames)),
	}
	copy(c.Frames, s.Frames)
	return c
}
