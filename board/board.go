package board

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash"
)

// Dim is the number of rows and columns on a checkers board.
const Dim = 8

// Color is the color a player plays.
type Color int8

const (
	// NoColor stands for an absent color, such as no winner yet.
	NoColor Color = 0
	// Red men are positive on the wire and start at rows 0 through 2.
	Red Color = 1
	// Green men are negative on the wire and start at rows 5 through 7.
	Green Color = -1
)

func (c Color) String() string {
	switch c {
	case Red:
		return "RED"
	case Green:
		return "GREEN"
	}
	return "NONE"
}

// Opponent returns the other color.
func (c Color) Opponent() Color {
	return -c
}

// Rotated reports whether this color sees the board turned 180 degrees,
// so that its own men are drawn nearest the player.
func (c Color) Rotated() bool {
	return c == Red
}

// Owns reports whether p is a man or king of this color.
func (c Color) Owns(p Piece) bool {
	return p != Empty && p.Color() == c
}

// ColorFromString parses a wire color name. The empty string is NoColor.
func ColorFromString(s string) (Color, error) {
	switch s {
	case "":
		return NoColor, nil
	case "RED":
		return Red, nil
	case "GREEN":
		return Green, nil
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

// A Piece is the content of one cell.
type Piece int8

const (
	GreenKing Piece = -2
	GreenMan  Piece = -1
	Empty     Piece = 0
	RedMan    Piece = 1
	RedKing   Piece = 2
)

// Color returns the owner of the piece. It is meaningless for Empty.
func (p Piece) Color() Color {
	if p > 0 {
		return Red
	}
	return Green
}

func (p Piece) IsKing() bool {
	return p == RedKing || p == GreenKing
}

func (p Piece) Valid() bool {
	return p >= GreenKing && p <= RedKing
}

// Snapshot is one board state as pushed by the server. It is indexed
// [col][row], the same way the server sends it: a list of columns.
// Snapshots are values; a new poll produces a new snapshot.
type Snapshot [Dim][Dim]Piece

// SnapshotFromColumns builds a snapshot from the wire matrix.
func SnapshotFromColumns(cols [][]int) (Snapshot, error) {
	var s Snapshot
	if len(cols) != Dim {
		return s, fmt.Errorf("board has %d columns, expected %d", len(cols), Dim)
	}
	for c, col := range cols {
		if len(col) != Dim {
			return s, fmt.Errorf("board column %d has %d cells, expected %d", c, len(col), Dim)
		}
		for r, v := range col {
			if !Piece(v).Valid() || v != int(Piece(v)) {
				return s, fmt.Errorf("bad piece value %d at column %d row %d", v, c, r)
			}
			s[c][r] = Piece(v)
		}
	}
	return s, nil
}

// At returns the piece on c. Off-board cells are Empty.
func (s *Snapshot) At(c Cell) Piece {
	if !c.OnBoard() {
		return Empty
	}
	return s[c.Col][c.Row]
}

// Columns converts the snapshot back to the wire matrix.
func (s *Snapshot) Columns() [][]int {
	cols := make([][]int, Dim)
	for c := 0; c < Dim; c++ {
		cols[c] = make([]int, Dim)
		for r := 0; r < Dim; r++ {
			cols[c][r] = int(s[c][r])
		}
	}
	return cols
}

// Equal compares content.
func (s *Snapshot) Equal(o *Snapshot) bool {
	return *s == *o
}

// Fingerprint hashes the board content, so that a re-polled but unchanged
// board can be recognized without keeping the old matrix around.
func (s *Snapshot) Fingerprint() uint64 {
	var buf [Dim * Dim * 2]byte
	idx := 0
	for c := 0; c < Dim; c++ {
		for r := 0; r < Dim; r++ {
			binary.LittleEndian.PutUint16(buf[idx:], uint16(s[c][r]))
			idx += 2
		}
	}
	return xxhash.Sum64(buf[:])
}

// Count returns how many pieces of color c are on the board.
func (s *Snapshot) Count(c Color) (men, kings int) {
	for col := 0; col < Dim; col++ {
		for row := 0; row < Dim; row++ {
			p := s[col][row]
			if !c.Owns(p) {
				continue
			}
			if p.IsKing() {
				kings++
			} else {
				men++
			}
		}
	}
	return
}

// Oriented returns the board as the player of color me sees it: the
// returned matrix is indexed by visual column and row.
func (s *Snapshot) Oriented(me Color) Snapshot {
	var out Snapshot
	for vc := 0; vc < Dim; vc++ {
		for vr := 0; vr < Dim; vr++ {
			out[vc][vr] = s.At(ToCanonical(Cell{Col: vc, Row: vr}, me))
		}
	}
	return out
}

// StartingPosition is the standard opening setup.
func StartingPosition() Snapshot {
	var s Snapshot
	for c := 0; c < Dim; c++ {
		for r := 0; r < Dim; r++ {
			if !Playable(Cell{Col: c, Row: r}) {
				continue
			}
			switch {
			case r < 3:
				s[c][r] = RedMan
			case r > 4:
				s[c][r] = GreenMan
			}
		}
	}
	return s
}
