package board

import "fmt"

// SquareSize is the side of one drawn square, in pixels.
const SquareSize = 75

// NumSquares is the number of playable squares.
const NumSquares = 32

// A SquareID is the standard checkers number of a playable square, 1..32,
// counted row by row from row 0.
type SquareID int

func (id SquareID) Valid() bool {
	return id >= 1 && id <= NumSquares
}

// Cell is a column/row pair on the grid.
type Cell struct {
	Col int
	Row int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

func (c Cell) OnBoard() bool {
	return c.Col >= 0 && c.Col < Dim && c.Row >= 0 && c.Row < Dim
}

// Playable reports whether c is a dark square.
func Playable(c Cell) bool {
	return (c.Col+c.Row)%2 == 1
}

// Geometry is the size of one drawn square. The canvas uses square pixels;
// the terminal UI uses character cells that are wider than tall.
type Geometry struct {
	Width  int
	Height int
}

// DefaultGeometry is SquareSize by SquareSize pixels.
var DefaultGeometry = Geometry{Width: SquareSize, Height: SquareSize}

// PixelToCell returns the visual cell under the given point. Points outside
// the board are not filtered here.
func (g Geometry) PixelToCell(px, py int) Cell {
	return Cell{Col: px / g.Width, Row: py / g.Height}
}

// CellOrigin returns the top-left point of a visual cell.
func (g Geometry) CellOrigin(c Cell) (int, int) {
	return c.Col * g.Width, c.Row * g.Height
}

// PixelToCell maps a point on the default canvas to a visual cell.
func PixelToCell(px, py int) Cell {
	return DefaultGeometry.PixelToCell(px, py)
}

// CellToID returns the square number of c. Light squares and off-board
// cells have no number.
func CellToID(c Cell) (SquareID, bool) {
	if !c.OnBoard() || !Playable(c) {
		return 0, false
	}
	adjusted := c.Col
	if c.Row%2 == 0 {
		adjusted = c.Col - 1
	}
	if adjusted%2 != 0 {
		return 0, false
	}
	return SquareID(c.Row*4 + 1 + adjusted/2), true
}

// IDToCell is the inverse of CellToID over valid ids.
func IDToCell(id SquareID) Cell {
	row := (int(id) - 1) / 4
	col := ((int(id) - 1) % 4) * 2
	if row%2 == 0 {
		col++
	}
	return Cell{Col: col, Row: row}
}

// ToCanonical rotates a visual cell into board coordinates for the player
// of color me. Applying it twice returns the original cell, so it also maps
// board coordinates back to visual ones.
func ToCanonical(c Cell, me Color) Cell {
	if !me.Rotated() {
		return c
	}
	return Cell{Col: Dim - 1 - c.Col, Row: Dim - 1 - c.Row}
}

// Abs is the absolute value of x.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Diagonal returns the unit step from a to b and the number of steps, or
// ok=false if b is not on a diagonal through a (or is a itself).
func Diagonal(a, b Cell) (step Cell, dist int, ok bool) {
	dc := b.Col - a.Col
	dr := b.Row - a.Row
	if dc == 0 || Abs(dc) != Abs(dr) {
		return Cell{}, 0, false
	}
	return Cell{Col: dc / Abs(dc), Row: dr / Abs(dr)}, Abs(dc), true
}
