package game

import (
	"fmt"
	"strings"

	"github.com/domino14/kingme/board"
)

// OverlayMark is one square of the move under construction, in visual
// coordinates.
type OverlayMark struct {
	Cell     board.Cell
	ID       board.SquareID
	Captured bool
}

// Overlay returns the candidate move as it should be drawn.
func (s *Session) Overlay() []OverlayMark {
	cand := s.Candidate()
	marks := make([]OverlayMark, 0, len(cand))
	for _, v := range cand {
		id := board.SquareID(v)
		captured := false
		if v < 0 {
			id = -id
			captured = true
		}
		marks = append(marks, OverlayMark{
			Cell:     board.ToCanonical(board.IDToCell(id), s.MyColor),
			ID:       id,
			Captured: captured,
		})
	}
	return marks
}

// StatusLine summarizes the game the way the player should read it.
func (s *Session) StatusLine() string {
	if !s.loaded {
		return "Connecting..."
	}
	switch s.Status {
	case Draw:
		return "DRAW :)"
	case Won:
		if s.Winner == s.MyColor {
			return "YOU WON :D"
		}
		return "YOU LOST :C"
	}
	if !s.OpponentJoined() {
		return "Waiting for an opponent to join"
	}
	if s.MyTurn() {
		return "YOUR TURN"
	}
	return "OPPONENT'S TURN"
}

func addText(lines []string, row int, hpad int, text string) {
	if row >= len(lines) {
		return
	}
	lines[row] = lines[row] + strings.Repeat(" ", hpad) + text
}

// ToDisplayText turns the current state of the game into a displayable
// string.
func (s *Session) ToDisplayText() string {
	if !s.loaded {
		return s.StatusLine() + "\n"
	}
	marks := map[board.Cell]string{}
	for _, m := range s.Overlay() {
		if m.Captured {
			marks[m.Cell] = " xx "
		} else {
			marks[m.Cell] = fmt.Sprintf("[%2d]", m.ID)
		}
	}
	bt := s.Board.ToDisplayText(s.MyColor, marks)
	lines := strings.Split(bt, "\n")
	hpadding := 3

	oppName := s.OpponentName
	if oppName == "" {
		oppName = "(nobody yet)"
	}
	addText(lines, 1, hpadding, fmt.Sprintf("You:      %s (%s)", s.MyName, s.MyColor))
	addText(lines, 2, hpadding, fmt.Sprintf("Opponent: %s (%s)", oppName, s.MyColor.Opponent()))
	addText(lines, 3, hpadding, fmt.Sprintf("Points:   %d - %d",
		s.Points[s.MyColor], s.Points[s.MyColor.Opponent()]))
	addText(lines, 5, hpadding, s.StatusLine())
	if cand := s.Candidate(); len(cand) > 0 {
		addText(lines, 7, hpadding, "Building: "+cand.ShortDescription())
	}
	if s.CanAct() {
		addText(lines, 8, hpadding, fmt.Sprintf("%d legal moves", len(s.Options)))
	}
	return strings.Join(lines, "\n")
}
