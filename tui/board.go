package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/game"
)

// Each square is drawn cellWidth characters wide and cellHeight lines
// tall, so that it looks roughly square in a terminal.
const (
	cellWidth  = 4
	cellHeight = 2
)

var cellGeometry = board.Geometry{Width: cellWidth, Height: cellHeight}

type BoardPanel struct {
	view   *tview.TextView
	tuiApp *TUIApp
}

func NewBoardPanel(tuiApp *TUIApp) *BoardPanel {
	panel := &BoardPanel{
		tuiApp: tuiApp,
	}

	panel.view = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetScrollable(false)

	panel.view.SetBorder(true).SetTitle("Board")
	panel.view.SetText("Connecting...")
	panel.view.SetMouseCapture(panel.mouse)

	return panel
}

func (bp *BoardPanel) GetView() tview.Primitive {
	return bp.view
}

func (bp *BoardPanel) mouse(action tview.MouseAction, event *tcell.EventMouse) (tview.MouseAction, *tcell.EventMouse) {
	if action != tview.MouseLeftClick {
		return action, event
	}
	x, y := event.Position()
	ix, iy, _, _ := bp.view.GetInnerRect()
	if px, py, ok := boardPoint(ix, iy, x, y); ok {
		bp.tuiApp.click(px, py)
	}
	return action, event
}

// boardPoint turns a screen position into a point on the drawn board,
// whose top-left corner is at (ix, iy).
func boardPoint(ix, iy, x, y int) (px, py int, ok bool) {
	px, py = x-ix, y-iy
	if px < 0 || py < 0 || px >= board.Dim*cellWidth || py >= board.Dim*cellHeight {
		return 0, 0, false
	}
	return px, py, true
}

func (bp *BoardPanel) Refresh(s *game.Session) {
	if !s.Loaded() {
		bp.view.SetText(s.StatusLine())
		return
	}
	bp.view.SetText(renderBoard(s))
}

// renderBoard draws the board as the player sees it, using tview color
// tags. The top line of a square shows its piece; the bottom line shows
// the square number of empty dark squares.
func renderBoard(s *game.Session) string {
	marks := map[board.Cell]game.OverlayMark{}
	for _, m := range s.Overlay() {
		marks[m.Cell] = m
	}
	var sb strings.Builder
	for vr := 0; vr < board.Dim; vr++ {
		for line := 0; line < cellHeight; line++ {
			for vc := 0; vc < board.Dim; vc++ {
				visual := board.Cell{Col: vc, Row: vr}
				canonical := board.ToCanonical(visual, s.MyColor)
				sb.WriteString(renderSquare(s.Board.At(canonical), canonical, marks, visual, line))
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderSquare(p board.Piece, canonical board.Cell, marks map[board.Cell]game.OverlayMark,
	visual board.Cell, line int) string {

	id, playable := board.CellToID(canonical)
	if !playable {
		return "[:white]    [-:-]"
	}
	bg := "darkslategray"
	if m, ok := marks[visual]; ok {
		if m.Captured {
			bg = "darkred"
		} else {
			bg = "olive"
		}
	}
	text := "    "
	switch {
	case line == 0 && p != board.Empty:
		fg := "red"
		if p.Color() == board.Green {
			fg = "lime"
		}
		glyph := " () "
		if p.IsKing() {
			glyph = " <> "
		}
		return fmt.Sprintf("[%s:%s:b]%s[-:-:-]", fg, bg, glyph)
	case line == 1 && p == board.Empty:
		text = fmt.Sprintf("%3d ", id)
	}
	return fmt.Sprintf("[gray:%s]%s[-:-]", bg, text)
}
