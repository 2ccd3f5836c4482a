package tui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/game"
)

type InfoPanel struct {
	view *tview.TextView
}

func NewInfoPanel() *InfoPanel {
	panel := &InfoPanel{}

	panel.view = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	panel.view.SetBorder(true).SetTitle("Game")
	panel.view.SetText("Not connected yet.")

	return panel
}

func (ip *InfoPanel) GetView() tview.Primitive {
	return ip.view
}

func (ip *InfoPanel) Refresh(s *game.Session) {
	ip.view.SetText(infoText(s))
}

func colorTag(c board.Color) string {
	if c == board.Green {
		return "lime"
	}
	return "red"
}

func infoText(s *game.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Game: %d\n\n", s.GameID)
	if !s.Loaded() {
		sb.WriteString(s.StatusLine())
		return sb.String()
	}
	me, opp := s.MyColor, s.MyColor.Opponent()
	oppName := s.OpponentName
	if oppName == "" {
		oppName = "(nobody yet)"
	}
	for _, p := range []struct {
		label string
		name  string
		color board.Color
	}{{"You", s.MyName, me}, {"Opponent", oppName, opp}} {
		marker := "  "
		if s.TurnOf == p.color {
			marker = "→ "
		}
		men, kings := s.Board.Count(p.color)
		fmt.Fprintf(&sb, "%s[%s]%s[-]: %s\n", marker, colorTag(p.color), p.label, p.name)
		fmt.Fprintf(&sb, "    points %d, men %d, kings %d\n", s.Points[p.color], men, kings)
	}
	fmt.Fprintf(&sb, "\n[yellow]%s[-]", s.StatusLine())
	if cand := s.Candidate(); len(cand) > 0 {
		fmt.Fprintf(&sb, "\n\nBuilding: %s", cand.ShortDescription())
	}
	return sb.String()
}
