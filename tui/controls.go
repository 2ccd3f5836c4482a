package tui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/samber/lo"

	"github.com/domino14/kingme/game"
	"github.com/domino14/kingme/move"
)

type ControlsPanel struct {
	view      *tview.Flex
	tuiApp    *TUIApp
	buttons   map[string]*tview.Button
	movesList *tview.TextView
}

func NewControlsPanel(tuiApp *TUIApp) *ControlsPanel {
	panel := &ControlsPanel{
		tuiApp:  tuiApp,
		buttons: make(map[string]*tview.Button),
	}

	panel.setupControls()
	return panel
}

func (cp *ControlsPanel) setupControls() {
	buttonGrid := tview.NewFlex().SetDirection(tview.FlexColumn)

	cp.buttons["reset"] = tview.NewButton("Reset (r)").SetSelectedFunc(func() {
		cp.tuiApp.resetMove()
	})
	cp.buttons["poll"] = tview.NewButton("Poll (p)").SetSelectedFunc(func() {
		cp.tuiApp.pollNow()
	})
	cp.buttons["join"] = tview.NewButton("Join (j)").SetSelectedFunc(func() {
		cp.tuiApp.showJoinDialog()
	})
	cp.buttons["debug"] = tview.NewButton("Debug (d)").SetSelectedFunc(func() {
		cp.tuiApp.showLogViewer()
	})

	for _, k := range []string{"reset", "poll", "join", "debug"} {
		buttonGrid.AddItem(cp.buttons[k], 0, 1, false)
	}

	cp.movesList = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false).
		SetScrollable(true)
	cp.movesList.SetBorder(true).SetTitle("Moves")
	cp.movesList.SetText("Waiting for the server.")

	cp.view = tview.NewFlex().SetDirection(tview.FlexRow)
	cp.view.SetBorder(true).SetTitle("Controls")
	cp.view.AddItem(buttonGrid, 1, 0, true)
	cp.view.AddItem(cp.movesList, 0, 1, false)
}

func (cp *ControlsPanel) GetView() tview.Primitive {
	return cp.view
}

func (cp *ControlsPanel) Refresh(s *game.Session) {
	cp.movesList.SetText(movesText(s))
}

// movesText lists the legal moves, narrowed to those that extend the move
// being built.
func movesText(s *game.Session) string {
	if !s.CanAct() {
		return "No moves to make right now."
	}
	opts := s.Options
	cand := s.Candidate()
	if len(cand) > 0 {
		opts = opts.Continuations(cand)
	}
	if len(opts) == 0 {
		return "No legal moves."
	}
	lines := lo.Map(opts, func(o move.Sequence, _ int) string {
		return fmt.Sprintf("%-12s %v", o.ShortDescription(), o)
	})
	return strings.Join(lines, "\n")
}
