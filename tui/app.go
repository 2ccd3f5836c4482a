// Package tui is a full-screen front end: the board can be clicked with
// the mouse and redraws whenever the synchronizer sees a change.
package tui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"github.com/domino14/kingme/config"
	"github.com/domino14/kingme/game"
	"github.com/domino14/kingme/move"
	"github.com/domino14/kingme/syncer"
)

// Lobby creates and joins games.
type Lobby interface {
	CreateGame(ctx context.Context, gameType, name string) (int, error)
	JoinGame(ctx context.Context, gameID int, name, token string) error
}

type TUIApp struct {
	app        *tview.Application
	sync       *syncer.Synchronizer
	lobby      Lobby
	layout     *tview.Flex
	boardPanel *BoardPanel
	infoPanel  *InfoPanel
	controls   *ControlsPanel
	statusBar  *tview.TextView
	logCapture *LogCapture

	ctx   context.Context
	token string
	name  string
}

// NewTUIApp builds the UI around s. lobby may be nil. Logging is
// redirected into the app, so call this before starting s.
func NewTUIApp(cfg *config.Config, s *syncer.Synchronizer, lobby Lobby, token string) *TUIApp {
	app := tview.NewApplication()
	app.EnableMouse(true)

	tuiApp := &TUIApp{
		app:   app,
		sync:  s,
		lobby: lobby,
		ctx:   context.Background(),
		token: token,
		name:  cfg.GetString(config.ConfigPlayerName),
	}

	tuiApp.initLogging(cfg.GetBool(config.ConfigDebug))
	tuiApp.setupLayout()
	tuiApp.setupKeyBindings()

	// OnChange may fire on the UI goroutine itself (a click), where
	// waiting on QueueUpdateDraw would block forever.
	s.OnChange(func(*game.Session) {
		go app.QueueUpdateDraw(tuiApp.refresh)
	})

	return tuiApp
}

func (t *TUIApp) setupLayout() {
	t.boardPanel = NewBoardPanel(t)
	t.infoPanel = NewInfoPanel()
	t.controls = NewControlsPanel(t)
	t.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	t.statusBar.SetBorder(true).SetTitle("Status")

	// The board's inner area is exactly the drawn squares.
	boardWidth := cellWidth*8 + 2
	boardHeight := cellHeight*8 + 2
	leftPanel := tview.NewFlex().SetDirection(tview.FlexRow)
	leftPanel.AddItem(t.boardPanel.GetView(), boardHeight, 0, false)
	leftPanel.AddItem(nil, 0, 1, false)

	rightPanel := tview.NewFlex().SetDirection(tview.FlexRow)
	rightPanel.AddItem(t.infoPanel.GetView(), 12, 0, false)
	rightPanel.AddItem(t.controls.GetView(), 0, 1, true)

	mainLayout := tview.NewFlex().SetDirection(tview.FlexColumn)
	mainLayout.AddItem(leftPanel, boardWidth, 0, false)
	mainLayout.AddItem(rightPanel, 0, 1, true)

	t.layout = tview.NewFlex().SetDirection(tview.FlexRow)
	t.layout.AddItem(mainLayout, 0, 1, true)
	t.layout.AddItem(t.statusBar, 3, 0, false)
}

func (t *TUIApp) setupKeyBindings() {
	t.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Forms handle their own keys.
		switch t.app.GetFocus().(type) {
		case *tview.InputField, *tview.DropDown:
			return event
		}

		switch event.Rune() {
		case 'q', 'Q':
			t.app.Stop()
			return nil
		case 'r':
			t.resetMove()
			return nil
		case 'p':
			t.pollNow()
			return nil
		case 'j':
			t.showJoinDialog()
			return nil
		case 'd':
			t.showLogViewer()
			return nil
		}
		return event
	})
}

// Run shows the UI until the user quits or ctx is done.
func (t *TUIApp) Run(ctx context.Context) error {
	t.ctx = ctx
	go func() {
		<-ctx.Done()
		t.app.Stop()
	}()
	t.refresh()
	t.updateStatus("Click a piece, then where it goes. 'r' reset, 'p' poll, 'j' join, 'd' debug log, 'q' quit.")
	return t.app.SetRoot(t.layout, true).SetFocus(t.controls.GetView()).Run()
}

func (t *TUIApp) updateStatus(message string) {
	t.statusBar.SetText(message)
}

// queueStatus sets the status bar from outside the UI goroutine.
func (t *TUIApp) queueStatus(message string) {
	t.app.QueueUpdateDraw(func() {
		t.updateStatus(message)
	})
}

func (t *TUIApp) click(px, py int) {
	out, handled := t.sync.ClickPixel(cellGeometry, px, py)
	t.updateStatus(clickMessage(t.sync.Session(), out, handled))
}

func clickMessage(s *game.Session, out move.Outcome, handled bool) string {
	if !handled {
		return s.StatusLine()
	}
	switch out.State {
	case move.Idle:
		return "Not a legal move; start again."
	case move.Building:
		return "Building " + s.Candidate().ShortDescription()
	}
	return fmt.Sprintf("Sending %s...", out.Submit.ShortDescription())
}

func (t *TUIApp) resetMove() {
	t.sync.Reset()
	t.updateStatus("Move cleared.")
}

func (t *TUIApp) pollNow() {
	t.updateStatus("Polling...")
	go func() {
		if _, err := t.sync.Poll(t.ctx, true); err != nil {
			log.Err(err).Msg("tui-poll-failed")
			t.queueStatus("[red]Poll failed: " + err.Error() + "[-]")
			return
		}
		t.queueStatus(t.sync.Session().StatusLine())
	}()
}

func (t *TUIApp) refresh() {
	s := t.sync.Session()
	t.boardPanel.Refresh(s)
	t.infoPanel.Refresh(s)
	t.controls.Refresh(s)
}
