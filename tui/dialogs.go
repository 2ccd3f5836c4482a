package tui

import (
	"strconv"
	"strings"

	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"github.com/domino14/kingme/api"
)

func (t *TUIApp) backToBoard() {
	t.app.SetRoot(t.layout, true).SetFocus(t.controls.GetView())
}

// showJoinDialog asks for a game to join or create. A blank game id
// creates a new game of the chosen type.
func (t *TUIApp) showJoinDialog() {
	if t.lobby == nil {
		t.updateStatus("[red]The lobby is only reachable over http.[-]")
		return
	}
	gameTypes := []string{api.GameTypePVP, api.GameTypePVC}

	form := tview.NewForm()
	form.AddInputField("Game id (blank for new)", "", 10, tview.InputFieldInteger, nil)
	form.AddInputField("Name", t.name, 30, nil, nil)
	form.AddDropDown("New game type", gameTypes, 0, nil)
	form.AddButton("Go", func() {
		idText := strings.TrimSpace(form.GetFormItem(0).(*tview.InputField).GetText())
		name := strings.TrimSpace(form.GetFormItem(1).(*tview.InputField).GetText())
		_, gameType := form.GetFormItem(2).(*tview.DropDown).GetCurrentOption()
		t.backToBoard()
		if name == "" {
			t.updateStatus("[red]A name is needed to join.[-]")
			return
		}
		gameID := 0
		if idText != "" {
			id, err := strconv.Atoi(idText)
			if err != nil {
				t.updateStatus("[red]Bad game id: " + idText + "[-]")
				return
			}
			gameID = id
		}
		log.Debug().Int("game-id", gameID).Str("name", name).Str("type", gameType).Msg("tui-join")
		t.updateStatus("Joining...")
		go t.enter(gameID, gameType, name)
	})
	form.AddButton("Cancel", func() {
		t.backToBoard()
	})
	form.SetBorder(true).SetTitle("Join or create a game")

	t.app.SetRoot(modal(form, 50, 11), true).SetFocus(form)
}

// enter joins (creating first if gameID is 0) and switches the
// synchronizer over. It runs off the UI goroutine.
func (t *TUIApp) enter(gameID int, gameType, name string) {
	var err error
	if gameID == 0 {
		gameID, err = t.lobby.CreateGame(t.ctx, gameType, name)
		if err != nil {
			t.queueStatus("[red]Create failed: " + err.Error() + "[-]")
			return
		}
	}
	if err = t.lobby.JoinGame(t.ctx, gameID, name, t.token); err != nil {
		t.queueStatus("[red]Join failed: " + err.Error() + "[-]")
		return
	}
	t.name = name
	t.sync.Switch(gameID, t.token)
	if _, err := t.sync.Poll(t.ctx, true); err != nil {
		t.queueStatus("[red]Poll failed: " + err.Error() + "[-]")
		return
	}
	t.queueStatus("Joined game " + strconv.Itoa(gameID) + " as " + name)
}

// modal centers p in a box of the given size.
func modal(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}
