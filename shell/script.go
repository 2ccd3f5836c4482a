package shell

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"

	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/move"
)

const shellGlobal = "kingme_shell"

// luaShell is what a running script holds on to.
type luaShell struct {
	sc  *ShellController
	ctx context.Context
}

func getShell(L *lua.LState) *luaShell {
	shell := L.GetGlobal(shellGlobal)
	ud, ok := shell.(*lua.LUserData)
	if !ok {
		panic("luserdata not right type")
	}
	ls, ok := ud.Value.(*luaShell)
	if !ok {
		panic("shellcontroller not right type")
	}
	return ls
}

// clicked sends a finished move and pushes the builder state.
func clicked(L *lua.LState, ls *luaShell, out move.Outcome, handled bool) int {
	if !handled {
		L.Push(lua.LString("ignored"))
		return 1
	}
	if out.State == move.Complete {
		if err := ls.sc.sync.Flush(ls.ctx); err != nil {
			log.Err(err).Msg("error-submitting-move")
			L.Push(lua.LString("ERROR: " + err.Error()))
			return 1
		}
	}
	L.Push(lua.LString(out.State.String()))
	// return number of results pushed to stack.
	return 1
}

func Square(L *lua.LState) int {
	id := L.CheckInt(1)
	ls := getShell(L)
	out, handled := ls.sc.sync.ClickSquare(board.SquareID(id))
	return clicked(L, ls, out, handled)
}

func Cell(L *lua.LState) int {
	col, row := L.CheckInt(1), L.CheckInt(2)
	ls := getShell(L)
	out, handled := ls.sc.sync.ClickCell(board.Cell{Col: col, Row: row})
	return clicked(L, ls, out, handled)
}

func Click(L *lua.LState) int {
	x, y := L.CheckInt(1), L.CheckInt(2)
	ls := getShell(L)
	out, handled := ls.sc.sync.ClickPixel(board.DefaultGeometry, x, y)
	return clicked(L, ls, out, handled)
}

func Reset(L *lua.LState) int {
	getShell(L).sc.sync.Reset()
	return 0
}

func Poll(L *lua.LState) int {
	ls := getShell(L)
	if _, err := ls.sc.sync.Poll(ls.ctx, true); err != nil {
		log.Err(err).Msg("error-executing-poll")
		L.Push(lua.LString("ERROR: " + err.Error()))
		return 1
	}
	L.Push(lua.LString(ls.sc.sync.Session().StatusLine()))
	return 1
}

func Status(L *lua.LState) int {
	ls := getShell(L)
	data, err := json.Marshal(ls.sc.summary())
	if err != nil {
		log.Err(err).Msg("error-encoding-status")
		return 0
	}
	v, err := luajson.Decode(L, data)
	if err != nil {
		log.Err(err).Msg("error-decoding-status")
		return 0
	}
	L.Push(v)
	return 1
}

func (sc *ShellController) script(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return nil, errors.New("need arguments for script")
	}

	filepath := cmd.args[0]

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	luajson.Preload(L)
	if err := L.DoString(`json = require("json")`); err != nil {
		return nil, err
	}

	lsc := L.NewUserData()
	lsc.Value = &luaShell{sc: sc, ctx: ctx}

	L.SetGlobal(shellGlobal, lsc)
	L.SetGlobal("kingme_sq", L.NewFunction(Square))
	L.SetGlobal("kingme_cell", L.NewFunction(Cell))
	L.SetGlobal("kingme_click", L.NewFunction(Click))
	L.SetGlobal("kingme_reset", L.NewFunction(Reset))
	L.SetGlobal("kingme_poll", L.NewFunction(Poll))
	L.SetGlobal("kingme_status", L.NewFunction(Status))

	if err := L.DoFile(filepath); err != nil {
		log.Err(err).Msg("there was a error")
		return nil, err
	}
	return nil, nil
}
