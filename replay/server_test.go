package replay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/board"
)

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func postMove(t *testing.T, srv http.Handler, token string, seq ...int) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(api.MoveRequest{GameID: 1, UserUUID: token, Move: seq})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/move", strings.NewReader(string(body))))
	return w
}

func status(t *testing.T, srv http.Handler, token string) *api.GameStatus {
	t.Helper()
	w := get(t, srv, "/game_status?game_id=1&user_uuid="+token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	gs := &api.GameStatus{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(gs))
	return gs
}

func TestDefaultScript(t *testing.T) {
	s := DefaultScript()
	assert.Equal(t, 1, s.GameID)
	assert.Len(t, s.Frames, 6)
	assert.Equal(t, board.StartingPosition(), s.Frames[0].snap)
	assert.Equal(t, api.StatusDraw, s.Frames[5].Status)
}

func TestOptionsOnlyForPlayerOnTurn(t *testing.T) {
	srv := NewServer(DefaultScript())

	red := status(t, srv, "red-player")
	assert.Equal(t, "RED", red.MyColor)
	assert.Equal(t, "cesar", red.MyName)
	assert.Equal(t, "josie", red.OpponentName)
	assert.Equal(t, "RED", red.TurnOf)
	assert.Len(t, red.Options, 7)
	assert.Equal(t, map[string]int{"RED": 0, "GREEN": 0}, red.Points)
	assert.Len(t, red.GameBoard, board.Dim)

	green := status(t, srv, "green-player")
	assert.Equal(t, "GREEN", green.MyColor)
	assert.Empty(t, green.Options)
}

func TestPlayThrough(t *testing.T) {
	srv := NewServer(DefaultScript())

	assert.Equal(t, http.StatusOK, postMove(t, srv, "red-player", 10, 15).Code)
	green := status(t, srv, "green-player")
	assert.Equal(t, "GREEN", green.TurnOf)
	assert.Len(t, green.Options, 7)

	assert.Equal(t, http.StatusOK, postMove(t, srv, "green-player", 24, 19).Code)
	red := status(t, srv, "red-player")
	assert.Equal(t, [][]int{{15, -19, 24}}, red.Options)

	assert.Equal(t, http.StatusOK, postMove(t, srv, "red-player", 15, -19, 24).Code)
	assert.Equal(t, http.StatusOK, postMove(t, srv, "green-player", 28, -24, 19).Code)
	assert.Equal(t, http.StatusOK, postMove(t, srv, "red-player", 11, 15).Code)

	final := status(t, srv, "red-player")
	assert.Equal(t, api.StatusDraw, final.Status)
	assert.Equal(t, "", final.TurnOf)
	assert.Empty(t, final.Options)
	assert.Equal(t, 1, final.Points["GREEN"])
}

func TestRejectedMoves(t *testing.T) {
	srv := NewServer(DefaultScript())

	assert.Equal(t, http.StatusBadRequest, postMove(t, srv, "red-player", 10, 16).Code)
	assert.Equal(t, http.StatusBadRequest, postMove(t, srv, "green-player", 21, 17).Code)
	assert.Equal(t, http.StatusUnauthorized, postMove(t, srv, "stranger", 10, 15).Code)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/move", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing advanced.
	assert.Equal(t, "RED", status(t, srv, "red-player").TurnOf)
}

func TestStatusErrors(t *testing.T) {
	srv := NewServer(DefaultScript())
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/game_status?game_id=x&user_uuid=a").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/game_status?game_id=9&user_uuid=a").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/game_status?game_id=1&user_uuid=a").Code)
}

func TestCreateJoinListKill(t *testing.T) {
	srv := NewServer(DefaultScript())

	w := get(t, srv, "/game?type=PVP&name=ann")
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "2", loc.Query().Get("game_id"))
	assert.Equal(t, "ann", loc.Query().Get("name"))

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/game?type=CHESS").Code)

	// Without a token the server hands one out.
	w = get(t, srv, "/game?game_id=2&name=ann")
	require.Equal(t, http.StatusFound, w.Code)
	loc, err = url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.NotEmpty(t, loc.Query().Get("user_uuid"))

	assert.Equal(t, http.StatusOK, get(t, srv, "/game?game_id=2&name=ann&user_uuid=a").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/game?game_id=2&name=ann&user_uuid=a").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/game?game_id=2&name=bob&user_uuid=b").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/game?game_id=2&name=cy&user_uuid=c").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/game?game_id=7&name=cy&user_uuid=c").Code)

	gs, err := srv.Status(2, "b")
	require.NoError(t, err)
	assert.Equal(t, "GREEN", gs.MyColor)
	assert.Equal(t, "ann", gs.OpponentName)

	w = get(t, srv, "/list")
	require.Equal(t, http.StatusOK, w.Code)
	gl := api.GameList{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&gl))
	assert.Equal(t, []api.GameSummary{
		{GameID: 1, GameStatus: api.StatusInProgress},
		{GameID: 2, GameStatus: api.StatusInProgress},
	}, gl.Games)

	kill := func(id string) int {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/kill?game_id="+id, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, kill("2"))
	assert.Equal(t, http.StatusNotFound, kill("2"))
	assert.Len(t, srv.List().Games, 1)
}

func TestWaitingForOpponent(t *testing.T) {
	srv := NewServer(DefaultScript())
	id, err := srv.Create(api.GameTypePVP)
	require.NoError(t, err)
	require.NoError(t, srv.Join(id, "ann", "a"))

	gs, err := srv.Status(id, "a")
	require.NoError(t, err)
	assert.Equal(t, "", gs.OpponentName)
	// Nobody to play against yet.
	assert.ErrorIs(t, srv.Move(api.MoveRequest{GameID: id, UserUUID: "a", Move: []int{10, 15}}), ErrIllegalMove)
}

func TestComputerReplies(t *testing.T) {
	srv := NewServer(DefaultScript())
	id, err := srv.Create(api.GameTypePVC)
	require.NoError(t, err)
	require.NoError(t, srv.Join(id, "ann", "a"))

	require.NoError(t, srv.Move(api.MoveRequest{GameID: id, UserUUID: "a", Move: []int{10, 15}}))
	gs, err := srv.Status(id, "a")
	require.NoError(t, err)
	assert.Equal(t, "Computer", gs.OpponentName)
	// The computer answered 24-19, so we must capture.
	assert.Equal(t, "RED", gs.TurnOf)
	assert.Equal(t, [][]int{{15, -19, 24}}, gs.Options)
}

func TestParseScriptErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
	}{
		{"no frames", "game_id: 1\nplayers: [{color: RED}, {color: GREEN}]\n"},
		{"one player", "players: [{color: RED}]\nframes: [{turn_of: RED}]\n"},
		{"two reds", "players: [{color: RED}, {color: RED}]\nframes: [{turn_of: RED}]\n"},
		{"no turn", "players: [{color: RED}, {color: GREEN}]\nframes: [{status: IN_PROGRESS}]\n"},
		{"bad status", "players: [{color: RED}, {color: GREEN}]\nframes: [{turn_of: RED, status: PAUSED}]\n"},
		{"bad transition", "players: [{color: RED}, {color: GREEN}]\n" +
			"frames: [{turn_of: RED, options: [[9, 13]], next: [{move: [9, 14], frame: 0}]}]\n"},
		{"missing frame", "players: [{color: RED}, {color: GREEN}]\n" +
			"frames: [{turn_of: RED, options: [[9, 13]], next: [{move: [9, 13], frame: 3}]}]\n"},
		{"bad board", "players: [{color: RED}, {color: GREEN}]\nframes: [{turn_of: RED, board: [\"r\"]}]\n"},
		{"not yaml", "players: ["},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tc.yaml))
			assert.ErrorIs(t, err, ErrBadScript)
		})
	}
}

func TestNATSHandlers(t *testing.T) {
	srv := NewServer(DefaultScript())

	st := srv.natsStatus([]byte(`{"game_id":1,"user_uuid":"red-player"}`))
	assert.Empty(t, st.Error)
	assert.Equal(t, "RED", st.MyColor)

	st = srv.natsStatus([]byte(`{"game_id":1,"user_uuid":"nobody"}`))
	assert.Equal(t, ErrUnauthorized.Error(), st.Error)

	mv := srv.natsMove([]byte(`{"game_id":1,"user_uuid":"red-player","move":[10,16]}`))
	assert.False(t, mv.OK)
	mv = srv.natsMove([]byte(`{"game_id":1,"user_uuid":"red-player","move":[10,15]}`))
	assert.True(t, mv.OK)
	assert.False(t, srv.natsMove([]byte("nope")).OK)
}
