package shell

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/config"
	"github.com/domino14/kingme/game"
	"github.com/domino14/kingme/journal"
	"github.com/domino14/kingme/replay"
	"github.com/domino14/kingme/syncer"
	"github.com/domino14/kingme/transport"
)

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"script -file /path/to/game.lua",
			&shellcmd{"script", nil, CmdOptions{"file": "/path/to/game.lua"}},
			nil},
		{"sq 9",
			&shellcmd{"sq", []string{"9"}, CmdOptions{}},
			nil},
		{"play 15 -19 24",
			&shellcmd{"play", []string{"15", "-19", "24"}, CmdOptions{}},
			nil},
		{"create pvp extra -name 'ann b' ",
			&shellcmd{"create",
				[]string{"pvp", "extra"},
				CmdOptions{"name": "ann b"}},
			nil,
		},
		{"create -type PVC -name",
			nil, errWrongOptionSyntax},
		{"create -type -name ann",
			nil, errWrongOptionSyntax},
	}
	for _, t := range cases {
		cmd, err := extractFields(t.line)
		is.Equal(cmd, t.expCmd)
		is.Equal(err, t.expErr)
	}
}

type harness struct {
	sc  *ShellController
	out *bytes.Buffer
	srv *replay.Server
}

func newHarness(t *testing.T, token string, withJournal bool) *harness {
	t.Helper()
	srv := replay.NewServer(replay.DefaultScript())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := &config.Config{}
	if err := cfg.Load([]string{"--player-name", "ann"}); err != nil {
		t.Fatal(err)
	}
	client, err := transport.NewHTTPClient(ts.URL, time.Second, 1)
	if err != nil {
		t.Fatal(err)
	}
	s := syncer.New(client, 1, token)
	var hist History
	if withJournal {
		j, err := journal.Open(filepath.Join(t.TempDir(), "j.db"))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { j.Close() })
		s.SetRecorder(j)
		hist = j
	}
	out := &bytes.Buffer{}
	return &harness{
		sc:  NewShellControllerWithWriter(cfg, s, client, hist, token, out),
		out: out,
		srv: srv,
	}
}

// run executes line and returns what it printed.
func (h *harness) run(line string) string {
	h.out.Reset()
	h.sc.Execute(context.Background(), line)
	return h.out.String()
}

func TestPlayAMove(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, "red-player", true)

	is.True(strings.Contains(h.run("poll"), "YOUR TURN"))
	is.True(strings.Contains(h.run("options"), "10-15"))

	is.True(strings.Contains(h.run("sq 10"), "Building 10"))
	out := h.run("sq 15")
	is.True(strings.Contains(out, "Played 10-15"))
	is.True(strings.Contains(out, "OPPONENT'S TURN"))

	is.True(strings.Contains(h.run("sq 9"), "Click ignored"))
	hist := h.run("history")
	is.True(strings.Contains(hist, "10-15"))
	is.True(!strings.Contains(hist, "Result"))
}

func TestHistoryShowsResult(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, "red-player", true)
	j := h.sc.history.(*journal.Journal)
	is.NoErr(j.RecordOutcome(context.Background(), 3, game.Won, board.Red))

	out := h.run("history 3")
	is.True(strings.Contains(out, "No moves recorded for game 3."))
	is.True(strings.Contains(out, "Result: WON, RED wins"))
}

func TestIllegalClickResets(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, "red-player", false)
	h.run("poll")
	h.run("sq 10")
	is.True(strings.Contains(h.run("sq 16"), "Not a legal move"))
	is.Equal(len(h.sc.sync.Session().Candidate()), 0)
	is.True(strings.Contains(h.run("history"), "no journal"))
}

func TestCellUsesPerspective(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, "red-player", false)
	h.run("poll")
	// Red sees square 10, board cell (3,2), at visual (4,5).
	c := board.ToCanonical(board.Cell{Col: 4, Row: 5}, board.Red)
	id, ok := board.CellToID(c)
	is.True(ok)
	is.Equal(id, board.SquareID(10))

	is.True(strings.Contains(h.run("cell 4 5"), "Building 10"))
	// And 15, cell (4,3), is drawn at (3,4): pixel (3*75+1, 4*75+1).
	is.True(strings.Contains(h.run("click 226 301"), "Played 10-15"))
}

func TestPlayCommandWithCapture(t *testing.T) {
	is := is.New(t)
	red := newHarness(t, "red-player", false)
	red.run("poll")
	is.True(strings.Contains(red.run("play 10 15"), "Played"))

	// Same server, now as green.
	green := NewShellControllerWithWriter(red.sc.config,
		syncer.New(red.sc.lobby.(transport.Transport), 1, "green-player"),
		red.sc.lobby, nil, "green-player", red.out)
	red.out.Reset()
	green.Execute(context.Background(), "poll")
	red.out.Reset()
	green.Execute(context.Background(), "play 24 19")
	is.True(strings.Contains(red.out.String(), "Played 24-19"))

	red.run("poll")
	is.True(strings.Contains(red.run("play 15 -19 24"), "Played 15x24"))
}

func TestLobbyCommands(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, "tok-a", false)

	out := h.run("create -type PVC")
	is.True(strings.Contains(out, "Joined game 2 as ann"))
	is.Equal(h.sc.sync.Session().GameID, 2)
	is.True(strings.Contains(h.run("status"), "YOUR TURN"))

	out = h.run("list")
	is.True(strings.Contains(out, "1  IN_PROGRESS"))
	is.True(strings.Contains(out, "2  IN_PROGRESS"))

	is.True(strings.Contains(h.run("kill 2"), "Game 2 killed"))
	is.True(strings.Contains(h.run("join 2"), "Error"))
	is.True(strings.Contains(h.run("create -type chess"), "PVP or PVC"))
}

func TestUnknownAndHelp(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, "red-player", false)
	is.True(strings.Contains(h.run("frobnicate"), "command frobnicate not found"))
	is.True(strings.Contains(h.run("help"), "Usage:"))
	is.True(strings.Contains(h.run("help play"), "play 15 -19 24"))
	is.True(strings.Contains(h.run("help nothing"), "no help text"))
	is.True(h.sc.Execute(context.Background(), "exit"))
}

func TestScript(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, "red-player", false)
	path := filepath.Join(t.TempDir(), "play.lua")
	is.NoErr(os.WriteFile(path, []byte(`
kingme_poll()
local st = kingme_status()
assert(st.my_color == "RED", "color " .. tostring(st.my_color))
assert(st.can_act, "should be able to act")
assert(kingme_sq(10) == "building")
assert(kingme_sq(15) == "complete")
local after = kingme_status()
assert(after.turn_of == "GREEN", "turn " .. tostring(after.turn_of))
assert(#after.candidate == 0)
assert(json.decode(json.encode({a = 1})).a == 1)
`), 0o644))
	out := h.run("script " + path)
	is.Equal(out, "")
	is.Equal(h.sc.sync.Session().TurnOf, board.Green)
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, "red-player", false)
	c := NewShellCompleter(h.sc)

	matches, n := c.Do([]rune("cr"), 2)
	is.Equal(n, 2)
	is.Equal(matches, [][]rune{[]rune("eate")})

	line := []rune("create -type P")
	matches, _ = c.Do(line, len(line))
	is.Equal(len(matches), 2)

	h.run("poll")
	line = []rune("sq 1")
	matches, _ = c.Do(line, len(line))
	// 10, 11 and 12 start legal moves.
	is.Equal(len(matches), 3)
}

func TestAnnounce(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, "green-player", false)
	h.sc.sync.OnChange(h.sc.Announce)
	h.out.Reset()
	_, err := h.sc.sync.Poll(context.Background(), true)
	is.NoErr(err)
	// Red to move: nothing to tell green yet.
	is.Equal(h.out.String(), "")

	h.sc.sync.Switch(1, "red-player")
	_, err = h.sc.sync.Poll(context.Background(), true)
	is.NoErr(err)
	is.True(strings.Contains(h.out.String(), "YOUR TURN"))

	// The same position is not shown twice.
	h.out.Reset()
	h.sc.Announce(h.sc.sync.Session())
	is.Equal(h.out.String(), "")
	_, err = h.sc.sync.Poll(context.Background(), true)
	is.NoErr(err)
	is.Equal(h.out.String(), "")
}
