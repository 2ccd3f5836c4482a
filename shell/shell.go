// Package shell is the line-oriented front end: a readline loop whose
// commands click squares, poll the server and manage games.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/config"
	"github.com/domino14/kingme/game"
	"github.com/domino14/kingme/journal"
	"github.com/domino14/kingme/syncer"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errNoLobby           = errors.New("the lobby is only reachable over the http transport")
	errNoJournal         = errors.New("no journal; set journal-path to keep one")
)

// Lobby is the part of the server that lists, creates and joins games.
type Lobby interface {
	ListGames(ctx context.Context) (*api.GameList, error)
	CreateGame(ctx context.Context, gameType, name string) (int, error)
	JoinGame(ctx context.Context, gameID int, name, token string) error
	KillGame(ctx context.Context, gameID int) error
}

// History reads back moves this client sent and how games ended.
type History interface {
	Moves(ctx context.Context, gameID int) ([]journal.Entry, error)
	Outcome(ctx context.Context, gameID int) (game.Status, board.Color, bool, error)
}

type ShellController struct {
	l      *readline.Instance
	config *config.Config
	writer io.Writer

	sync    *syncer.Synchronizer
	lobby   Lobby
	history History

	token string
	name  string

	announceMu    sync.Mutex
	lastAnnounced string
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController makes a shell that reads from the terminal. lobby
// and history may be nil.
func NewShellController(cfg *config.Config, s *syncer.Synchronizer, lobby Lobby,
	history History, token string) *ShellController {

	sc := NewShellControllerWithWriter(cfg, s, lobby, history, token, os.Stdout)
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mkingme>\033[0m ",
		HistoryFile:     "/tmp/kingme-readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.writer = l.Stdout()
	return sc
}

// NewShellControllerWithWriter makes a shell with no terminal, writing
// responses to w. Commands are fed to it with Execute.
func NewShellControllerWithWriter(cfg *config.Config, s *syncer.Synchronizer, lobby Lobby,
	history History, token string, w io.Writer) *ShellController {

	return &ShellController{
		config:  cfg,
		writer:  w,
		sync:    s,
		lobby:   lobby,
		history: history,
		token:   token,
		name:    cfg.GetString(config.ConfigPlayerName),
	}
}

// Cleanup closes the terminal, which ends a running Loop.
func (sc *ShellController) Cleanup() {
	if sc.l != nil {
		sc.l.Close()
	}
}

// Announce shows the board when news arrives that the player must answer:
// the opponent moved or the game ended. It is meant for the synchronizer's
// OnChange; the player's own clicks are answered by their commands.
func (sc *ShellController) Announce(s *game.Session) {
	if !s.Loaded() || !(s.MyTurn() || s.Status.Over()) {
		return
	}
	key := fmt.Sprintf("%d/%x/%s/%s", s.GameID, s.Fingerprint(), s.TurnOf, s.Status)
	sc.announceMu.Lock()
	defer sc.announceMu.Unlock()
	if key == sc.lastAnnounced {
		return
	}
	sc.lastAnnounced = key
	sc.showMessage(s.ToDisplayText())
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.writer)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	// handle options
	lastWasOption := false
	lastOption := ""
	for idx := 1; idx < len(fields); idx++ {
		if strings.HasPrefix(fields[idx], "-") && !isNumber(fields[idx]) {
			if lastWasOption {
				return nil, errWrongOptionSyntax
			}
			lastWasOption = true
			lastOption = fields[idx][1:]
			continue
		}
		if lastWasOption {
			lastWasOption = false
			options[lastOption] = fields[idx]
		} else {
			args = append(args, fields[idx])
		}
	}
	if lastWasOption {
		return nil, errWrongOptionSyntax
	}
	return &shellcmd{
		cmd:     cmd,
		args:    args,
		options: options,
	}, nil
}

// isNumber lets negative square ids through as arguments.
func isNumber(s string) bool {
	if len(s) < 2 {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Loop reads commands until the user exits, ctx is done or input ends.
func (sc *ShellController) Loop(ctx context.Context) error {
	defer sc.l.Close()
	sc.showMessage(`Type "help" for commands.`)
	if s := sc.sync.Session(); s.Loaded() {
		sc.showMessage(s.ToDisplayText())
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := sc.Execute(ctx, line); quit {
			return nil
		}
	}
}

// Execute runs one command line and shows its result. It reports whether
// the line asked to quit.
func (sc *ShellController) Execute(ctx context.Context, line string) (quit bool) {
	resp, err := sc.standardModeSwitch(ctx, line)
	if errors.Is(err, errQuit) {
		return true
	}
	if err != nil {
		log.Debug().Err(err).Str("line", line).Msg("command-failed")
		sc.showError(err)
		return false
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
	return false
}

var errQuit = errors.New("quit")

func (sc *ShellController) standardModeSwitch(ctx context.Context, line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "bye":
		return nil, errQuit
	case "help":
		return sc.help(cmd)
	case "s", "board":
		return sc.show(cmd)
	case "status":
		return sc.status(cmd)
	case "options":
		return sc.options(cmd)
	case "poll":
		return sc.poll(ctx, cmd)
	case "click":
		return sc.click(ctx, cmd)
	case "cell":
		return sc.cell(ctx, cmd)
	case "sq":
		return sc.square(ctx, cmd)
	case "play":
		return sc.play(ctx, cmd)
	case "reset":
		return sc.reset(cmd)
	case "list":
		return sc.list(ctx, cmd)
	case "create":
		return sc.create(ctx, cmd)
	case "join":
		return sc.join(ctx, cmd)
	case "kill":
		return sc.kill(ctx, cmd)
	case "history":
		return sc.moveHistory(ctx, cmd)
	case "script":
		return sc.script(ctx, cmd)
	}
	return nil, fmt.Errorf("command %v not found", cmd.cmd)
}
