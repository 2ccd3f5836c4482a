package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/game"
	"github.com/domino14/kingme/move"
)

type Response struct {
	message string
}

type CmdOptions map[string]string

func (c CmdOptions) String(key string) string {
	return c[key]
}

func (c CmdOptions) StringDefault(key, def string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

func (c CmdOptions) Int(key string) (int, error) {
	v, ok := c[key]
	if !ok {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v)
}

func msg(message string) *Response {
	return &Response{message: message}
}

func intArgs(cmd *shellcmd, n int, usage string) ([]int, error) {
	if len(cmd.args) != n {
		return nil, errors.New("usage: " + usage)
	}
	out := make([]int, n)
	for i, a := range cmd.args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number; usage: %s", a, usage)
		}
		out[i] = v
	}
	return out, nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	return msg(sc.sync.Session().ToDisplayText()), nil
}

func (sc *ShellController) status(cmd *shellcmd) (*Response, error) {
	s := sc.sync.Session()
	var sb strings.Builder
	fmt.Fprintf(&sb, "game %d: %s\n", s.GameID, s.StatusLine())
	if s.Loaded() {
		fmt.Fprintf(&sb, "playing %s as %s; turn of %s; poll %s",
			s.MyName, s.MyColor, s.TurnOf, s.Poll)
	}
	if n := sc.sync.Pending(); n > 0 {
		fmt.Fprintf(&sb, "\n%d move(s) waiting to be sent", n)
	}
	return msg(sb.String()), nil
}

func (sc *ShellController) options(cmd *shellcmd) (*Response, error) {
	s := sc.sync.Session()
	if !s.CanAct() {
		return msg("No moves to make right now: " + s.StatusLine()), nil
	}
	opts := s.Options
	if cand := s.Candidate(); len(cand) > 0 {
		opts = opts.Continuations(cand)
	}
	if len(opts) == 0 {
		return msg("No legal moves."), nil
	}
	lines := lo.Map(opts, func(o move.Sequence, i int) string {
		return fmt.Sprintf("%3d: %-16s%v", i+1, o.ShortDescription(), o)
	})
	return msg(strings.Join(lines, "\n")), nil
}

func (sc *ShellController) poll(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if _, err := sc.sync.Poll(ctx, true); err != nil {
		return nil, err
	}
	return msg(sc.sync.Session().ToDisplayText()), nil
}

// afterClick describes a click and, if it finished a move, sends it right
// away so the answer shows the new position.
func (sc *ShellController) afterClick(ctx context.Context, out move.Outcome, handled bool) (*Response, error) {
	s := sc.sync.Session()
	if !handled {
		return msg("Click ignored: " + s.StatusLine()), nil
	}
	switch out.State {
	case move.Idle:
		return msg("Not a legal move; start again."), nil
	case move.Building:
		cand := s.Candidate()
		next := s.Options.Continuations(cand)
		return msg(fmt.Sprintf("Building %s (%d way(s) to go on)", cand.ShortDescription(), len(next))), nil
	}
	err := sc.sync.Flush(ctx)
	if err != nil {
		return nil, fmt.Errorf("move %s was not accepted: %w", out.Submit.ShortDescription(), err)
	}
	return msg("Played " + out.Submit.ShortDescription() + "\n" + sc.sync.Session().ToDisplayText()), nil
}

func (sc *ShellController) click(ctx context.Context, cmd *shellcmd) (*Response, error) {
	v, err := intArgs(cmd, 2, "click <x> <y>")
	if err != nil {
		return nil, err
	}
	out, handled := sc.sync.ClickPixel(board.DefaultGeometry, v[0], v[1])
	return sc.afterClick(ctx, out, handled)
}

func (sc *ShellController) cell(ctx context.Context, cmd *shellcmd) (*Response, error) {
	v, err := intArgs(cmd, 2, "cell <col> <row>")
	if err != nil {
		return nil, err
	}
	out, handled := sc.sync.ClickCell(board.Cell{Col: v[0], Row: v[1]})
	return sc.afterClick(ctx, out, handled)
}

func (sc *ShellController) square(ctx context.Context, cmd *shellcmd) (*Response, error) {
	v, err := intArgs(cmd, 1, "sq <square>")
	if err != nil {
		return nil, err
	}
	out, handled := sc.sync.ClickSquare(board.SquareID(v[0]))
	return sc.afterClick(ctx, out, handled)
}

// play clicks each landing square in turn. Captured squares may be given
// with a minus sign; they are skipped since the builder finds them.
func (sc *ShellController) play(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: play <square> <square> ...")
	}
	sc.sync.Reset()
	var out move.Outcome
	handled := false
	for _, a := range cmd.args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%q is not a square", a)
		}
		if id < 0 {
			continue
		}
		out, handled = sc.sync.ClickSquare(board.SquareID(id))
		if !handled || out.State != move.Building {
			break
		}
	}
	return sc.afterClick(ctx, out, handled)
}

func (sc *ShellController) reset(cmd *shellcmd) (*Response, error) {
	sc.sync.Reset()
	return msg("Move cleared."), nil
}

func (sc *ShellController) list(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if sc.lobby == nil {
		return nil, errNoLobby
	}
	gl, err := sc.lobby.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	if len(gl.Games) == 0 {
		return msg("No games."), nil
	}
	lines := lo.Map(gl.Games, func(g api.GameSummary, _ int) string {
		return fmt.Sprintf("%5d  %s", g.GameID, g.GameStatus)
	})
	return msg(strings.Join(lines, "\n")), nil
}

func (sc *ShellController) playerName(cmd *shellcmd) string {
	return cmd.options.StringDefault("name", sc.name)
}

func (sc *ShellController) enter(ctx context.Context, gameID int, name string) (*Response, error) {
	if name == "" {
		return nil, errors.New("need a name: pass -name or set player-name")
	}
	if err := sc.lobby.JoinGame(ctx, gameID, name, sc.token); err != nil {
		return nil, err
	}
	sc.name = name
	sc.sync.Switch(gameID, sc.token)
	if _, err := sc.sync.Poll(ctx, true); err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("Joined game %d as %s\n%s", gameID, name, sc.sync.Session().ToDisplayText())), nil
}

func (sc *ShellController) create(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if sc.lobby == nil {
		return nil, errNoLobby
	}
	gameType := strings.ToUpper(cmd.options.StringDefault("type", api.GameTypePVP))
	if gameType != api.GameTypePVP && gameType != api.GameTypePVC {
		return nil, errors.New("type must be PVP or PVC")
	}
	name := sc.playerName(cmd)
	id, err := sc.lobby.CreateGame(ctx, gameType, name)
	if err != nil {
		return nil, err
	}
	return sc.enter(ctx, id, name)
}

func (sc *ShellController) join(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if sc.lobby == nil {
		return nil, errNoLobby
	}
	v, err := intArgs(cmd, 1, "join <game-id> [-name <name>]")
	if err != nil {
		return nil, err
	}
	return sc.enter(ctx, v[0], sc.playerName(cmd))
}

func (sc *ShellController) kill(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if sc.lobby == nil {
		return nil, errNoLobby
	}
	v, err := intArgs(cmd, 1, "kill <game-id>")
	if err != nil {
		return nil, err
	}
	if err := sc.lobby.KillGame(ctx, v[0]); err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("Game %d killed.", v[0])), nil
}

func (sc *ShellController) moveHistory(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if sc.history == nil {
		return nil, errNoJournal
	}
	gameID := sc.sync.Session().GameID
	if len(cmd.args) > 0 {
		v, err := intArgs(cmd, 1, "history [game-id]")
		if err != nil {
			return nil, err
		}
		gameID = v[0]
	}
	entries, err := sc.history.Moves(ctx, gameID)
	if err != nil {
		return nil, err
	}
	status, winner, over, err := sc.history.Outcome(ctx, gameID)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	if len(entries) == 0 {
		fmt.Fprintf(&sb, "No moves recorded for game %d.\n", gameID)
	}
	for i, e := range entries {
		fmt.Fprintf(&sb, "%3d. %-6s %-16s %s\n", i+1, e.Color, e.Seq.ShortDescription(),
			e.At.Format("15:04:05"))
	}
	if over {
		fmt.Fprintf(&sb, "Result: %s", status)
		if winner != board.NoColor {
			fmt.Fprintf(&sb, ", %s wins", winner)
		}
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

// statusSummary is what scripts see of the session.
type statusSummary struct {
	GameID     int     `json:"game_id"`
	MyColor    string  `json:"my_color"`
	TurnOf     string  `json:"turn_of"`
	Status     string  `json:"status"`
	StatusLine string  `json:"status_line"`
	CanAct     bool    `json:"can_act"`
	Candidate  []int   `json:"candidate"`
	Options    [][]int `json:"options"`
	Pending    int     `json:"pending"`
}

func (sc *ShellController) summary() statusSummary {
	s := sc.sync.Session()
	return summarize(s, sc.sync.Pending())
}

func summarize(s *game.Session, pending int) statusSummary {
	sum := statusSummary{
		GameID:     s.GameID,
		StatusLine: s.StatusLine(),
		CanAct:     s.CanAct(),
		Candidate:  []int(s.Candidate()),
		Options: lo.Map(s.Options, func(o move.Sequence, _ int) []int {
			return []int(o)
		}),
		Pending: pending,
	}
	if s.Loaded() {
		sum.MyColor = s.MyColor.String()
		sum.Status = s.Status.String()
		if s.TurnOf != board.NoColor {
			sum.TurnOf = s.TurnOf.String()
		}
	}
	if sum.Candidate == nil {
		sum.Candidate = []int{}
	}
	return sum
}
