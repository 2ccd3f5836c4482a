package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/game"
	"github.com/domino14/kingme/move"
)

type fakeTransport struct {
	mu        sync.Mutex
	status    *api.GameStatus
	statusErr error
	submitErr error
	polls     int
	submitted []move.Sequence
	// afterSubmit, if set, replaces status once a move is accepted.
	afterSubmit *api.GameStatus
}

func (f *fakeTransport) Status(ctx context.Context, gameID int, token string) (*api.GameStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	gs := *f.status
	return &gs, nil
}

func (f *fakeTransport) SubmitMove(ctx context.Context, gameID int, token string, seq move.Sequence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, seq.Copy())
	if f.submitErr != nil {
		return f.submitErr
	}
	if f.afterSubmit != nil {
		f.status = f.afterSubmit
	}
	return nil
}

func (f *fakeTransport) counts() (polls, submits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls, len(f.submitted)
}

type fakeRecorder struct {
	moves    []move.Sequence
	outcomes []game.Status
}

func (r *fakeRecorder) RecordMove(ctx context.Context, gameID int, color board.Color, seq move.Sequence) error {
	r.moves = append(r.moves, seq)
	return nil
}

func (r *fakeRecorder) RecordOutcome(ctx context.Context, gameID int, status game.Status, winner board.Color) error {
	r.outcomes = append(r.outcomes, status)
	return nil
}

func redToMove() *api.GameStatus {
	start := board.StartingPosition()
	return &api.GameStatus{
		MyColor:      "RED",
		MyName:       "cesar",
		OpponentName: "josie",
		GameBoard:    start.Columns(),
		Points:       map[string]int{"RED": 0, "GREEN": 0},
		Status:       api.StatusInProgress,
		Options:      [][]int{{9, 13}, {10, 15}},
		TurnOf:       "RED",
	}
}

func greenToMove() *api.GameStatus {
	gs := redToMove()
	gs.GameBoard[1][2] = 0
	gs.GameBoard[0][3] = 1
	gs.Options = [][]int{}
	gs.TurnOf = "GREEN"
	return gs
}

func TestPollGating(t *testing.T) {
	is := is.New(t)
	ft := &fakeTransport{status: redToMove()}
	s := New(ft, 1, "tok")
	ctx := context.Background()

	polled, err := s.Poll(ctx, false)
	is.NoErr(err)
	is.True(polled) // first load always polls
	is.True(s.Session().CanAct())

	// Our turn: nothing to wait for.
	polled, err = s.Poll(ctx, false)
	is.NoErr(err)
	is.True(!polled)

	polled, err = s.Poll(ctx, true)
	is.NoErr(err)
	is.True(polled)
	polls, _ := ft.counts()
	is.Equal(polls, 2)
}

func TestSubmitThenExactlyOnePoll(t *testing.T) {
	is := is.New(t)
	ft := &fakeTransport{status: redToMove(), afterSubmit: greenToMove()}
	rec := &fakeRecorder{}
	s := New(ft, 1, "tok")
	s.SetRecorder(rec)
	ctx := context.Background()
	_, err := s.Poll(ctx, true)
	is.NoErr(err)

	out, handled := s.ClickSquare(9)
	is.True(handled)
	is.Equal(out.State, move.Building)
	out, _ = s.ClickSquare(13)
	is.Equal(out.State, move.Complete)
	is.Equal(out.Submit, move.Sequence{9, 13})

	// The candidate is gone before anything is sent.
	is.Equal(len(s.Session().Candidate()), 0)
	is.Equal(s.Pending(), 1)

	is.NoErr(s.Flush(ctx))
	polls, submits := ft.counts()
	is.Equal(submits, 1)
	is.Equal(polls, 2)
	is.Equal(s.Pending(), 0)
	is.Equal(rec.moves, []move.Sequence{{9, 13}})

	sess := s.Session()
	is.Equal(sess.TurnOf, board.Green)
	is.True(!sess.CanAct())

	// Nothing queued: no traffic.
	is.NoErr(s.Flush(ctx))
	polls, submits = ft.counts()
	is.Equal(submits, 1)
	is.Equal(polls, 2)
}

func TestSubmitFailureStillPolls(t *testing.T) {
	is := is.New(t)
	rejected := errors.New("nope")
	ft := &fakeTransport{status: redToMove(), submitErr: rejected}
	s := New(ft, 1, "tok")
	ctx := context.Background()
	_, err := s.Poll(ctx, true)
	is.NoErr(err)

	s.ClickSquare(10)
	s.ClickSquare(15)
	err = s.Flush(ctx)
	is.True(errors.Is(err, rejected))
	polls, submits := ft.counts()
	is.Equal(submits, 1)
	is.Equal(polls, 2)
	// The failed move is not restored.
	is.Equal(len(s.Session().Candidate()), 0)
	is.True(s.Session().CanAct())
}

func TestClicksIgnoredWhenNotMyTurn(t *testing.T) {
	is := is.New(t)
	ft := &fakeTransport{status: greenToMove()}
	s := New(ft, 1, "tok")
	changes := 0
	s.OnChange(func(*game.Session) { changes++ })
	_, err := s.Poll(context.Background(), true)
	is.NoErr(err)
	is.Equal(changes, 1)

	_, handled := s.ClickSquare(13)
	is.True(!handled)
	is.Equal(changes, 1)
	is.Equal(s.Pending(), 0)
}

func TestPollKeepsCandidateAndSkipsNotify(t *testing.T) {
	is := is.New(t)
	ft := &fakeTransport{status: redToMove()}
	s := New(ft, 1, "tok")
	var last *game.Session
	changes := 0
	s.OnChange(func(sess *game.Session) { changes++; last = sess })
	ctx := context.Background()
	_, err := s.Poll(ctx, true)
	is.NoErr(err)

	s.ClickSquare(9)
	is.Equal(changes, 2)
	is.Equal(last.Candidate(), move.Sequence{9})

	_, err = s.Poll(ctx, true)
	is.NoErr(err)
	is.Equal(changes, 2)
	is.Equal(s.Session().Candidate(), move.Sequence{9})

	s.Reset()
	is.Equal(changes, 3)
	is.Equal(len(s.Session().Candidate()), 0)
}

func TestPollError(t *testing.T) {
	is := is.New(t)
	boom := errors.New("down")
	ft := &fakeTransport{status: redToMove(), statusErr: boom}
	s := New(ft, 1, "tok")
	polled, err := s.Poll(context.Background(), true)
	is.True(polled)
	is.True(errors.Is(err, boom))
	is.True(!s.Session().Loaded())

	ft.mu.Lock()
	ft.statusErr = nil
	ft.status = redToMove()
	ft.status.MyColor = "PURPLE"
	ft.mu.Unlock()
	_, err = s.Poll(context.Background(), true)
	is.True(errors.Is(err, api.ErrUnknownColor))
}

func TestOutcomeRecordedOnce(t *testing.T) {
	is := is.New(t)
	over := redToMove()
	over.Status = api.StatusWon
	over.Winner = "RED"
	over.TurnOf = ""
	over.Options = nil
	ft := &fakeTransport{status: over}
	rec := &fakeRecorder{}
	s := New(ft, 1, "tok")
	s.SetRecorder(rec)
	for i := 0; i < 3; i++ {
		_, err := s.Poll(context.Background(), true)
		is.NoErr(err)
	}
	is.Equal(rec.outcomes, []game.Status{game.Won})
	is.Equal(s.Session().StatusLine(), "YOU WON :D")
}

func TestSwitch(t *testing.T) {
	is := is.New(t)
	ft := &fakeTransport{status: redToMove()}
	s := New(ft, 1, "tok")
	_, err := s.Poll(context.Background(), true)
	is.NoErr(err)
	s.Switch(5, "other")
	sess := s.Session()
	is.Equal(sess.GameID, 5)
	is.Equal(sess.Token, "other")
	is.True(!sess.Loaded())
}

func TestRunBackstop(t *testing.T) {
	is := is.New(t)
	ft := &fakeTransport{status: redToMove()}
	s := New(ft, 1, "tok")
	s.SetInterval(5 * time.Millisecond)
	s.SetBackstopEvery(2)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	is.NoErr(s.Run(ctx))

	// It is our turn the whole time, so only the first poll and the
	// backstop ticks reach the server.
	polls, _ := ft.counts()
	is.True(polls >= 2)
	is.True(polls < 30)
}

func TestRunSubmitsQueuedMoves(t *testing.T) {
	is := is.New(t)
	ft := &fakeTransport{status: redToMove(), afterSubmit: greenToMove()}
	s := New(ft, 1, "tok")
	s.SetInterval(time.Hour)
	s.SetBackstopEvery(0)

	loaded := make(chan struct{}, 1)
	s.OnChange(func(sess *game.Session) {
		if sess.Loaded() && sess.TurnOf == board.Red {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()
	<-loaded

	s.ClickSquare(10)
	s.ClickSquare(15)

	deadline := time.After(2 * time.Second)
	for {
		if _, submits := ft.counts(); submits == 1 && s.Session().TurnOf == board.Green {
			break
		}
		select {
		case <-deadline:
			t.Fatal("move was not submitted")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	is.NoErr(<-done)
	polls, _ := ft.counts()
	is.Equal(polls, 2)
}

// gatedTransport stops the next armed call until release is closed.
type gatedTransport struct {
	*fakeTransport
	mu         sync.Mutex
	holdStatus bool
	holdSubmit bool
	entered    chan struct{}
	release    chan struct{}
}

func newGated(ft *fakeTransport) *gatedTransport {
	return &gatedTransport{
		fakeTransport: ft,
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (g *gatedTransport) hold(held *bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := *held
	*held = false
	return h
}

func (g *gatedTransport) Status(ctx context.Context, gameID int, token string) (*api.GameStatus, error) {
	gs, err := g.fakeTransport.Status(ctx, gameID, token)
	if g.hold(&g.holdStatus) {
		close(g.entered)
		<-g.release
	}
	return gs, err
}

func (g *gatedTransport) SubmitMove(ctx context.Context, gameID int, token string, seq move.Sequence) error {
	if g.hold(&g.holdSubmit) {
		close(g.entered)
		<-g.release
	}
	return g.fakeTransport.SubmitMove(ctx, gameID, token, seq)
}

func TestStatusFromBeforeMoveIsDropped(t *testing.T) {
	is := is.New(t)
	gt := newGated(&fakeTransport{status: redToMove(), afterSubmit: greenToMove()})
	s := New(gt, 1, "tok")
	ctx := context.Background()
	_, err := s.Poll(ctx, true)
	is.NoErr(err)

	gt.mu.Lock()
	gt.holdStatus = true
	gt.mu.Unlock()
	done := make(chan error)
	go func() {
		_, err := s.Poll(ctx, true)
		done <- err
	}()
	<-gt.entered // holds the board from before the move

	s.ClickSquare(9)
	out, _ := s.ClickSquare(13)
	is.Equal(out.State, move.Complete)
	is.NoErr(s.Flush(ctx))
	is.Equal(s.Session().TurnOf, board.Green)

	close(gt.release)
	is.NoErr(<-done)
	sess := s.Session()
	is.Equal(sess.TurnOf, board.Green)
	is.True(!sess.CanAct())
}

func TestFlushReportsMoveTakenByRun(t *testing.T) {
	is := is.New(t)
	rejected := errors.New("illegal move")
	gt := newGated(&fakeTransport{status: redToMove(), submitErr: rejected})
	gt.holdSubmit = true
	s := New(gt, 1, "tok")
	s.SetInterval(time.Hour)
	s.SetBackstopEvery(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Poll(ctx, true)
	is.NoErr(err)
	runDone := make(chan error)
	go func() { runDone <- s.Run(ctx) }()

	s.ClickSquare(10)
	s.ClickSquare(15)
	<-gt.entered // the run loop is sending the move

	is.Equal(s.Pending(), 0)
	close(gt.release)

	is.True(errors.Is(s.Flush(ctx), rejected))
	// The result is reported once.
	is.NoErr(s.Flush(ctx))
	_, submits := gt.counts()
	is.Equal(submits, 1)
	cancel()
	is.NoErr(<-runDone)
}

func TestSwitchDropsQueuedMove(t *testing.T) {
	is := is.New(t)
	ft := &fakeTransport{status: redToMove()}
	s := New(ft, 1, "tok")
	ctx := context.Background()
	_, err := s.Poll(ctx, true)
	is.NoErr(err)
	s.ClickSquare(9)
	s.ClickSquare(13)
	is.Equal(s.Pending(), 1)

	s.Switch(2, "tok")
	is.Equal(s.Pending(), 0)
	is.NoErr(s.Flush(ctx))
	_, submits := ft.counts()
	is.Equal(submits, 0)
}
