// Package syncer keeps a game.Session in step with the server: it polls on
// a timer and on demand, applies each snapshot, and sends completed moves.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/kingme/board"
	"github.com/domino14/kingme/game"
	"github.com/domino14/kingme/move"
	"github.com/domino14/kingme/transport"
)

const (
	DefaultInterval      = 2 * time.Second
	DefaultBackstopEvery = 15

	// Results of moves sent by the run loop are kept for this many moves
	// in case a Flush asks for them.
	maxUnreported = 32
)

// ErrMoveDropped is the result of a queued move thrown away by Switch.
var ErrMoveDropped = errors.New("move dropped when switching games")

// Recorder keeps a record of what happened in a game. journal.Journal is
// one.
type Recorder interface {
	RecordMove(ctx context.Context, gameID int, color board.Color, seq move.Sequence) error
	RecordOutcome(ctx context.Context, gameID int, status game.Status, winner board.Color) error
}

type pendingMove struct {
	gameID int
	token  string
	color  board.Color
	seq    move.Sequence
	// done receives the result of the send exactly once.
	done chan error
}

// Synchronizer owns the session of one game. Front ends click and read
// through it from their own goroutine while Run polls in another. No
// network call is made while holding the lock.
type Synchronizer struct {
	mu      sync.Mutex
	session *game.Session
	pending []pendingMove
	// unreported holds the result channels of moves no Flush has
	// answered for yet.
	unreported []chan error
	// gen is bumped whenever a poll already on the wire may predate a
	// move; responses from an older generation are dropped.
	gen uint64
	// outcomeSeen is set once the end of the game has been recorded.
	outcomeSeen bool

	// submitMu serializes drains.
	submitMu sync.Mutex
	wake     chan struct{}

	tr            transport.Transport
	rec           Recorder
	interval      time.Duration
	backstopEvery int
	onChange      func(*game.Session)
}

func New(tr transport.Transport, gameID int, token string) *Synchronizer {
	return &Synchronizer{
		session:       game.NewSession(gameID, token),
		wake:          make(chan struct{}, 1),
		tr:            tr,
		interval:      DefaultInterval,
		backstopEvery: DefaultBackstopEvery,
	}
}

func (s *Synchronizer) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// SetBackstopEvery makes every nth tick poll even when the session says
// there is nothing to wait for. Zero turns the backstop off.
func (s *Synchronizer) SetBackstopEvery(n int) {
	s.backstopEvery = n
}

func (s *Synchronizer) SetRecorder(r Recorder) {
	s.rec = r
}

// OnChange registers fn to be called with a copy of the session whenever
// something visible changes. fn runs without the lock held.
func (s *Synchronizer) OnChange(fn func(*game.Session)) {
	s.onChange = fn
}

// Session returns a copy of the current session.
func (s *Synchronizer) Session() *game.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// Switch starts over on another game, dropping any queued moves.
func (s *Synchronizer) Switch(gameID int, token string) {
	s.mu.Lock()
	s.session = game.NewSession(gameID, token)
	for _, pm := range s.pending {
		pm.done <- ErrMoveDropped
	}
	s.pending = nil
	s.unreported = nil
	s.outcomeSeen = false
	s.gen++
	snap := s.session.Clone()
	s.mu.Unlock()
	log.Info().Int("game-id", gameID).Msg("switched-game")
	s.notify(snap)
}

func (s *Synchronizer) notify(sess *game.Session) {
	if s.onChange != nil {
		s.onChange(sess)
	}
}

// Poll fetches the game status and applies it. Unless force is set the
// request is skipped when the session does not need it; polled reports
// whether a request was made.
func (s *Synchronizer) Poll(ctx context.Context, force bool) (polled bool, err error) {
	s.mu.Lock()
	if !force && !s.session.ShouldPoll() {
		s.mu.Unlock()
		return false, nil
	}
	gameID, token, gen := s.session.GameID, s.session.Token, s.gen
	s.mu.Unlock()

	resp, err := s.tr.Status(ctx, gameID, token)
	if err != nil {
		return true, err
	}

	s.mu.Lock()
	if s.gen != gen || s.session.GameID != gameID || s.session.Token != token {
		// A move went out or the game was switched while the request
		// was on the wire.
		s.mu.Unlock()
		log.Debug().Int("game-id", gameID).Msg("stale-status-dropped")
		return true, nil
	}
	prev := s.session
	next, err := game.ApplyServerSnapshot(prev, resp)
	if err != nil {
		s.mu.Unlock()
		return true, err
	}
	s.session = next
	changed := game.Changed(prev, next)
	recordOutcome := next.Status.Over() && !s.outcomeSeen
	if recordOutcome {
		s.outcomeSeen = true
	}
	snap := next.Clone()
	s.mu.Unlock()

	if changed {
		log.Debug().Int("game-id", gameID).Str("turn", snap.TurnOf.String()).
			Str("status", snap.Status.String()).Msg("game-changed")
	}
	if recordOutcome && s.rec != nil {
		if err := s.rec.RecordOutcome(ctx, gameID, snap.Status, snap.Winner); err != nil {
			log.Err(err).Int("game-id", gameID).Msg("journal-outcome-failed")
		}
	}
	if changed {
		s.notify(snap)
	}
	return true, nil
}

// click runs fn on the session and queues the move if it completed one.
func (s *Synchronizer) click(fn func(*game.Session) (move.Outcome, bool)) (move.Outcome, bool) {
	s.mu.Lock()
	out, handled := fn(s.session)
	if out.State == move.Complete {
		s.session.MarkSubmitted()
		done := make(chan error, 1)
		s.pending = append(s.pending, pendingMove{
			gameID: s.session.GameID,
			token:  s.session.Token,
			color:  s.session.MyColor,
			seq:    out.Submit,
			done:   done,
		})
		s.unreported = append(s.unreported, done)
		if len(s.unreported) > maxUnreported {
			s.unreported = s.unreported[len(s.unreported)-maxUnreported:]
		}
		s.gen++
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	snap := s.session.Clone()
	s.mu.Unlock()

	if out.State == move.Complete {
		log.Info().Int("game-id", snap.GameID).Str("seq", out.Submit.String()).Msg("move-complete")
	}
	if handled {
		s.notify(snap)
	}
	return out, handled
}

// ClickPixel takes a point on a board drawn with geometry g.
func (s *Synchronizer) ClickPixel(g board.Geometry, px, py int) (move.Outcome, bool) {
	return s.click(func(sess *game.Session) (move.Outcome, bool) {
		return sess.ClickPixel(g, px, py)
	})
}

// ClickCell takes a cell as drawn on screen.
func (s *Synchronizer) ClickCell(visual board.Cell) (move.Outcome, bool) {
	return s.click(func(sess *game.Session) (move.Outcome, bool) {
		return sess.ClickCell(visual)
	})
}

func (s *Synchronizer) ClickSquare(id board.SquareID) (move.Outcome, bool) {
	return s.click(func(sess *game.Session) (move.Outcome, bool) {
		return sess.ClickSquare(id)
	})
}

// Reset discards the move under construction.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.session.ResetCandidate()
	snap := s.session.Clone()
	s.mu.Unlock()
	s.notify(snap)
}

// Pending is the number of moves waiting to be sent.
func (s *Synchronizer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush sends every queued move, then polls exactly once whether or not
// the sends succeeded. It returns the first send error among the moves
// completed since the last Flush, including those the run loop sent.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	waits := s.unreported
	s.unreported = nil
	s.mu.Unlock()

	s.drain(ctx)

	// Every move in waits was sent by this drain or by one that held
	// submitMu before it, so each result is already buffered.
	var firstErr error
	for _, ch := range waits {
		select {
		case err := <-ch:
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return firstErr
}

// drain sends the queue and polls once. Results go to each move's done
// channel; the first error is also returned for logging.
func (s *Synchronizer) drain(ctx context.Context) error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(queued) == 0 {
		return nil
	}

	var firstErr error
	for _, pm := range queued {
		err := s.tr.SubmitMove(ctx, pm.gameID, pm.token, pm.seq)
		pm.done <- err
		if err != nil {
			log.Err(err).Int("game-id", pm.gameID).Str("seq", pm.seq.String()).Msg("submit-failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info().Int("game-id", pm.gameID).Str("color", pm.color.String()).
			Str("seq", pm.seq.String()).Msg("move-submitted")
		if s.rec != nil {
			if err := s.rec.RecordMove(ctx, pm.gameID, pm.color, pm.seq); err != nil {
				log.Err(err).Int("game-id", pm.gameID).Msg("journal-move-failed")
			}
		}
	}
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
	if _, err := s.Poll(ctx, true); err != nil {
		log.Err(err).Msg("poll-after-submit-failed")
	}
	return firstErr
}

func (s *Synchronizer) nextDelay() time.Duration {
	jitter := int(s.interval / 10)
	if jitter <= 0 {
		return s.interval
	}
	return s.interval + time.Duration(frand.Intn(jitter))
}

// Run polls until ctx is done. The first poll is immediate; after that a
// tick polls only when the session asks for it, except every
// BackstopEvery ticks. Queued moves are sent as soon as they arrive.
func (s *Synchronizer) Run(ctx context.Context) error {
	if _, err := s.Poll(ctx, true); err != nil && !errors.Is(err, context.Canceled) {
		log.Err(err).Msg("initial-poll-failed")
	}
	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			if err := s.drain(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("move-not-accepted")
			}
		case <-timer.C:
			ticks++
			force := s.backstopEvery > 0 && ticks%s.backstopEvery == 0
			if _, err := s.Poll(ctx, force); err != nil && ctx.Err() == nil {
				log.Err(err).Bool("backstop", force).Msg("poll-failed")
			}
			timer.Reset(s.nextDelay())
		}
	}
}
