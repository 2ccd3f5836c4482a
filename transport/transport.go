// Package transport moves game state and moves between the client and a
// checkers server, over HTTP or NATS.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/move"
)

// Transport is the status and move surface of a game server.
type Transport interface {
	Status(ctx context.Context, gameID int, token string) (*api.GameStatus, error)
	SubmitMove(ctx context.Context, gameID int, token string, seq move.Sequence) error
}

var (
	ErrHTTPStatus    = errors.New("unexpected http status")
	ErrMoveRejected  = errors.New("move rejected")
	ErrRequestFailed = errors.New("request failed")
	ErrNoGameID      = errors.New("no game id in response")
)

// StatusError is a response the server answered with a non-2xx code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v %d: %s", ErrHTTPStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrHTTPStatus
}

// Retryable reports whether the same request could succeed later.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500
}
