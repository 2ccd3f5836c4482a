package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/move"
)

// Subjects under the configured prefix.
const (
	StatusSubject = "status"
	MoveSubject   = "move"
)

// NATSClient sends status polls and moves as JSON requests over NATS.
type NATSClient struct {
	nc      *nats.Conn
	prefix  string
	timeout time.Duration
}

// DialNATS connects to the NATS server at natsURL. timeout bounds requests
// whose context carries no deadline.
func DialNATS(natsURL, prefix string, timeout time.Duration) (*NATSClient, error) {
	nc, err := nats.Connect(natsURL, nats.Name("kingme"))
	if err != nil {
		return nil, err
	}
	return NewNATSClient(nc, prefix, timeout), nil
}

// NewNATSClient wraps an existing connection.
func NewNATSClient(nc *nats.Conn, prefix string, timeout time.Duration) *NATSClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NATSClient{nc: nc, prefix: prefix, timeout: timeout}
}

// Subject returns the full subject for one of the request kinds.
func Subject(prefix, kind string) string {
	return prefix + "." + kind
}

func (c *NATSClient) request(ctx context.Context, kind string, req, resp any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	msg, err := c.nc.RequestWithContext(ctx, Subject(c.prefix, kind), data)
	if err != nil {
		if c.nc.LastError() != nil {
			log.Error().Msgf("%v for request", c.nc.LastError())
		}
		return err
	}
	log.Debug().Str("subject", msg.Subject).Msgf("res: %v", string(msg.Data))
	return json.Unmarshal(msg.Data, resp)
}

func (c *NATSClient) Status(ctx context.Context, gameID int, token string) (*api.GameStatus, error) {
	rep := api.StatusReply{}
	err := c.request(ctx, StatusSubject, api.StatusRequest{GameID: gameID, UserUUID: token}, &rep)
	if err != nil {
		return nil, err
	}
	if rep.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, rep.Error)
	}
	return &rep.GameStatus, nil
}

func (c *NATSClient) SubmitMove(ctx context.Context, gameID int, token string, seq move.Sequence) error {
	rep := api.MoveReply{}
	err := c.request(ctx, MoveSubject, api.MoveRequest{
		GameID:   gameID,
		UserUUID: token,
		Move:     []int(seq),
	}, &rep)
	if err != nil {
		return err
	}
	if !rep.OK {
		return fmt.Errorf("%w: %s", ErrMoveRejected, rep.Error)
	}
	return nil
}

// Close drains the connection.
func (c *NATSClient) Close() error {
	return c.nc.Drain()
}
