package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/domino14/kingme/api"
	"github.com/domino14/kingme/move"
)

const maxBodySize = 1 << 20

// HTTPClient talks to the server's JSON-over-HTTP surface. Requests that
// fail on the network or with a 5xx are retried with exponential backoff;
// 4xx answers are returned at once.
type HTTPClient struct {
	base     *url.URL
	hc       *http.Client
	timeout  time.Duration
	attempts uint
	delay    time.Duration
}

// NewHTTPClient returns a client for the server at serverURL. timeout
// bounds each attempt and attempts is the total number of tries.
func NewHTTPClient(serverURL string, timeout time.Duration, attempts uint) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, err
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("server url must be http or https: " + serverURL)
	}
	if attempts == 0 {
		attempts = 1
	}
	return &HTTPClient{
		base: base,
		hc: &http.Client{
			// Game creation answers with a redirect that carries the new id;
			// we read it rather than follow it.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout:  timeout,
		attempts: attempts,
		delay:    100 * time.Millisecond,
	}, nil
}

// SetRetryDelay changes the base delay between attempts.
func (c *HTTPClient) SetRetryDelay(d time.Duration) {
	c.delay = d
}

type reply struct {
	code   int
	header http.Header
	body   []byte
}

func (r *reply) ok() bool {
	return r.code >= 200 && r.code < 300
}

func (r *reply) statusError() *StatusError {
	return &StatusError{Code: r.code, Body: strings.TrimSpace(string(r.body))}
}

func (c *HTTPClient) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *HTTPClient) once(ctx context.Context, method, path string, q url.Values, body []byte) (*reply, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return &reply{code: resp.StatusCode, header: resp.Header, body: data}, nil
}

// roundTrip sends one request, retrying network errors. 5xx answers are
// retried as well when idempotent is true.
func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, q url.Values,
	body []byte, idempotent bool) (*reply, error) {

	var rep *reply
	err := retry.Do(
		func() error {
			r, err := c.once(ctx, method, path, q, body)
			if err != nil {
				return err
			}
			if se := r.statusError(); idempotent && se.Retryable() {
				return se
			}
			rep = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Err(err).Uint("attempt", n+1).Str("path", path).
				Msg("request-failed-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func playerQuery(gameID int, token string) url.Values {
	q := url.Values{}
	q.Set("game_id", strconv.Itoa(gameID))
	q.Set("user_uuid", token)
	return q
}

// Status polls the game as seen by the player holding token.
func (c *HTTPClient) Status(ctx context.Context, gameID int, token string) (*api.GameStatus, error) {
	rep, err := c.roundTrip(ctx, http.MethodGet, "/game_status", playerQuery(gameID, token), nil, true)
	if err != nil {
		return nil, err
	}
	if !rep.ok() {
		return nil, rep.statusError()
	}
	gs := &api.GameStatus{}
	if err := json.Unmarshal(rep.body, gs); err != nil {
		return nil, err
	}
	return gs, nil
}

// SubmitMove posts seq. The body of a successful answer is not used.
func (c *HTTPClient) SubmitMove(ctx context.Context, gameID int, token string, seq move.Sequence) error {
	body, err := json.Marshal(api.MoveRequest{
		GameID:   gameID,
		UserUUID: token,
		Move:     []int(seq),
	})
	if err != nil {
		return err
	}
	rep, err := c.roundTrip(ctx, http.MethodPost, "/move", nil, body, false)
	if err != nil {
		return err
	}
	if !rep.ok() {
		return rep.statusError()
	}
	return nil
}
